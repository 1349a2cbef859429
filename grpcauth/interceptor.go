package grpcauth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	da "github.com/samddir/docauth"
)

// InterceptorConfig configures the auth interceptor behavior
type InterceptorConfig struct {
	// Tokens verifies incoming Bearer session tokens
	Tokens *da.TokenIssuer

	// RequireFullScope when true rejects completion-scoped tokens.
	// Registration completion is an HTTP concern; internal services
	// normally only see full sessions.
	RequireFullScope bool

	// PublicMethods is a set of full method names ("/pkg.Service/Method")
	// that skip authentication.
	PublicMethods map[string]bool
}

// NewInterceptorConfig creates a config requiring full sessions everywhere
// except the listed public methods.
func NewInterceptorConfig(tokens *da.TokenIssuer, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Tokens:           tokens,
		RequireFullScope: true,
		PublicMethods:    make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// UnaryAuthInterceptor returns a unary interceptor that verifies the Bearer
// session token from incoming metadata and puts the account in the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if config.PublicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		ctx, err := authenticate(ctx, config)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns the stream counterpart of UnaryAuthInterceptor
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if config.PublicMethods[info.FullMethod] {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), config)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticate verifies the token in the incoming metadata and returns a
// context carrying the account id and scope.
func authenticate(ctx context.Context, config *InterceptorConfig) (context.Context, error) {
	token := bearerFromContext(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	accountID, scope, err := config.Tokens.Verify(token)
	if err != nil {
		if err == da.ErrTokenExpired {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	if config.RequireFullScope && scope != da.ScopeFull {
		return nil, status.Error(codes.PermissionDenied, "full session required")
	}

	return withAccount(ctx, accountID, scope), nil
}

func bearerFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// wrappedStream overrides the stream context with the authenticated one
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

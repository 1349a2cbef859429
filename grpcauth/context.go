// Package grpcauth verifies docauth session tokens on incoming gRPC
// requests and propagates the authenticated account between services via
// metadata. Internal services behind the HTTP surface (directory search,
// admin review) use this to trust the login performed upstream.
package grpcauth

import (
	"context"

	"google.golang.org/grpc/metadata"

	da "github.com/samddir/docauth"
)

// Metadata keys used for auth propagation
const (
	// MetadataKeyAuthorization carries the Bearer session token
	MetadataKeyAuthorization = "authorization"

	// MetadataKeyAccountID carries the verified account id between services
	MetadataKeyAccountID = "x-account-id"

	// MetadataKeyScope carries the verified token scope
	MetadataKeyScope = "x-auth-scope"
)

type contextKey string

const (
	contextKeyAccountID contextKey = "grpcauth_account_id"
	contextKeyScope     contextKey = "grpcauth_scope"
)

// AccountIDFromContext returns the verified account id, "" if the request
// was not authenticated.
func AccountIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyAccountID).(string); ok {
		return v
	}
	return ""
}

// ScopeFromContext returns the verified token scope
func ScopeFromContext(ctx context.Context) da.TokenScope {
	if v, ok := ctx.Value(contextKeyScope).(da.TokenScope); ok {
		return v
	}
	return ""
}

func withAccount(ctx context.Context, accountID string, scope da.TokenScope) context.Context {
	ctx = context.WithValue(ctx, contextKeyAccountID, accountID)
	return context.WithValue(ctx, contextKeyScope, scope)
}

// WithOutgoingAccount attaches the verified account id and scope to an
// outgoing context so downstream services can read them without re-parsing
// the token.
func WithOutgoingAccount(ctx context.Context, accountID string, scope da.TokenScope) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		MetadataKeyAccountID, accountID,
		MetadataKeyScope, string(scope))
}

// PeerAccountFromContext reads the account id and scope a trusted upstream
// stamped on the incoming metadata. Only use behind a network boundary
// where the metadata cannot come from clients directly.
func PeerAccountFromContext(ctx context.Context) (accountID string, scope da.TokenScope) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}
	if values := md.Get(MetadataKeyAccountID); len(values) > 0 {
		accountID = values[0]
	}
	if values := md.Get(MetadataKeyScope); len(values) > 0 {
		scope = da.TokenScope(values[0])
	}
	return accountID, scope
}

package docauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	contextKeyAccountID contextKey = "docauth_account_id"
	contextKeyScope     contextKey = "docauth_scope"
)

// AccountIDFromContext retrieves the authenticated account id, "" if absent
func AccountIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyAccountID).(string); ok {
		return v
	}
	return ""
}

// ScopeFromContext retrieves the token scope of the authenticated request
func ScopeFromContext(ctx context.Context) TokenScope {
	if v, ok := ctx.Value(contextKeyScope).(TokenScope); ok {
		return v
	}
	return ""
}

// Middleware validates Bearer session tokens on incoming requests
type Middleware struct {
	Tokens *TokenIssuer
}

// RequireToken rejects requests without a valid Bearer token of one of the
// given scopes. With no scopes listed, any valid token passes.
func (m *Middleware) RequireToken(scopes ...TokenScope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, scope, err := m.authenticate(r)
			if err != nil {
				msg := "Authentication required"
				if errors.Is(err, ErrTokenExpired) {
					msg = "Token expired"
				}
				writeAuthError(w, http.StatusUnauthorized, ErrCodeUnauthorized, msg)
				return
			}
			if len(scopes) > 0 && !scopeAllowed(scope, scopes) {
				writeAuthError(w, http.StatusForbidden, ErrCodeUnauthorized, "Insufficient scope")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyAccountID, accountID)
			ctx = context.WithValue(ctx, contextKeyScope, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) authenticate(r *http.Request) (string, TokenScope, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "", ErrTokenInvalid
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "", ErrTokenInvalid
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", "", ErrTokenInvalid
	}
	return m.Tokens.Verify(token)
}

func scopeAllowed(scope TokenScope, allowed []TokenScope) bool {
	for _, s := range allowed {
		if s == scope {
			return true
		}
	}
	return false
}

func writeAuthError(w http.ResponseWriter, status int, code ErrCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":             string(code),
		"error_description": message,
	})
}

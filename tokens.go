package docauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenScope distinguishes full sessions from registration-completion tokens
type TokenScope string

const (
	// ScopeFull is a normal session for a complete account
	ScopeFull TokenScope = "full"

	// ScopeCompletion is a short-lived token that only authorizes finishing
	// registration; issued when the account lacks a mobile number.
	ScopeCompletion TokenScope = "completion"
)

// TokenIssuer signs and verifies HS256 session tokens
type TokenIssuer struct {
	SecretKey     string
	Issuer        string
	SessionTTL    time.Duration // Defaults to 24 hours
	CompletionTTL time.Duration // Defaults to 1 hour
}

// NewTokenIssuer creates a TokenIssuer from a config
func NewTokenIssuer(config *Config) *TokenIssuer {
	config.EnsureDefaults()
	return &TokenIssuer{
		SecretKey:     config.JWTSecretKey,
		Issuer:        config.JWTIssuer,
		SessionTTL:    config.SessionTTL,
		CompletionTTL: config.CompletionTokenTTL,
	}
}

// Issue creates a signed token for the account with the scope's default TTL
func (t *TokenIssuer) Issue(accountID string, scope TokenScope) (string, error) {
	ttl := t.SessionTTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	if scope == ScopeCompletion {
		ttl = t.CompletionTTL
		if ttl == 0 {
			ttl = DefaultCompletionTokenTTL
		}
	}
	return t.IssueWithTTL(accountID, scope, ttl)
}

// IssueWithTTL creates a signed token with an explicit TTL
func (t *TokenIssuer) IssueWithTTL(accountID string, scope TokenScope, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   accountID,
		"iss":   t.Issuer,
		"scope": string(scope),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(t.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a session token and returns the account id and scope.
// Expired tokens return ErrTokenExpired; any other failure returns
// ErrTokenInvalid.
func (t *TokenIssuer) Verify(tokenString string) (accountID string, scope TokenScope, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(t.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrTokenExpired
		}
		return "", "", ErrTokenInvalid
	}
	if !token.Valid {
		return "", "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrTokenInvalid
	}
	if t.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != t.Issuer {
			return "", "", ErrTokenInvalid
		}
	}
	accountID, ok = claims["sub"].(string)
	if !ok || accountID == "" {
		return "", "", ErrTokenInvalid
	}
	scopeStr, ok := claims["scope"].(string)
	if !ok {
		return "", "", ErrTokenInvalid
	}
	scope = TokenScope(scopeStr)
	if scope != ScopeFull && scope != ScopeCompletion {
		return "", "", ErrTokenInvalid
	}
	return accountID, scope, nil
}

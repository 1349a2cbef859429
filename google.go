package docauth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleUser holds the identity claims extracted from a Google ID token
type GoogleUser struct {
	Sub           string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// GoogleTokenVerifier validates a raw Google ID token and extracts the user.
// Tests substitute a fake; production uses NewGoogleVerifier.
type GoogleTokenVerifier interface {
	VerifyIDToken(ctx context.Context, rawToken string) (*GoogleUser, error)
}

// googleVerifier validates ID tokens against Google's public keys
type googleVerifier struct {
	clientID string
}

// NewGoogleVerifier creates a verifier that requires the token audience to
// match the given OAuth client id.
func NewGoogleVerifier(clientID string) GoogleTokenVerifier {
	return &googleVerifier{clientID: clientID}
}

func (g *googleVerifier) VerifyIDToken(ctx context.Context, rawToken string) (*GoogleUser, error) {
	payload, err := idtoken.Validate(ctx, rawToken, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	user := &GoogleUser{Sub: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		user.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		user.Picture = picture
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		user.EmailVerified = verified
	}
	if user.Sub == "" {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

package docauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Issuer creates OTP and magic-link challenges. Secrets never reach the
// store in the clear: OTPs are bcrypt-hashed (looked up by challenge id),
// magic tokens are SHA-256 hashed (the hash is the lookup key).
type Issuer struct {
	Challenges ChallengeStore
	Config     *Config
}

// NewIssuer creates an Issuer with defaults applied to the config
func NewIssuer(challenges ChallengeStore, config *Config) *Issuer {
	if config == nil {
		config = &Config{}
	}
	config.EnsureDefaults()
	return &Issuer{Challenges: challenges, Config: config}
}

// RequestChallenge issues a new challenge for the identifier and returns it
// together with the plaintext secret for delivery. Prior unused challenges
// for the same identifier+method are superseded so only the newest secret
// verifies. Returns ErrRateLimited when the identifier exhausted its window.
func (i *Issuer) RequestChallenge(ctx context.Context, identifier string, method Method, meta ClientMeta) (*Challenge, string, error) {
	if identifier == "" {
		return nil, "", NewAuthError(ErrCodeInvalidRequest, "identifier is required", "identifier")
	}

	since := time.Now().Add(-i.Config.RateLimitWindow)
	count, err := i.Challenges.CountRecent(ctx, identifier, method, since)
	if err != nil {
		return nil, "", fmt.Errorf("failed to count recent challenges: %w", err)
	}
	if count >= int64(i.Config.RateLimitMax) {
		return nil, "", ErrRateLimited
	}

	var secret, secretHash string
	var expiry time.Duration
	switch method {
	case MethodOTP:
		secret, err = GenerateOTP()
		if err != nil {
			return nil, "", err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, "", fmt.Errorf("failed to hash otp: %w", err)
		}
		secretHash = string(hash)
		expiry = i.Config.OTPExpiry
	case MethodMagic:
		secret, err = GenerateSecureToken()
		if err != nil {
			return nil, "", err
		}
		secretHash = HashToken(secret)
		expiry = i.Config.MagicLinkExpiry
	default:
		return nil, "", NewAuthError(ErrCodeInvalidRequest, "unsupported challenge method", "method")
	}

	if err := i.Challenges.Supersede(ctx, identifier, method); err != nil {
		return nil, "", fmt.Errorf("failed to supersede prior challenges: %w", err)
	}

	ch := &Challenge{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Method:     method,
		SecretHash: secretHash,
		ExpiresAt:  time.Now().Add(expiry),
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		CreatedAt:  time.Now(),
	}
	if err := i.Challenges.Create(ctx, ch); err != nil {
		return nil, "", fmt.Errorf("failed to create challenge: %w", err)
	}

	log.Printf("Issued %s challenge %s for %s", method, ch.ID, identifier)
	return ch, secret, nil
}

// GenerateOTP returns a 6 digit code from a CSPRNG, zero padded
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 of a magic-link token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package docauth

import (
	"log"
	"os"
	"time"
)

// Default durations for challenges and tokens
const (
	DefaultOTPExpiry          = 5 * time.Minute
	DefaultMagicLinkExpiry    = 15 * time.Minute
	DefaultSessionTTL         = 24 * time.Hour
	DefaultCompletionTokenTTL = 1 * time.Hour
	DefaultRateLimitWindow    = 1 * time.Hour
)

// Attempt and rate limits
const (
	DefaultOTPMaxAttempts = 3
	DefaultRateLimitMax   = 3
)

// Config holds all tunable settings for the auth service. Zero values are
// filled in by EnsureDefaults, with environment fallbacks for secrets.
type Config struct {
	// JWT signing
	JWTSecretKey string // Secret key for signing session tokens
	JWTIssuer    string // Issuer claim (e.g. "samd-directory")

	// Token lifetimes
	SessionTTL         time.Duration // Full session tokens, defaults to 24h
	CompletionTokenTTL time.Duration // Completion-scoped tokens, defaults to 1h

	// Challenge lifetimes and limits
	OTPExpiry       time.Duration // Defaults to 5 minutes
	MagicLinkExpiry time.Duration // Defaults to 15 minutes
	OTPMaxAttempts  int           // Defaults to 3
	RateLimitWindow time.Duration // Defaults to 1 hour
	RateLimitMax    int           // Max challenges per identifier per window, defaults to 3

	// BaseURL is the externally visible origin used to build magic links,
	// e.g. "https://directory.example.com"
	BaseURL string

	// GoogleClientID is the audience expected in Google ID tokens
	GoogleClientID string
}

// EnsureDefaults fills in zero-valued fields, reading secrets from the
// environment where available.
func (c *Config) EnsureDefaults() {
	if c.JWTSecretKey == "" {
		c.JWTSecretKey = os.Getenv("DOCAUTH_JWT_SECRET")
		if c.JWTSecretKey == "" {
			log.Println("WARNING: JWTSecretKey not set and DOCAUTH_JWT_SECRET env var missing")
		}
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = os.Getenv("DOCAUTH_JWT_ISSUER")
		if c.JWTIssuer == "" {
			c.JWTIssuer = "samd-directory"
		}
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.CompletionTokenTTL == 0 {
		c.CompletionTokenTTL = DefaultCompletionTokenTTL
	}
	if c.OTPExpiry == 0 {
		c.OTPExpiry = DefaultOTPExpiry
	}
	if c.MagicLinkExpiry == 0 {
		c.MagicLinkExpiry = DefaultMagicLinkExpiry
	}
	if c.OTPMaxAttempts == 0 {
		c.OTPMaxAttempts = DefaultOTPMaxAttempts
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.RateLimitMax == 0 {
		c.RateLimitMax = DefaultRateLimitMax
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv("DOCAUTH_BASE_URL")
		if c.BaseURL == "" {
			c.BaseURL = "http://localhost:8080"
		}
	}
	if c.GoogleClientID == "" {
		c.GoogleClientID = os.Getenv("DOCAUTH_GOOGLE_CLIENT_ID")
	}
}

package docauth

import (
	"context"
	"time"
)

// Method identifies how a challenge secret is delivered and verified
type Method string

const (
	MethodOTP    Method = "otp"    // numeric code over WhatsApp/SMS
	MethodMagic  Method = "magic"  // signed link over email
	MethodGoogle Method = "google" // Google ID token, no challenge stored
)

// Account is a doctor record in the directory. Mobile, Email and GoogleSub
// are nil when unset; each is unique across accounts when present.
type Account struct {
	ID        string  `json:"id"`
	Mobile    *string `json:"mobile,omitempty"`
	Email     *string `json:"email,omitempty"`
	GoogleSub *string `json:"google_sub,omitempty"`

	Name            string `json:"name"`
	Degree          string `json:"degree,omitempty"`
	Specialty       string `json:"specialty,omitempty"`
	ExperienceYears int    `json:"experience_years,omitempty"`
	Area            string `json:"area,omitempty"`
	City            string `json:"city,omitempty"`
	ClinicName      string `json:"clinic_name,omitempty"`

	// Verified is set by an admin after review; self-registered accounts
	// start unverified and stay out of the public directory until then.
	Verified       bool `json:"verified"`
	SelfRegistered bool `json:"self_registered"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsComplete reports whether the account has everything required for a full
// session. A mobile number is mandatory; accounts created from an email or
// Google identity alone must finish registration first.
func (a *Account) IsComplete() bool {
	return a.Mobile != nil && *a.Mobile != ""
}

// Challenge is a single pending verification: an OTP or magic link issued to
// an identifier. Only the hash of the secret is stored.
type Challenge struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"` // mobile number or email address
	Method     Method    `json:"method"`
	SecretHash string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
	Used       bool      `json:"used"`
	Attempts   int       `json:"attempts"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsExpired checks whether the challenge expiry has passed
func (c *Challenge) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// ClientMeta carries request metadata recorded against issued challenges
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// VerifiedIdentifier is the output of a successful challenge verification:
// proof that the caller controls Identifier via Method.
type VerifiedIdentifier struct {
	Identifier string
	Method     Method
}

// AccountStore manages doctor accounts. Implementations must enforce
// uniqueness of mobile, email and google_sub at the persistence layer so
// concurrent creates surface ErrConflict rather than duplicate rows.
type AccountStore interface {
	// GetByID retrieves an account by its ID, ErrNotFound if missing
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByIdentifier looks an account up by the identifier column the
	// method verifies: mobile for otp, email for magic, google_sub for google.
	GetByIdentifier(ctx context.Context, method Method, identifier string) (*Account, error)

	// Create inserts a new account, ErrConflict on a uniqueness violation
	Create(ctx context.Context, account *Account) error

	// Save updates an existing account, ErrConflict on a uniqueness violation
	Save(ctx context.Context, account *Account) error
}

// ChallengeStore manages pending OTP and magic-link challenges
type ChallengeStore interface {
	// Create persists a new challenge
	Create(ctx context.Context, ch *Challenge) error

	// GetByID retrieves a challenge by ID, ErrNotFound if missing
	GetByID(ctx context.Context, id string) (*Challenge, error)

	// GetByTokenHash retrieves a challenge by its stored secret hash,
	// ErrNotFound if missing. Used for magic links where the hash is the
	// lookup key.
	GetByTokenHash(ctx context.Context, hash string) (*Challenge, error)

	// CountRecent counts challenges issued to an identifier+method since
	// the given time, including used ones. Feeds the rate limiter.
	CountRecent(ctx context.Context, identifier string, method Method, since time.Time) (int64, error)

	// Save persists mutations to used/attempts
	Save(ctx context.Context, ch *Challenge) error

	// Supersede marks all outstanding unused challenges for the
	// identifier+method as used, so only the newest secret verifies.
	Supersede(ctx context.Context, identifier string, method Method) error

	// PurgeExpired deletes challenges whose expiry passed before cutoff
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

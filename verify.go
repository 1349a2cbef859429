package docauth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks presented secrets against stored challenges. Checks run in
// a fixed order so callers always see the most specific failure: missing
// challenge, then already-used, then expired, then locked, then mismatch.
type Verifier struct {
	Challenges ChallengeStore
	Config     *Config
}

// NewVerifier creates a Verifier with defaults applied to the config
func NewVerifier(challenges ChallengeStore, config *Config) *Verifier {
	if config == nil {
		config = &Config{}
	}
	config.EnsureDefaults()
	return &Verifier{Challenges: challenges, Config: config}
}

// VerifyOTP checks a numeric code against the challenge with the given id.
// A wrong code increments the attempt counter and returns a MismatchError
// with the remaining count; the limit-reaching attempt returns ErrLocked.
// On success the challenge is marked used before the identifier is returned.
func (v *Verifier) VerifyOTP(ctx context.Context, challengeID, code string) (*VerifiedIdentifier, error) {
	ch, err := v.Challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.Method != MethodOTP {
		return nil, ErrNotFound
	}
	if ch.Used {
		return nil, ErrAlreadyUsed
	}
	if ch.IsExpired() {
		return nil, ErrExpired
	}
	if ch.Attempts >= v.Config.OTPMaxAttempts {
		return nil, ErrLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(ch.SecretHash), []byte(code)) != nil {
		ch.Attempts++
		if err := v.Challenges.Save(ctx, ch); err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		if ch.Attempts >= v.Config.OTPMaxAttempts {
			return nil, ErrLocked
		}
		return nil, &MismatchError{Remaining: v.Config.OTPMaxAttempts - ch.Attempts}
	}

	ch.Used = true
	if err := v.Challenges.Save(ctx, ch); err != nil {
		return nil, fmt.Errorf("failed to mark challenge used: %w", err)
	}
	return &VerifiedIdentifier{Identifier: ch.Identifier, Method: MethodOTP}, nil
}

// VerifyMagicToken checks a magic-link token. The token's hash is the lookup
// key, so a token that matches nothing is indistinguishable from one that
// never existed and both return ErrNotFound.
func (v *Verifier) VerifyMagicToken(ctx context.Context, token string) (*VerifiedIdentifier, error) {
	ch, err := v.Challenges.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}
	if ch.Method != MethodMagic {
		return nil, ErrNotFound
	}
	if ch.Used {
		return nil, ErrAlreadyUsed
	}
	if ch.IsExpired() {
		return nil, ErrExpired
	}

	ch.Used = true
	if err := v.Challenges.Save(ctx, ch); err != nil {
		return nil, fmt.Errorf("failed to mark challenge used: %w", err)
	}
	return &VerifiedIdentifier{Identifier: ch.Identifier, Method: MethodMagic}, nil
}

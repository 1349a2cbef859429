package docauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	da "github.com/samddir/docauth"
)

func TestRequestOTPChallenge(t *testing.T) {
	_, challenges, _ := newTestStores(t)
	issuer := da.NewIssuer(challenges, testConfig())

	ch, secret, err := issuer.RequestChallenge(context.Background(), "9876543210", da.MethodOTP, da.ClientMeta{IPAddress: "1.2.3.4"})
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	if len(secret) != 6 {
		t.Errorf("Expected a 6 digit OTP, got %q", secret)
	}
	for _, c := range secret {
		if c < '0' || c > '9' {
			t.Errorf("OTP contains non-digit: %q", secret)
		}
	}
	if ch.SecretHash == secret || ch.SecretHash == "" {
		t.Error("Challenge must store a hash, not the plaintext secret")
	}
	if ch.Used {
		t.Error("New challenge should not be marked used")
	}
	if ch.IPAddress != "1.2.3.4" {
		t.Errorf("Expected client IP recorded, got %q", ch.IPAddress)
	}
	wantExpiry := time.Now().Add(da.DefaultOTPExpiry)
	if ch.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || ch.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("Expected ~5 minute expiry, got %v", time.Until(ch.ExpiresAt))
	}
}

func TestRequestMagicChallenge(t *testing.T) {
	_, challenges, _ := newTestStores(t)
	issuer := da.NewIssuer(challenges, testConfig())

	ch, secret, err := issuer.RequestChallenge(context.Background(), "doc@example.com", da.MethodMagic, da.ClientMeta{})
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	if len(secret) < 32 {
		t.Errorf("Magic token too short: %d chars", len(secret))
	}
	if ch.SecretHash != da.HashToken(secret) {
		t.Error("Stored hash should be the SHA-256 of the token")
	}
	wantExpiry := time.Now().Add(da.DefaultMagicLinkExpiry)
	if ch.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || ch.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("Expected ~15 minute expiry, got %v", time.Until(ch.ExpiresAt))
	}
}

func TestRequestChallengeValidation(t *testing.T) {
	_, challenges, _ := newTestStores(t)
	issuer := da.NewIssuer(challenges, testConfig())

	if _, _, err := issuer.RequestChallenge(context.Background(), "", da.MethodOTP, da.ClientMeta{}); err == nil {
		t.Error("Expected error for empty identifier")
	}
	if _, _, err := issuer.RequestChallenge(context.Background(), "9876543210", da.Method("sms"), da.ClientMeta{}); err == nil {
		t.Error("Expected error for unknown method")
	}
}

func TestRateLimit(t *testing.T) {
	_, challenges, db := newTestStores(t)
	issuer := da.NewIssuer(challenges, testConfig())
	ctx := context.Background()

	for i := 0; i < da.DefaultRateLimitMax; i++ {
		if _, _, err := issuer.RequestChallenge(ctx, "9876543210", da.MethodOTP, da.ClientMeta{}); err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
	}

	_, _, err := issuer.RequestChallenge(ctx, "9876543210", da.MethodOTP, da.ClientMeta{})
	if !errors.Is(err, da.ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}

	// A different identifier is not affected
	if _, _, err := issuer.RequestChallenge(ctx, "9123456789", da.MethodOTP, da.ClientMeta{}); err != nil {
		t.Errorf("Different identifier should not be limited: %v", err)
	}
	// Neither is the same identifier on another method
	if _, _, err := issuer.RequestChallenge(ctx, "9876543210", da.MethodMagic, da.ClientMeta{}); err != nil {
		t.Errorf("Different method should not be limited: %v", err)
	}

	// Age the existing challenges out of the window and the limit lifts
	old := time.Now().Add(-2 * time.Hour)
	if err := db.Table("auth_sessions").Where("identifier = ?", "9876543210").Update("created_at", old).Error; err != nil {
		t.Fatalf("Failed to age challenges: %v", err)
	}
	if _, _, err := issuer.RequestChallenge(ctx, "9876543210", da.MethodOTP, da.ClientMeta{}); err != nil {
		t.Errorf("Expected limit to lift after window, got %v", err)
	}
}

func TestSupersedePriorChallenges(t *testing.T) {
	_, challenges, _ := newTestStores(t)
	config := testConfig()
	issuer := da.NewIssuer(challenges, config)
	verifier := da.NewVerifier(challenges, config)
	ctx := context.Background()

	first, _, err := issuer.RequestChallenge(ctx, "9876543210", da.MethodOTP, da.ClientMeta{})
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	second, secondCode, err := issuer.RequestChallenge(ctx, "9876543210", da.MethodOTP, da.ClientMeta{})
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}

	// The first challenge is dead regardless of the code presented
	if _, err := verifier.VerifyOTP(ctx, first.ID, "000000"); !errors.Is(err, da.ErrAlreadyUsed) {
		t.Errorf("Expected superseded challenge to report ErrAlreadyUsed, got %v", err)
	}

	// The newest still verifies
	verified, err := verifier.VerifyOTP(ctx, second.ID, secondCode)
	if err != nil {
		t.Fatalf("Newest challenge should verify: %v", err)
	}
	if verified.Identifier != "9876543210" || verified.Method != da.MethodOTP {
		t.Errorf("Unexpected verified identifier: %+v", verified)
	}
}

package docauth_test

import (
	"context"
	"errors"
	"testing"

	da "github.com/samddir/docauth"
)

func TestResolveCreatesAccount(t *testing.T) {
	accounts, _, _ := newTestStores(t)
	resolver := da.NewResolver(accounts)
	ctx := context.Background()

	verified := &da.VerifiedIdentifier{Identifier: "9876543210", Method: da.MethodOTP}
	account, isNew, wasLinked, err := resolver.Resolve(ctx, verified, da.Profile{Name: "Dr. Rao"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !isNew || wasLinked {
		t.Errorf("Expected a new unlinked account, got isNew=%v wasLinked=%v", isNew, wasLinked)
	}
	if account.Mobile == nil || *account.Mobile != "9876543210" {
		t.Errorf("Expected mobile set on new account, got %v", account.Mobile)
	}
	if !account.SelfRegistered {
		t.Error("Self-created accounts must be marked self_registered")
	}
	if account.Verified {
		t.Error("New accounts must start unverified")
	}
	if account.Name != "Dr. Rao" {
		t.Errorf("Expected profile name carried over, got %q", account.Name)
	}
}

func TestResolveDirectMatch(t *testing.T) {
	accounts, _, _ := newTestStores(t)
	resolver := da.NewResolver(accounts)
	ctx := context.Background()

	verified := &da.VerifiedIdentifier{Identifier: "9876543210", Method: da.MethodOTP}
	first, _, _, err := resolver.Resolve(ctx, verified, da.Profile{})
	if err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}

	second, isNew, wasLinked, err := resolver.Resolve(ctx, verified, da.Profile{})
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if isNew || wasLinked {
		t.Errorf("Expected a direct match, got isNew=%v wasLinked=%v", isNew, wasLinked)
	}
	if second.ID != first.ID {
		t.Errorf("Expected the same account, got %s then %s", first.ID, second.ID)
	}
}

func TestResolveLinksGoogleViaEmail(t *testing.T) {
	accounts, _, _ := newTestStores(t)
	resolver := da.NewResolver(accounts)
	ctx := context.Background()

	// Doctor first logs in with a magic link
	emailLogin := &da.VerifiedIdentifier{Identifier: "doc@example.com", Method: da.MethodMagic}
	original, _, _, err := resolver.Resolve(ctx, emailLogin, da.Profile{})
	if err != nil {
		t.Fatalf("Email resolve failed: %v", err)
	}

	// Later logs in with Google using the same email
	googleLogin := &da.VerifiedIdentifier{Identifier: "google-sub-123", Method: da.MethodGoogle}
	linked, isNew, wasLinked, err := resolver.Resolve(ctx, googleLogin, da.Profile{Email: "doc@example.com"})
	if err != nil {
		t.Fatalf("Google resolve failed: %v", err)
	}
	if isNew || !wasLinked {
		t.Errorf("Expected a link, got isNew=%v wasLinked=%v", isNew, wasLinked)
	}
	if linked.ID != original.ID {
		t.Errorf("Expected link to the email account, got %s want %s", linked.ID, original.ID)
	}
	if linked.GoogleSub == nil || *linked.GoogleSub != "google-sub-123" {
		t.Errorf("Expected google_sub set after linking, got %v", linked.GoogleSub)
	}

	// Subsequent Google logins now match directly
	again, isNew, wasLinked, err := resolver.Resolve(ctx, googleLogin, da.Profile{Email: "doc@example.com"})
	if err != nil {
		t.Fatalf("Repeat google resolve failed: %v", err)
	}
	if isNew || wasLinked || again.ID != original.ID {
		t.Errorf("Expected direct match after linking, got isNew=%v wasLinked=%v id=%s", isNew, wasLinked, again.ID)
	}
}

func TestResolveLinkConflict(t *testing.T) {
	accounts, _, _ := newTestStores(t)
	resolver := da.NewResolver(accounts)
	ctx := context.Background()

	// Account owns the email and is already bound to one Google identity
	emailLogin := &da.VerifiedIdentifier{Identifier: "doc@example.com", Method: da.MethodMagic}
	if _, _, _, err := resolver.Resolve(ctx, emailLogin, da.Profile{}); err != nil {
		t.Fatalf("Email resolve failed: %v", err)
	}
	firstGoogle := &da.VerifiedIdentifier{Identifier: "google-sub-aaa", Method: da.MethodGoogle}
	if _, _, _, err := resolver.Resolve(ctx, firstGoogle, da.Profile{Email: "doc@example.com"}); err != nil {
		t.Fatalf("First google link failed: %v", err)
	}

	// A different Google identity claiming the same email must not steal it
	secondGoogle := &da.VerifiedIdentifier{Identifier: "google-sub-bbb", Method: da.MethodGoogle}
	_, _, _, err := resolver.Resolve(ctx, secondGoogle, da.Profile{Email: "doc@example.com"})
	if !errors.Is(err, da.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	// The original binding is intact
	account, err := accounts.GetByIdentifier(ctx, da.MethodMagic, "doc@example.com")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if account.GoogleSub == nil || *account.GoogleSub != "google-sub-aaa" {
		t.Errorf("Original google_sub was disturbed: %v", account.GoogleSub)
	}
}

func TestResolveNewGoogleAccountKeepsEmail(t *testing.T) {
	accounts, _, _ := newTestStores(t)
	resolver := da.NewResolver(accounts)
	ctx := context.Background()

	googleLogin := &da.VerifiedIdentifier{Identifier: "google-sub-xyz", Method: da.MethodGoogle}
	account, isNew, _, err := resolver.Resolve(ctx, googleLogin, da.Profile{Name: "Dr. Iyer", Email: "iyer@example.com"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !isNew {
		t.Error("Expected a new account")
	}
	if account.Email == nil || *account.Email != "iyer@example.com" {
		t.Errorf("Expected profile email stored on new account, got %v", account.Email)
	}
	if account.IsComplete() {
		t.Error("Account without a mobile must be incomplete")
	}
}

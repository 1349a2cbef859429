//go:build !wasm
// +build !wasm

package gorm_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	da "github.com/samddir/docauth"
	gormstore "github.com/samddir/docauth/stores/gorm"
)

func newStores(t *testing.T) (*gormstore.AccountStore, *gormstore.ChallengeStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "store-test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Serialize connections so concurrent writes surface constraint errors
	// instead of SQLITE_BUSY.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	accounts, err := gormstore.NewAccountStore(db)
	if err != nil {
		t.Fatalf("Failed to create account store: %v", err)
	}
	challenges, err := gormstore.NewChallengeStore(db)
	if err != nil {
		t.Fatalf("Failed to create challenge store: %v", err)
	}
	return accounts, challenges
}

func strptr(s string) *string { return &s }

func TestAccountCRUD(t *testing.T) {
	accounts, _ := newStores(t)
	ctx := context.Background()

	account := &da.Account{
		ID:     uuid.NewString(),
		Mobile: strptr("9876543210"),
		Name:   "Dr. Rao",
	}
	if err := accounts.Create(ctx, account); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := accounts.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Dr. Rao" || got.Mobile == nil || *got.Mobile != "9876543210" {
		t.Errorf("Round trip mismatch: %+v", got)
	}

	got.Specialty = "Cardiology"
	if err := accounts.Save(ctx, got); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err = accounts.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID after save failed: %v", err)
	}
	if got.Specialty != "Cardiology" {
		t.Errorf("Expected saved specialty, got %q", got.Specialty)
	}

	if _, err := accounts.GetByID(ctx, "missing"); !errors.Is(err, da.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetByIdentifier(t *testing.T) {
	accounts, _ := newStores(t)
	ctx := context.Background()

	account := &da.Account{
		ID:        uuid.NewString(),
		Mobile:    strptr("9876543210"),
		Email:     strptr("doc@example.com"),
		GoogleSub: strptr("sub-1"),
	}
	if err := accounts.Create(ctx, account); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tests := []struct {
		method     da.Method
		identifier string
	}{
		{da.MethodOTP, "9876543210"},
		{da.MethodMagic, "doc@example.com"},
		{da.MethodGoogle, "sub-1"},
	}
	for _, tt := range tests {
		got, err := accounts.GetByIdentifier(ctx, tt.method, tt.identifier)
		if err != nil {
			t.Errorf("GetByIdentifier(%s, %s) failed: %v", tt.method, tt.identifier, err)
			continue
		}
		if got.ID != account.ID {
			t.Errorf("GetByIdentifier(%s) returned wrong account", tt.method)
		}
	}

	if _, err := accounts.GetByIdentifier(ctx, da.MethodOTP, "9000000000"); !errors.Is(err, da.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUniqueIdentifiers(t *testing.T) {
	accounts, _ := newStores(t)
	ctx := context.Background()

	first := &da.Account{ID: uuid.NewString(), Mobile: strptr("9876543210")}
	if err := accounts.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Same mobile again must conflict
	dup := &da.Account{ID: uuid.NewString(), Mobile: strptr("9876543210")}
	if err := accounts.Create(ctx, dup); !errors.Is(err, da.ErrConflict) {
		t.Fatalf("Expected ErrConflict for duplicate mobile, got %v", err)
	}

	// Multiple accounts with no mobile at all are fine
	for i := 0; i < 3; i++ {
		a := &da.Account{ID: uuid.NewString(), Email: strptr(uuid.NewString() + "@example.com")}
		if err := accounts.Create(ctx, a); err != nil {
			t.Fatalf("Create with nil mobile %d failed: %v", i, err)
		}
	}

	// Save cannot steal an identifier either
	other := &da.Account{ID: uuid.NewString(), Email: strptr("other@example.com")}
	if err := accounts.Create(ctx, other); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	other.Mobile = strptr("9876543210")
	if err := accounts.Save(ctx, other); !errors.Is(err, da.ErrConflict) {
		t.Errorf("Expected ErrConflict when saving a taken mobile, got %v", err)
	}
}

func TestConcurrentCreateSameIdentifier(t *testing.T) {
	accounts, _ := newStores(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := &da.Account{ID: uuid.NewString(), Mobile: strptr("9876543210")}
			results <- accounts.Create(ctx, a)
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, da.ErrConflict):
			conflicts++
		default:
			t.Fatalf("Unexpected error from concurrent create: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("Expected exactly one winner and one conflict, got ok=%d conflicts=%d", ok, conflicts)
	}
}

func newChallenge(identifier string, method da.Method, age time.Duration) *da.Challenge {
	now := time.Now().Add(-age)
	return &da.Challenge{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Method:     method,
		SecretHash: uuid.NewString(),
		ExpiresAt:  now.Add(5 * time.Minute),
		CreatedAt:  now,
	}
}

func TestCountRecent(t *testing.T) {
	_, challenges := newStores(t)
	ctx := context.Background()

	for _, age := range []time.Duration{0, 10 * time.Minute, 2 * time.Hour} {
		if err := challenges.Create(ctx, newChallenge("9876543210", da.MethodOTP, age)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	// Different method and identifier should not count
	if err := challenges.Create(ctx, newChallenge("9876543210", da.MethodMagic, 0)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := challenges.Create(ctx, newChallenge("9000000000", da.MethodOTP, 0)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	count, err := challenges.CountRecent(ctx, "9876543210", da.MethodOTP, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountRecent failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 recent challenges, got %d", count)
	}
}

func TestGetByTokenHash(t *testing.T) {
	_, challenges := newStores(t)
	ctx := context.Background()

	ch := newChallenge("doc@example.com", da.MethodMagic, 0)
	ch.SecretHash = da.HashToken("the-token")
	if err := challenges.Create(ctx, ch); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := challenges.GetByTokenHash(ctx, da.HashToken("the-token"))
	if err != nil {
		t.Fatalf("GetByTokenHash failed: %v", err)
	}
	if got.ID != ch.ID {
		t.Errorf("Got challenge %s, want %s", got.ID, ch.ID)
	}

	if _, err := challenges.GetByTokenHash(ctx, da.HashToken("wrong")); !errors.Is(err, da.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSupersede(t *testing.T) {
	_, challenges := newStores(t)
	ctx := context.Background()

	older := newChallenge("9876543210", da.MethodOTP, time.Minute)
	other := newChallenge("9000000000", da.MethodOTP, time.Minute)
	for _, ch := range []*da.Challenge{older, other} {
		if err := challenges.Create(ctx, ch); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if err := challenges.Supersede(ctx, "9876543210", da.MethodOTP); err != nil {
		t.Fatalf("Supersede failed: %v", err)
	}

	got, err := challenges.GetByID(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Used {
		t.Error("Expected superseded challenge marked used")
	}
	got, err = challenges.GetByID(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Used {
		t.Error("Supersede must not touch other identifiers")
	}
}

func TestPurgeExpired(t *testing.T) {
	_, challenges := newStores(t)
	ctx := context.Background()

	stale := newChallenge("9876543210", da.MethodOTP, 48*time.Hour)
	fresh := newChallenge("9876543210", da.MethodOTP, 0)
	for _, ch := range []*da.Challenge{stale, fresh} {
		if err := challenges.Create(ctx, ch); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	n, err := challenges.PurgeExpired(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged challenge, got %d", n)
	}

	if _, err := challenges.GetByID(ctx, stale.ID); !errors.Is(err, da.ErrNotFound) {
		t.Errorf("Expected stale challenge gone, got %v", err)
	}
	if _, err := challenges.GetByID(ctx, fresh.ID); err != nil {
		t.Errorf("Fresh challenge should survive: %v", err)
	}
}

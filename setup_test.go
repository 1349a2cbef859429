package docauth_test

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	da "github.com/samddir/docauth"
	gormstore "github.com/samddir/docauth/stores/gorm"
)

// newTestDB opens a throwaway SQLite database for one test
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "docauth-test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db
}

// newTestStores creates gorm-backed stores on a fresh database
func newTestStores(t *testing.T) (*gormstore.AccountStore, *gormstore.ChallengeStore, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	accounts, err := gormstore.NewAccountStore(db)
	if err != nil {
		t.Fatalf("Failed to create account store: %v", err)
	}
	challenges, err := gormstore.NewChallengeStore(db)
	if err != nil {
		t.Fatalf("Failed to create challenge store: %v", err)
	}
	return accounts, challenges, db
}

// testConfig returns a config with a fixed secret for deterministic tokens
func testConfig() *da.Config {
	config := &da.Config{
		JWTSecretKey: "test-secret-key-for-testing-only",
		JWTIssuer:    "docauth-test",
		BaseURL:      "http://localhost:8080",
	}
	config.EnsureDefaults()
	return config
}

//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	da "github.com/samddir/docauth"
)

// AutoMigrate runs database migrations for all docauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&ChallengeModel{},
	)
}

// isDuplicateKey reports whether an error is a uniqueness violation. GORM
// only translates these for some drivers, so fall back to matching the
// sqlite and postgres message text.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// =============================================================================
// AccountStore
// =============================================================================

// AccountStore implements da.AccountStore using GORM
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) (*AccountStore, error) {
	if err := db.AutoMigrate(&AccountModel{}); err != nil {
		return nil, err
	}
	return &AccountStore{db: db}, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*da.Account, error) {
	var model AccountModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, da.ErrNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetByIdentifier(ctx context.Context, method da.Method, identifier string) (*da.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).
		First(&model, identifierColumn(method)+" = ?", identifier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, da.ErrNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) Create(ctx context.Context, account *da.Account) error {
	if err := s.db.WithContext(ctx).Create(AccountToModel(account)).Error; err != nil {
		if isDuplicateKey(err) {
			return da.ErrConflict
		}
		return err
	}
	return nil
}

func (s *AccountStore) Save(ctx context.Context, account *da.Account) error {
	if err := s.db.WithContext(ctx).Save(AccountToModel(account)).Error; err != nil {
		if isDuplicateKey(err) {
			return da.ErrConflict
		}
		return err
	}
	return nil
}

// identifierColumn maps a method to the account column it verifies
func identifierColumn(method da.Method) string {
	switch method {
	case da.MethodOTP:
		return "mobile"
	case da.MethodMagic:
		return "email"
	default:
		return "google_sub"
	}
}

// =============================================================================
// ChallengeStore
// =============================================================================

// ChallengeStore implements da.ChallengeStore using GORM
type ChallengeStore struct {
	db *gorm.DB
}

func NewChallengeStore(db *gorm.DB) (*ChallengeStore, error) {
	if err := db.AutoMigrate(&ChallengeModel{}); err != nil {
		return nil, err
	}
	return &ChallengeStore{db: db}, nil
}

func (s *ChallengeStore) Create(ctx context.Context, ch *da.Challenge) error {
	return s.db.WithContext(ctx).Create(ChallengeToModel(ch)).Error
}

func (s *ChallengeStore) GetByID(ctx context.Context, id string) (*da.Challenge, error) {
	var model ChallengeModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, da.ErrNotFound
		}
		return nil, err
	}
	return model.ToChallenge(), nil
}

func (s *ChallengeStore) GetByTokenHash(ctx context.Context, hash string) (*da.Challenge, error) {
	var model ChallengeModel
	if err := s.db.WithContext(ctx).First(&model, "secret_hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, da.ErrNotFound
		}
		return nil, err
	}
	return model.ToChallenge(), nil
}

func (s *ChallengeStore) CountRecent(ctx context.Context, identifier string, method da.Method, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ChallengeModel{}).
		Where("identifier = ? AND method = ? AND created_at >= ?", identifier, string(method), since).
		Count(&count).Error
	return count, err
}

func (s *ChallengeStore) Save(ctx context.Context, ch *da.Challenge) error {
	return s.db.WithContext(ctx).Save(ChallengeToModel(ch)).Error
}

func (s *ChallengeStore) Supersede(ctx context.Context, identifier string, method da.Method) error {
	return s.db.WithContext(ctx).Model(&ChallengeModel{}).
		Where("identifier = ? AND method = ? AND used = ?", identifier, string(method), false).
		Update("used", true).Error
}

func (s *ChallengeStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&ChallengeModel{})
	return result.RowsAffected, result.Error
}

package docauth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

// Profile carries optional details known about the caller at resolution
// time: registration form fields, or identity attributes from a Google
// token. Email and Mobile here let a login via one method attach to an
// account found via another.
type Profile struct {
	Name            string
	Degree          string
	Specialty       string
	ExperienceYears int
	Area            string
	City            string
	ClinicName      string
	Email           string
	Mobile          string
}

// Resolver maps a verified identifier to an account: matching directly,
// linking to an account found through a secondary identifier, or creating a
// new self-registered account.
type Resolver struct {
	Accounts AccountStore
}

// NewResolver creates a Resolver backed by the given store
func NewResolver(accounts AccountStore) *Resolver {
	return &Resolver{Accounts: accounts}
}

// Resolve finds or creates the account owning the verified identifier.
//
// Lookup order: direct match on the method's own column; then by the
// profile's email; then by the profile's mobile; then a fresh account.
// Linking an identifier onto an account that already holds a different
// value for it fails with ErrConflict, as does losing a create race to a
// concurrent request for the same identifier.
func (r *Resolver) Resolve(ctx context.Context, verified *VerifiedIdentifier, profile Profile) (account *Account, isNew bool, wasLinked bool, err error) {
	account, err = r.Accounts.GetByIdentifier(ctx, verified.Method, verified.Identifier)
	if err == nil {
		return account, false, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, false, err
	}

	// No direct owner. Try to attach to an account reachable through a
	// secondary identifier before creating a duplicate.
	if profile.Email != "" && verified.Method != MethodMagic {
		account, err = r.Accounts.GetByIdentifier(ctx, MethodMagic, profile.Email)
		if err == nil {
			if err := r.link(ctx, account, verified); err != nil {
				return nil, false, false, err
			}
			return account, false, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, false, err
		}
	}
	if profile.Mobile != "" && verified.Method != MethodOTP {
		account, err = r.Accounts.GetByIdentifier(ctx, MethodOTP, profile.Mobile)
		if err == nil {
			if err := r.link(ctx, account, verified); err != nil {
				return nil, false, false, err
			}
			return account, false, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, false, err
		}
	}

	account = r.newAccount(verified, profile)
	if err := r.Accounts.Create(ctx, account); err != nil {
		return nil, false, false, err
	}
	log.Printf("Created account %s via %s", account.ID, verified.Method)
	return account, true, false, nil
}

// link sets the verified identifier on an existing account. Refuses to
// overwrite a different value already on the account.
func (r *Resolver) link(ctx context.Context, account *Account, verified *VerifiedIdentifier) error {
	slot := identifierSlot(account, verified.Method)
	if *slot != nil && **slot != verified.Identifier {
		return ErrConflict
	}
	if *slot != nil {
		return nil
	}
	value := verified.Identifier
	*slot = &value
	if err := r.Accounts.Save(ctx, account); err != nil {
		return err
	}
	log.Printf("Linked %s identifier to account %s", verified.Method, account.ID)
	return nil
}

func (r *Resolver) newAccount(verified *VerifiedIdentifier, profile Profile) *Account {
	now := time.Now()
	account := &Account{
		ID:              uuid.NewString(),
		Name:            profile.Name,
		Degree:          profile.Degree,
		Specialty:       profile.Specialty,
		ExperienceYears: profile.ExperienceYears,
		Area:            profile.Area,
		City:            profile.City,
		ClinicName:      profile.ClinicName,
		SelfRegistered:  true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	value := verified.Identifier
	slot := identifierSlot(account, verified.Method)
	*slot = &value
	if profile.Email != "" && account.Email == nil {
		email := profile.Email
		account.Email = &email
	}
	if profile.Mobile != "" && account.Mobile == nil {
		mobile := profile.Mobile
		account.Mobile = &mobile
	}
	return account
}

// identifierSlot returns the account field a method's identifier lives in
func identifierSlot(account *Account, method Method) **string {
	switch method {
	case MethodOTP:
		return &account.Mobile
	case MethodMagic:
		return &account.Email
	default:
		return &account.GoogleSub
	}
}

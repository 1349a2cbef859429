//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	da "github.com/samddir/docauth"
)

// AccountModel is the GORM model for doctor accounts. Identifier columns
// are pointers so unset values store as NULL, which the unique indexes
// treat as distinct.
type AccountModel struct {
	ID        string  `gorm:"primaryKey;size:64"`
	Mobile    *string `gorm:"size:20;uniqueIndex"`
	Email     *string `gorm:"size:255;uniqueIndex"`
	GoogleSub *string `gorm:"size:64;uniqueIndex"`

	Name            string `gorm:"size:255"`
	Degree          string `gorm:"size:128"`
	Specialty       string `gorm:"size:128"`
	ExperienceYears int
	Area            string `gorm:"size:128"`
	City            string `gorm:"size:128"`
	ClinicName      string `gorm:"size:255"`

	Verified       bool `gorm:"default:false"`
	SelfRegistered bool `gorm:"default:false"`

	LastLoginAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "doctors"
}

func (m *AccountModel) ToAccount() *da.Account {
	return &da.Account{
		ID:              m.ID,
		Mobile:          m.Mobile,
		Email:           m.Email,
		GoogleSub:       m.GoogleSub,
		Name:            m.Name,
		Degree:          m.Degree,
		Specialty:       m.Specialty,
		ExperienceYears: m.ExperienceYears,
		Area:            m.Area,
		City:            m.City,
		ClinicName:      m.ClinicName,
		Verified:        m.Verified,
		SelfRegistered:  m.SelfRegistered,
		LastLoginAt:     m.LastLoginAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func AccountToModel(a *da.Account) *AccountModel {
	return &AccountModel{
		ID:              a.ID,
		Mobile:          a.Mobile,
		Email:           a.Email,
		GoogleSub:       a.GoogleSub,
		Name:            a.Name,
		Degree:          a.Degree,
		Specialty:       a.Specialty,
		ExperienceYears: a.ExperienceYears,
		Area:            a.Area,
		City:            a.City,
		ClinicName:      a.ClinicName,
		Verified:        a.Verified,
		SelfRegistered:  a.SelfRegistered,
		LastLoginAt:     a.LastLoginAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// ChallengeModel is the GORM model for pending challenges
type ChallengeModel struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Identifier string    `gorm:"size:255;index:idx_challenge_recent,priority:1"`
	Method     string    `gorm:"size:16;index:idx_challenge_recent,priority:2"`
	SecretHash string    `gorm:"size:128;index"`
	ExpiresAt  time.Time `gorm:"index"`
	Used       bool      `gorm:"default:false"`
	Attempts   int       `gorm:"default:0"`
	IPAddress  string    `gorm:"size:64"`
	UserAgent  string    `gorm:"size:512"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_challenge_recent,priority:3"`
}

func (ChallengeModel) TableName() string {
	return "auth_sessions"
}

func (m *ChallengeModel) ToChallenge() *da.Challenge {
	return &da.Challenge{
		ID:         m.ID,
		Identifier: m.Identifier,
		Method:     da.Method(m.Method),
		SecretHash: m.SecretHash,
		ExpiresAt:  m.ExpiresAt,
		Used:       m.Used,
		Attempts:   m.Attempts,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}
}

func ChallengeToModel(c *da.Challenge) *ChallengeModel {
	return &ChallengeModel{
		ID:         c.ID,
		Identifier: c.Identifier,
		Method:     string(c.Method),
		SecretHash: c.SecretHash,
		ExpiresAt:  c.ExpiresAt,
		Used:       c.Used,
		Attempts:   c.Attempts,
		IPAddress:  c.IPAddress,
		UserAgent:  c.UserAgent,
		CreatedAt:  c.CreatedAt,
	}
}

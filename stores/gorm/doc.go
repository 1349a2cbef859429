//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the docauth store
// interfaces. It supports any database that GORM supports (PostgreSQL,
// MySQL, SQLite, etc.).
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - doctors: Doctor accounts with unique mobile/email/google_sub columns
//   - auth_sessions: Pending OTP and magic-link challenges
//
// Identifier uniqueness lives in database constraints, so concurrent
// account creation for the same identifier fails with docauth.ErrConflict
// for the loser rather than producing duplicates.
//
// # Usage
//
//	db, _ := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
//	accounts, _ := gormstore.NewAccountStore(db)
//	challenges, _ := gormstore.NewChallengeStore(db)
package gorm

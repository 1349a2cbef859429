// Package docauth implements passwordless authentication for a doctor
// directory: OTP over WhatsApp/SMS, magic links over email, and Google
// sign-in, all resolving to a single doctor account.
//
// # Architecture
//
// Account: A doctor record. Each of its identifiers (mobile, email, Google
// subject) is unique across accounts when set, and a single account can hold
// all three.
//
// Challenge: A pending verification issued to an identifier. Only a hash of
// the secret is stored; OTPs are bcrypt-hashed and looked up by challenge id,
// magic-link tokens are SHA-256 hashed with the hash as the lookup key.
//
// Session tokens are HS256 JWTs: a 24 hour "full" session for complete
// accounts, or a 1 hour "completion" token that only authorizes finishing
// registration when the account still lacks a mobile number.
//
// # Basic Usage
//
// Set up gorm-backed stores and the service:
//
//	import (
//	    "github.com/samddir/docauth"
//	    gormstores "github.com/samddir/docauth/stores/gorm"
//	)
//
//	accounts, _ := gormstores.NewAccountStore(db)
//	challenges, _ := gormstores.NewChallengeStore(db)
//
//	config := &docauth.Config{BaseURL: "https://directory.example.com"}
//	svc := docauth.NewService(accounts, challenges, notifier, config)
//	http.ListenAndServe(":8080", svc.Handler())
//
// The notify package provides production Notifier implementations (mTalkz
// WhatsApp/SMS gateway, SMTP email); docauth.ConsoleNotifier logs secrets
// for development.
//
// # Security
//
// Challenges expire (5 minutes for OTPs, 15 for magic links), are single
// use, allow at most 3 wrong codes, and are superseded by newer requests.
// Each identifier may request at most 3 challenges per hour. Identifier
// uniqueness is enforced by database constraints, so concurrent logins for
// the same identifier converge on one account.
package docauth

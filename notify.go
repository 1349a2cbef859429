package docauth

import (
	"context"
	"log"
)

// Notifier delivers challenge secrets to their owners. Implementations must
// return an error when delivery fails so the caller can surface it instead
// of leaving the user waiting for a code that never arrives.
type Notifier interface {
	// SendOTP delivers a one-time code to a mobile number
	SendOTP(ctx context.Context, mobile, code string) error

	// SendMagicLink delivers a login link to an email address
	SendMagicLink(ctx context.Context, email, link string) error
}

// ConsoleNotifier logs secrets instead of sending them. Development only.
type ConsoleNotifier struct{}

func (ConsoleNotifier) SendOTP(ctx context.Context, mobile, code string) error {
	log.Printf("=== OTP for %s: %s ===", mobile, code)
	return nil
}

func (ConsoleNotifier) SendMagicLink(ctx context.Context, email, link string) error {
	log.Printf("=== Magic link for %s: %s ===", email, link)
	return nil
}

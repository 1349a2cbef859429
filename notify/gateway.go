package notify

import (
	"context"
	"errors"
)

// Gateway composes an SMS/WhatsApp client and an email sender into a single
// docauth.Notifier. A nil channel rejects sends for that method so a
// misconfigured deployment fails loudly instead of dropping secrets.
type Gateway struct {
	SMS   *MTalkzClient
	Email EmailSender
}

func (g *Gateway) SendOTP(ctx context.Context, mobile, code string) error {
	if g.SMS == nil {
		return errors.New("sms gateway not configured")
	}
	return g.SMS.SendOTP(ctx, mobile, code)
}

func (g *Gateway) SendMagicLink(ctx context.Context, email, link string) error {
	if g.Email == nil {
		return errors.New("email sender not configured")
	}
	return g.Email.SendMagicLink(ctx, email, link)
}

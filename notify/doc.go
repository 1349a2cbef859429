// Package notify provides production delivery channels for docauth
// challenges: OTPs over the mTalkz WhatsApp/SMS gateway and magic links
// over SMTP email. Gateway composes them into a docauth.Notifier.
package notify

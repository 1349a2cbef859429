package docauth

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the core flows. HTTP handlers map these to
// status codes; callers embedding the library can match with errors.Is.
var (
	// ErrNotFound means no challenge (or account) matched the lookup.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyUsed means the challenge was consumed by an earlier verification.
	ErrAlreadyUsed = errors.New("challenge already used")

	// ErrExpired means the challenge exists but its expiry has passed.
	ErrExpired = errors.New("challenge expired")

	// ErrLocked means the challenge hit the attempt limit.
	ErrLocked = errors.New("too many attempts")

	// ErrMismatch means the presented secret did not match. Use AsMismatch to
	// recover the remaining attempt count.
	ErrMismatch = errors.New("incorrect code")

	// ErrRateLimited means the identifier asked for too many challenges in the window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrConflict means an identifier is already owned by a different account.
	ErrConflict = errors.New("identifier belongs to another account")

	// ErrDeliveryFailed means the outbound notifier could not deliver the secret.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrTokenExpired means a session token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid means a session token failed signature or claim checks.
	ErrTokenInvalid = errors.New("token invalid")
)

// MismatchError wraps ErrMismatch with the number of attempts the caller has left.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("incorrect code, %d attempts remaining", e.Remaining)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// AsMismatch extracts a MismatchError from an error chain.
func AsMismatch(err error) (*MismatchError, bool) {
	var me *MismatchError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// ErrCode identifies an error category in API responses
type ErrCode string

const (
	ErrCodeInvalidRequest ErrCode = "invalid_request"
	ErrCodeNotFound       ErrCode = "not_found"
	ErrCodeAlreadyUsed    ErrCode = "already_used"
	ErrCodeExpired        ErrCode = "expired"
	ErrCodeLocked         ErrCode = "locked"
	ErrCodeMismatch       ErrCode = "incorrect_code"
	ErrCodeRateLimited    ErrCode = "rate_limited"
	ErrCodeConflict       ErrCode = "conflict"
	ErrCodeDelivery       ErrCode = "delivery_failed"
	ErrCodeUnauthorized   ErrCode = "unauthorized"
	ErrCodeServerError    ErrCode = "server_error"
)

// AuthError carries a machine-readable code and optional offending field
type AuthError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Field   string  `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAuthError creates an AuthError with the given code and message
func NewAuthError(code ErrCode, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

package docauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// Service wires the auth flows behind an HTTP API. All fields except Session
// and Google are required; Google login returns an error response when no
// verifier is configured.
type Service struct {
	Accounts   AccountStore
	Challenges ChallengeStore
	Issuer     *Issuer
	Verifier   *Verifier
	Resolver   *Resolver
	Tokens     *TokenIssuer
	Notifier   Notifier
	Google     GoogleTokenVerifier

	// Session, when set, records the logged-in account id in a server-side
	// session cookie alongside the bearer token. Used by the browser
	// magic-link landing flow.
	Session *scs.SessionManager

	Config *Config
}

// NewService assembles a Service from a config and its backing stores
func NewService(accounts AccountStore, challenges ChallengeStore, notifier Notifier, config *Config) *Service {
	if config == nil {
		config = &Config{}
	}
	config.EnsureDefaults()
	svc := &Service{
		Accounts:   accounts,
		Challenges: challenges,
		Issuer:     NewIssuer(challenges, config),
		Verifier:   NewVerifier(challenges, config),
		Resolver:   NewResolver(accounts),
		Tokens:     NewTokenIssuer(config),
		Notifier:   notifier,
		Config:     config,
	}
	if config.GoogleClientID != "" {
		svc.Google = NewGoogleVerifier(config.GoogleClientID)
	}
	return svc
}

// Handler returns the HTTP handler for all auth endpoints, rooted at /api/auth
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/request-otp", s.handleRequestOTP).Methods(http.MethodPost)
	api.HandleFunc("/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	api.HandleFunc("/request-magic-link", s.handleRequestMagicLink).Methods(http.MethodPost)
	api.HandleFunc("/verify-magic-link", s.handleVerifyMagicLink).Methods(http.MethodGet)
	api.HandleFunc("/google-login", s.handleGoogleLogin).Methods(http.MethodPost)

	mw := &Middleware{Tokens: s.Tokens}
	completion := api.NewRoute().Subrouter()
	completion.Use(mw.RequireToken(ScopeFull, ScopeCompletion))
	completion.HandleFunc("/complete-registration", s.handleCompleteRegistration).Methods(http.MethodPost)

	full := api.NewRoute().Subrouter()
	full.Use(mw.RequireToken(ScopeFull))
	full.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	if s.Session != nil {
		return s.Session.LoadAndSave(r)
	}
	return r
}

type requestOTPRequest struct {
	Mobile string `json:"mobile"`
}

// handleRequestOTP issues an OTP challenge and delivers the code
func (s *Service) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	mobile := NormalizeMobile(req.Mobile)
	if mobile == "" {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "A valid mobile number is required")
		return
	}

	ch, code, err := s.Issuer.RequestChallenge(r.Context(), mobile, MethodOTP, clientMeta(r))
	if err != nil {
		s.flowError(w, err)
		return
	}
	if err := s.Notifier.SendOTP(r.Context(), mobile, code); err != nil {
		log.Printf("Error delivering OTP to %s: %v", mobile, err)
		s.errorResponse(w, http.StatusBadGateway, ErrCodeDelivery, "Could not deliver the code, please try again")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"challenge_id": ch.ID,
		"expires_in":   int(time.Until(ch.ExpiresAt).Seconds()),
	})
}

type verifyOTPRequest struct {
	ChallengeID string `json:"challenge_id"`
	OTP         string `json:"otp"`
	Mobile      string `json:"mobile,omitempty"`
}

// handleVerifyOTP checks the code and logs the caller in
func (s *Service) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	if req.ChallengeID == "" || req.OTP == "" {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "challenge_id and otp are required")
		return
	}

	// When the client echoes the mobile back, it must be the one the
	// challenge was issued for.
	if req.Mobile != "" {
		ch, err := s.Challenges.GetByID(r.Context(), req.ChallengeID)
		if err != nil {
			s.flowError(w, err)
			return
		}
		if NormalizeMobile(req.Mobile) != ch.Identifier {
			s.errorResponse(w, http.StatusBadRequest, ErrCodeNotFound, "Invalid or unknown challenge")
			return
		}
	}

	verified, err := s.Verifier.VerifyOTP(r.Context(), req.ChallengeID, req.OTP)
	if err != nil {
		s.flowError(w, err)
		return
	}
	s.loginResponse(w, r, verified, Profile{})
}

type requestMagicLinkRequest struct {
	Email string `json:"email"`
}

// handleRequestMagicLink issues a magic-link challenge and emails the link
func (s *Service) handleRequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req requestMagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "A valid email address is required")
		return
	}

	_, token, err := s.Issuer.RequestChallenge(r.Context(), email, MethodMagic, clientMeta(r))
	if err != nil {
		s.flowError(w, err)
		return
	}
	link := fmt.Sprintf("%s/api/auth/verify-magic-link?token=%s",
		strings.TrimSuffix(s.Config.BaseURL, "/"), url.QueryEscape(token))
	if err := s.Notifier.SendMagicLink(r.Context(), email, link); err != nil {
		log.Printf("Error delivering magic link to %s: %v", email, err)
		s.errorResponse(w, http.StatusBadGateway, ErrCodeDelivery, "Could not send the login link, please try again")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Login link sent",
	})
}

// handleVerifyMagicLink consumes a magic-link token and logs the caller in
func (s *Service) handleVerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "token is required")
		return
	}

	verified, err := s.Verifier.VerifyMagicToken(r.Context(), token)
	if err != nil {
		s.flowError(w, err)
		return
	}
	s.loginResponse(w, r, verified, Profile{})
}

type googleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// handleGoogleLogin verifies a Google ID token and logs the caller in
func (s *Service) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		s.errorResponse(w, http.StatusInternalServerError, ErrCodeServerError, "Google login not configured")
		return
	}
	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "id_token is required")
		return
	}

	guser, err := s.Google.VerifyIDToken(r.Context(), req.IDToken)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid Google token")
		return
	}

	verified := &VerifiedIdentifier{Identifier: guser.Sub, Method: MethodGoogle}
	profile := Profile{Name: guser.Name}
	if guser.EmailVerified {
		profile.Email = strings.ToLower(guser.Email)
	}
	s.loginResponse(w, r, verified, profile)
}

type completeRegistrationRequest struct {
	Name            string `json:"name"`
	Degree          string `json:"degree,omitempty"`
	Specialty       string `json:"specialty"`
	ExperienceYears int    `json:"experience_years,omitempty"`
	Area            string `json:"area,omitempty"`
	City            string `json:"city,omitempty"`
	ClinicName      string `json:"clinic_name,omitempty"`
	Mobile          string `json:"mobile,omitempty"`
}

// handleCompleteRegistration fills in the profile of a partially registered
// account and upgrades a completion token to a full session.
func (s *Service) handleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	accountID := AccountIDFromContext(r.Context())
	account, err := s.Accounts.GetByID(r.Context(), accountID)
	if err != nil {
		s.flowError(w, err)
		return
	}

	var req completeRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.Specialty) == "" {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "specialty is required")
		return
	}

	account.Name = strings.TrimSpace(req.Name)
	account.Specialty = strings.TrimSpace(req.Specialty)
	if req.Degree != "" {
		account.Degree = req.Degree
	}
	if req.ExperienceYears > 0 {
		account.ExperienceYears = req.ExperienceYears
	}
	if req.Area != "" {
		account.Area = req.Area
	}
	if req.City != "" {
		account.City = req.City
	}
	if req.ClinicName != "" {
		account.ClinicName = req.ClinicName
	}
	if req.Mobile != "" {
		mobile := NormalizeMobile(req.Mobile)
		if mobile == "" {
			s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "A valid mobile number is required")
			return
		}
		if account.Mobile != nil && *account.Mobile != mobile {
			s.errorResponse(w, http.StatusConflict, ErrCodeConflict, "Mobile number does not match the verified one")
			return
		}
		account.Mobile = &mobile
	}
	if !account.IsComplete() {
		s.errorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, "A mobile number is required to complete registration")
		return
	}

	account.UpdatedAt = time.Now()
	if err := s.Accounts.Save(r.Context(), account); err != nil {
		s.flowError(w, err)
		return
	}

	token, err := s.Tokens.Issue(account.ID, ScopeFull)
	if err != nil {
		log.Printf("Error issuing session token: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, ErrCodeServerError, "Failed to create session")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"token":   token,
		"scope":   string(ScopeFull),
		"account": account,
	})
}

// handleMe returns the authenticated account
func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	account, err := s.Accounts.GetByID(r.Context(), AccountIDFromContext(r.Context()))
	if err != nil {
		s.flowError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"account": account})
}

// loginResponse resolves the verified identifier to an account, stamps the
// login time and issues the appropriate token: a full session for complete
// accounts, a short-lived completion token otherwise.
func (s *Service) loginResponse(w http.ResponseWriter, r *http.Request, verified *VerifiedIdentifier, profile Profile) {
	account, isNew, _, err := s.Resolver.Resolve(r.Context(), verified, profile)
	if err != nil {
		s.flowError(w, err)
		return
	}

	now := time.Now()
	account.LastLoginAt = &now
	account.UpdatedAt = now
	if err := s.Accounts.Save(r.Context(), account); err != nil {
		log.Printf("Error recording login for account %s: %v", account.ID, err)
	}

	scope := ScopeFull
	if !account.IsComplete() {
		scope = ScopeCompletion
	}
	token, err := s.Tokens.Issue(account.ID, scope)
	if err != nil {
		log.Printf("Error issuing session token: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, ErrCodeServerError, "Failed to create session")
		return
	}

	if s.Session != nil && scope == ScopeFull {
		s.Session.Put(r.Context(), "account_id", account.ID)
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"token":                 token,
		"scope":                 string(scope),
		"is_new":                isNew,
		"registration_complete": account.IsComplete(),
		"account":               account,
	})
}

// flowError maps core flow errors onto HTTP responses
func (s *Service) flowError(w http.ResponseWriter, err error) {
	var ae *AuthError
	if errors.As(err, &ae) {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":   string(ae.Code),
			"message": ae.Message,
			"field":   ae.Field,
		})
		return
	}
	if me, ok := AsMismatch(err); ok {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]any{
			"error":              string(ErrCodeMismatch),
			"message":            "Incorrect code",
			"remaining_attempts": me.Remaining,
		})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		s.errorResponse(w, http.StatusBadRequest, ErrCodeNotFound, "Invalid or unknown challenge")
	case errors.Is(err, ErrAlreadyUsed):
		s.errorResponse(w, http.StatusBadRequest, ErrCodeAlreadyUsed, "This code or link was already used")
	case errors.Is(err, ErrExpired):
		s.errorResponse(w, http.StatusBadRequest, ErrCodeExpired, "This code or link has expired, request a new one")
	case errors.Is(err, ErrLocked):
		s.errorResponse(w, http.StatusBadRequest, ErrCodeLocked, "Too many incorrect attempts, request a new code")
	case errors.Is(err, ErrRateLimited):
		s.errorResponse(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests, try again later")
	case errors.Is(err, ErrConflict):
		s.errorResponse(w, http.StatusConflict, ErrCodeConflict, "This identifier belongs to another account")
	default:
		log.Printf("Internal error in auth flow: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, ErrCodeServerError, "Something went wrong")
	}
}

func (s *Service) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Service) errorResponse(w http.ResponseWriter, status int, code ErrCode, message string) {
	s.jsonResponse(w, status, map[string]any{
		"error":   string(code),
		"message": message,
	})
}

func clientMeta(r *http.Request) ClientMeta {
	return ClientMeta{IPAddress: getClientIP(r), UserAgent: r.UserAgent()}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if colonIdx := strings.LastIndex(ip, ":"); colonIdx != -1 {
		ip = ip[:colonIdx]
	}
	return ip
}

// NormalizeMobile strips separators and reduces an Indian mobile number to
// its 10 digit form. Returns "" when the input cannot be a valid number.
func NormalizeMobile(raw string) string {
	var digits strings.Builder
	for _, c := range strings.TrimSpace(raw) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 10:
	case len(d) == 11 && d[0] == '0':
		d = d[1:]
	case len(d) == 12 && strings.HasPrefix(d, "91"):
		d = d[2:]
	default:
		return ""
	}
	if d[0] < '6' {
		return ""
	}
	return d
}

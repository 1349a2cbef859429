// Package oauth implements the browser redirect flow for Google sign-in,
// for clients that cannot obtain an ID token themselves. The callback hands
// the verified Google identity to the configured HandleUser function, which
// typically resolves it to an account and issues a session.
package oauth

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	da "github.com/samddir/docauth"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// HandleUserFunc receives the verified Google user at the end of the flow
type HandleUserFunc func(user *da.GoogleUser, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

// GoogleFlow drives the redirect + callback dance against Google
type GoogleFlow struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	HandleUser   HandleUserFunc
	FailureURL   string // Where to send the browser on failure, defaults to "/"

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

// NewGoogleFlow creates a flow, falling back to OAUTH2_GOOGLE_* env vars
// for unset credentials.
func NewGoogleFlow(clientID, clientSecret, callbackURL string, handleUser HandleUserFunc) *GoogleFlow {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackURL == "" {
		callbackURL = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	out := &GoogleFlow{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		CallbackURL:  callbackURL,
		HandleUser:   handleUser,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
	out.mux.HandleFunc("/callback", out.handleCallback)
	out.mux.HandleFunc("/", out.handleRedirect)
	return out
}

// ServeHTTP lets the flow be mounted under a path prefix, e.g.
// http.StripPrefix("/auth/google", flow)
func (g *GoogleFlow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// handleRedirect sends the browser to Google with a fresh state cookie
func (g *GoogleFlow) handleRedirect(w http.ResponseWriter, r *http.Request) {
	state := setStateCookie(w)
	http.Redirect(w, r, g.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

// handleCallback validates the state, exchanges the code and extracts the
// Google identity from the userinfo endpoint.
func (g *GoogleFlow) handleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, _ := r.Cookie(stateCookieName)
	if stateCookie == nil || r.FormValue("state") != stateCookie.Value {
		clearStateCookie(w)
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	clearStateCookie(w)

	token, err := g.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Printf("Google code exchange failed: %v", err)
		g.fail(w, r)
		return
	}

	user, err := fetchGoogleUser(token)
	if err != nil {
		log.Printf("Google userinfo fetch failed: %v", err)
		g.fail(w, r)
		return
	}
	g.HandleUser(user, token, w, r)
}

func (g *GoogleFlow) fail(w http.ResponseWriter, r *http.Request) {
	target := g.FailureURL
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// fetchGoogleUser pulls the profile behind the access token
func fetchGoogleUser(token *oauth2.Token) (*da.GoogleUser, error) {
	resp, err := http.Get(googleUserInfoURL + "?access_token=" + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed reading user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed parsing user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("userinfo missing subject")
	}
	return &da.GoogleUser{
		Sub:           info.ID,
		Email:         info.Email,
		Name:          info.Name,
		Picture:       info.Picture,
		EmailVerified: info.VerifiedEmail,
	}, nil
}

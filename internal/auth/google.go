package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// DefaultRedirectPath is where a successful sign-in lands without a usable state.
const DefaultRedirectPath = "/dashboard"

// ErrOAuthNotConfigured is returned when client credentials are missing.
var ErrOAuthNotConfigured = errors.New("google oauth is not configured")

// GoogleProfile is the part of the userinfo response the app uses.
type GoogleProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleOAuth runs the authorization code flow against Google.
type GoogleOAuth struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleOAuth builds the flow. Empty credentials produce a disabled flow.
func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: GoogleUserInfoURL,
	}
}

// WithEndpoints points the flow at other token and userinfo URLs.
func (g *GoogleOAuth) WithEndpoints(authURL, tokenURL, userInfoURL string) *GoogleOAuth {
	g.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	g.userInfoURL = userInfoURL
	return g
}

// Enabled reports whether client credentials are present.
func (g *GoogleOAuth) Enabled() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthCodeURL returns the consent page URL carrying state.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for the user's Google profile.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	if !g.Enabled() {
		return nil, ErrOAuthNotConfigured
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Email == "" {
		return nil, errors.New("userinfo has no email")
	}
	if profile.Name == "" {
		profile.Name = "Google User"
	}
	return &profile, nil
}

type oauthState struct {
	Redirect string `json:"redirect,omitempty"`
	Nonce    string `json:"nonce"`
}

// NewOAuthState encodes the post-login redirect and a random nonce as
// base64url JSON. The same value is kept in a cookie and compared on callback.
func NewOAuthState(redirect string) (string, error) {
	raw, err := json.Marshal(oauthState{Redirect: redirect, Nonce: uuid.New().String()})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// RedirectFromState returns the redirect path carried by state when it is a
// safe same-site path, otherwise DefaultRedirectPath.
func RedirectFromState(state string) string {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return DefaultRedirectPath
	}
	var s oauthState
	if err := json.Unmarshal(raw, &s); err != nil {
		return DefaultRedirectPath
	}
	if !SafeRedirectPath(s.Redirect) {
		return DefaultRedirectPath
	}
	return s.Redirect
}

// SafeRedirectPath accepts only absolute paths on this host.
func SafeRedirectPath(p string) bool {
	switch {
	case p == "", !strings.HasPrefix(p, "/"):
		return false
	case strings.HasPrefix(p, "//"), strings.HasPrefix(p, "/\\"):
		return false
	case strings.ContainsAny(p, "\r\n"):
		return false
	}
	return true
}

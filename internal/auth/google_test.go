package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestRedirectFromState(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	cases := []struct {
		state string
		want  string
	}{
		{"", DefaultRedirectPath},
		{"%%%", DefaultRedirectPath},
		{enc(`not json`), DefaultRedirectPath},
		{enc(`{"redirect":"/chat?requestId=1"}`), "/chat?requestId=1"},
		{enc(`{"redirect":"//evil.example"}`), DefaultRedirectPath},
		{enc(`{"redirect":"https://evil.example"}`), DefaultRedirectPath},
		{enc(`{"redirect":"/a\nb"}`), DefaultRedirectPath},
	}
	for _, tc := range cases {
		if got := RedirectFromState(tc.state); got != tc.want {
			t.Errorf("RedirectFromState(%q) = %q, want %q", tc.state, got, tc.want)
		}
	}

	st, err := NewOAuthState("/profile")
	if err != nil {
		t.Fatalf("NewOAuthState failed: %v", err)
	}
	if got := RedirectFromState(st); got != "/profile" {
		t.Fatalf("round trip redirect = %q", got)
	}
	other, _ := NewOAuthState("/profile")
	if other == st {
		t.Fatal("states must carry a fresh nonce")
	}
}

func TestGoogleOAuthExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"Grace@Example.com","picture":"https://img.example/g.png"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := NewGoogleOAuth("client", "secret", "http://localhost/api/auth/google/callback").
		WithEndpoints(srv.URL+"/auth", srv.URL+"/token", srv.URL+"/userinfo")

	if !g.Enabled() {
		t.Fatal("expected flow to be enabled")
	}

	u, err := url.Parse(g.AuthCodeURL("st"))
	if err != nil {
		t.Fatalf("bad auth url: %v", err)
	}
	if u.Query().Get("state") != "st" || !strings.Contains(u.Query().Get("scope"), "email") {
		t.Fatalf("unexpected auth url: %s", u)
	}

	profile, err := g.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if profile.Email != "Grace@Example.com" || profile.Name != "Google User" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := g.Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatal("Exchange succeeded with a rejected code")
	}
}

func TestGoogleOAuthDisabled(t *testing.T) {
	g := NewGoogleOAuth("", "", "")
	if g.Enabled() {
		t.Fatal("expected flow to be disabled")
	}
	if _, err := g.Exchange(context.Background(), "code"); err != ErrOAuthNotConfigured {
		t.Fatalf("expected ErrOAuthNotConfigured, got %v", err)
	}
}

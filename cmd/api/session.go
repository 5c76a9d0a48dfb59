package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/mentorship-hub/internal/auth"
)

const (
	// authCookie carries the session JWT.
	authCookie = "auth-token"
	// stateCookie carries the OAuth state between redirect and callback.
	stateCookie = "oauth-state"
)

// context key type for storing auth claims in context
type authContextKey struct{}

// getClaimsFromContext extracts auth claims from the context, if present.
func getClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	v := ctx.Value(authContextKey{})
	if v == nil {
		return nil, false
	}
	c, ok := v.(*auth.Claims)
	return c, ok
}

// userIDFromContext returns the authenticated user's id.
func userIDFromContext(ctx context.Context) (bson.ObjectID, bool) {
	claims, ok := getClaimsFromContext(ctx)
	if !ok {
		return bson.ObjectID{}, false
	}
	id, err := claims.ObjectID()
	if err != nil {
		return bson.ObjectID{}, false
	}
	return id, true
}

// session attaches verified claims to the request context when the caller
// presents a valid token, either in the auth cookie or as a Bearer
// Authorization header. A stale cookie does not hide a valid header.
// Requests without a valid token pass through anonymously.
func session(j *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var claims *auth.Claims
			for _, token := range sessionTokens(r) {
				if c, err := j.VerifyToken(token); err == nil {
					claims = c
					break
				}
			}
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			// attach claims into context for handlers
			ctx := context.WithValue(r.Context(), authContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionTokens returns the candidate tokens in precedence order: the
// cookie first, then the Bearer header.
func sessionTokens(r *http.Request) []string {
	var tokens []string
	if c, err := r.Cookie(authCookie); err == nil && c.Value != "" {
		tokens = append(tokens, c.Value)
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// requireAuth rejects requests that carry no valid session.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userIDFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PaulBabatuyi/mentorship-hub/internal/auth"
	"github.com/PaulBabatuyi/mentorship-hub/internal/data"
)

// minResetTokenLength rejects obviously truncated reset links early.
const minResetTokenLength = 32

// resetMailTimeout bounds the detached lookup, token write and SMTP send.
const resetMailTimeout = 30 * time.Second

const forgotPasswordReply = "If an account exists with this email, you will receive a reset link."

type registerRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Role      string   `json:"role"`
	Bio       string   `json:"bio"`
	Skills    []string `json:"skills"`
	Interests []string `json:"interests"`
}

// handleRegister validates input, hashes the password, stores the user and
// starts a session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := data.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	exists, err := s.users.UserExists(r.Context(), req.Email)
	if err != nil {
		log.Printf("user exists check failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}

	// Hash password using auth utility
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("hash password failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// the unique index still catches a concurrent registration
	user, err := s.users.CreateUser(r.Context(), &data.User{
		Email:     req.Email,
		Password:  hashed,
		Name:      req.Name,
		Bio:       req.Bio,
		Role:      role,
		Skills:    req.Skills,
		Interests: req.Interests,
	})
	if err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("create user failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !s.startSession(w, user) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin authenticates a user and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	// Lookup user by email
	user, err := s.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, data.ErrNotFound) {
			log.Printf("login lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Verify password
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !s.startSession(w, user) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.clearCookie(w, authCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// startSession issues a token for user and sets the auth cookie. It writes
// the error response itself and reports whether the caller may continue.
func (s *Server) startSession(w http.ResponseWriter, user *data.User) bool {
	token, expiresAt, err := s.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		log.Printf("generate token failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return false
	}
	s.setAuthCookie(w, token, expiresAt)
	return true
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword answers the same way whether or not the account
// exists. The lookup, token hashing and mail run after the response on a
// detached context so response time does not depend on the account either.
// Failures after validation are logged, never reported.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	email := req.Email
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), resetMailTimeout)
		defer cancel()
		if err := s.sendResetLink(ctx, email); err != nil {
			log.Printf("forgot password: %v", err)
		}
	}()
	writeJSON(w, http.StatusOK, map[string]string{"message": forgotPasswordReply})
}

func (s *Server) sendResetLink(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil
		}
		return err
	}

	raw, hash, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	if err := s.tokens.CreateToken(ctx, user.ID, hash, time.Now().Add(auth.ResetTokenTTL)); err != nil {
		return err
	}
	return s.mail.SendPasswordReset(ctx, user.Email, s.appURL+"/reset-password/"+raw)
}

// findResetToken returns the stored token matching raw, or nil when the
// link is malformed, unknown or expired.
func (s *Server) findResetToken(ctx context.Context, raw string) (*data.PasswordResetToken, error) {
	if len(raw) < minResetTokenLength {
		return nil, nil
	}
	tok, err := s.tokens.FindValid(ctx, raw, auth.MatchResetToken)
	if errors.Is(err, data.ErrNotFound) {
		return nil, nil
	}
	return tok, err
}

func (s *Server) handleValidateResetToken(w http.ResponseWriter, r *http.Request) {
	tok, err := s.findResetToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		log.Printf("validate reset token: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": tok != nil})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := s.findResetToken(r.Context(), req.Token)
	if err != nil {
		log.Printf("reset password lookup: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if tok == nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset link. Please request a new one.")
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("hash password failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := s.users.SetPassword(r.Context(), tok.UserID, hashed); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid or expired reset link. Please request a new one.")
			return
		}
		log.Printf("set password failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := s.tokens.DeleteToken(r.Context(), tok.ID); err != nil {
		log.Printf("delete reset token %s: %v", tok.ID.Hex(), err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated. You can log in with your new password."})
}

// handleGoogleLogin redirects to Google's consent screen. The state is kept
// in a short-lived cookie and checked on callback.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.google.Enabled() {
		writeError(w, http.StatusInternalServerError, "Google sign-in is not configured")
		return
	}
	state, err := auth.NewOAuthState(r.URL.Query().Get("redirect"))
	if err != nil {
		log.Printf("oauth state: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.google.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	fail := func(reason string) {
		http.Redirect(w, r, s.appURL+"/login?error=google_"+reason, http.StatusFound)
	}

	q := r.URL.Query()
	if q.Get("error") != "" {
		fail("denied")
		return
	}
	state := q.Get("state")
	c, err := r.Cookie(stateCookie)
	if err != nil || state == "" || c.Value != state {
		fail("state")
		return
	}
	s.clearCookie(w, stateCookie)

	code := q.Get("code")
	if code == "" {
		fail("no_code")
		return
	}
	profile, err := s.google.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("google exchange: %v", err)
		fail("failed")
		return
	}

	user, err := s.findOrCreateGoogleUser(r.Context(), profile)
	if err != nil {
		log.Printf("google user: %v", err)
		fail("failed")
		return
	}

	token, expiresAt, err := s.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		log.Printf("generate token failed: %v", err)
		fail("failed")
		return
	}
	s.setAuthCookie(w, token, expiresAt)
	http.Redirect(w, r, s.appURL+auth.RedirectFromState(state), http.StatusFound)
}

// findOrCreateGoogleUser signs in an existing account by email or creates a
// mentee with an unusable random password.
func (s *Server) findOrCreateGoogleUser(ctx context.Context, p *auth.GoogleProfile) (*data.User, error) {
	user, err := s.users.GetUserByEmail(ctx, p.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	hashed, err := auth.HashPassword(hex.EncodeToString(buf))
	if err != nil {
		return nil, err
	}

	user, err = s.users.CreateUser(ctx, &data.User{
		Email:             p.Email,
		Password:          hashed,
		Name:              p.Name,
		Role:              data.RoleMentee,
		ProfilePictureURL: p.Picture,
	})
	if errors.Is(err, data.ErrDuplicate) {
		// lost a race with a concurrent callback for the same account
		return s.users.GetUserByEmail(ctx, p.Email)
	}
	return user, err
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := userIDFromContext(r.Context())
	user, err := s.users.GetUserByID(r.Context(), uid)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("get profile failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

type updateProfileRequest struct {
	Name              *string   `json:"name"`
	Bio               *string   `json:"bio"`
	Role              *string   `json:"role"`
	Skills            *[]string `json:"skills"`
	Interests         *[]string `json:"interests"`
	ProfilePictureURL *string   `json:"profilePictureUrl"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upd := data.ProfileUpdate{Bio: req.Bio, ProfilePictureURL: req.ProfilePictureURL}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		upd.Name = &name
	}
	if req.Role != nil {
		role, err := data.ParseRole(*req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		upd.Role = &role
	}
	if req.Skills != nil {
		upd.Skills = append([]string{}, *req.Skills...)
	}
	if req.Interests != nil {
		upd.Interests = append([]string{}, *req.Interests...)
	}

	uid, _ := userIDFromContext(r.Context())
	user, err := s.users.UpdateProfile(r.Context(), uid, upd)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("update profile failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, _ := userIDFromContext(r.Context())
	if err := s.mentorship.DeleteAccount(r.Context(), uid); err != nil {
		writeServiceError(w, err, "Failed to delete account")
		return
	}
	s.clearCookie(w, authCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (s *Server) handleListMentors(w http.ResponseWriter, r *http.Request) {
	mentors, err := s.users.ListMentors(r.Context(), r.URL.Query().Get("skill"))
	if err != nil {
		log.Printf("list mentors failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch mentors")
		return
	}
	out := make([]data.PublicProfile, 0, len(mentors))
	for _, m := range mentors {
		p := m.Public()
		p.Email = ""
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"mentors": out})
}

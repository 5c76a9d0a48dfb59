package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL bounds how long an emailed reset link works.
const ResetTokenTTL = time.Hour

// NewResetToken returns a random 32-byte token as hex together with the
// bcrypt hash that gets stored. Only the raw token is ever emailed.
func NewResetToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)

	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return raw, string(h), nil
}

// MatchResetToken reports whether raw is the token behind hash.
func MatchResetToken(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

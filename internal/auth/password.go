package auth

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 8

const passwordSpecials = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// ErrWeakPassword wraps every password policy violation.
var ErrWeakPassword = errors.New("weak password")

type policyError struct{ msg string }

func (e *policyError) Error() string { return e.msg }
func (e *policyError) Unwrap() error { return ErrWeakPassword }

// ValidatePassword enforces the registration password policy: at least eight
// characters with an upper-case letter, a lower-case letter, a digit and a
// special character. The returned error message is safe to show to users.
func ValidatePassword(password string) error {
	if password == "" {
		return &policyError{"Password is required."}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &policyError{"Password must be at least 8 characters."}
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	switch {
	case !upper:
		return &policyError{"Password must contain at least one uppercase letter."}
	case !lower:
		return &policyError{"Password must contain at least one lowercase letter."}
	case !digit:
		return &policyError{"Password must contain at least one number."}
	case !special:
		return &policyError{"Password must contain at least one special character (!@#$%^&* etc.)."}
	}
	return nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	// default cost (10) balances login latency against brute force
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor applied when hashing new credentials.
const DefaultBcryptCost = 12

// HashPassword derives a salted bcrypt hash from the plaintext password.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext password matches the stored
// hash. Any comparison failure counts as a mismatch.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPasswordPolicy enforces the complexity required for new credentials:
// at least 8 characters with one uppercase letter, one lowercase letter and
// one digit. The returned message is safe to show to the client.
func CheckPasswordPolicy(password string) error {
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return errors.New("Password must contain at least one uppercase letter")
	}
	if !lower {
		return errors.New("Password must contain at least one lowercase letter")
	}
	if !digit {
		return errors.New("Password must contain at least one number")
	}
	return nil
}

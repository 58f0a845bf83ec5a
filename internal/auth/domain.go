package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Token errors surfaced by the engine and the revocation ledger.
var (
	ErrTokenInvalid = errors.New("token invalid or expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// User represents a user account.
type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	MiddleName   string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// Profile is the API view of a user account. The credential hash never
// leaves the service layer.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	MiddleName  string     `json:"middle_name"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// Profile returns the API view of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		MiddleName:  u.MiddleName,
		Email:       u.Email,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// BlacklistEntry records a revoked token by its fingerprint.
type BlacklistEntry struct {
	ID            uuid.UUID
	TokenHash     string
	UserID        uuid.UUID
	BlacklistedAt time.Time
	ExpiresAt     time.Time
}

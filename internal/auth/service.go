package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/aegis-auth/aegis/internal/shared"
)

// NormalizeEmail trims and case-folds the address so lookups and the unique
// index agree on a single canonical form.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	FirstName  string
	LastName   string
	MiddleName string
	Email      string
	Password   string
}

// UpdateProfileInput carries optional profile updates. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
	Email      *string
}

// Service wraps authentication business rules: credential handling, token
// issue and the revocation ledger.
type Service struct {
	repo       Repository
	tokens     *TokenEngine
	bcryptCost int
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenEngine, bcryptCost int) *Service {
	return &Service{repo: repo, tokens: tokens, bcryptCost: bcryptCost}
}

// Tokens exposes the token engine for the gate middleware.
func (s *Service) Tokens() *TokenEngine {
	return s.tokens
}

// Register creates a new active account with a hashed credential.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := NormalizeEmail(input.Email)
	taken, err := s.repo.EmailTaken(ctx, email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.ErrAlreadyExists
	}

	hash, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		MiddleName:   input.MiddleName,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login validates credentials and issues an access token. The inactive check
// runs before the password comparison so a deactivated account is reported
// as such even with the wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", shared.ErrAccountInactive
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, "", shared.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.repo.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, "", err
	}
	user.LastLoginAt = &now

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// UserByID loads a user account.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile applies the provided fields to the account. An email change
// is normalized and checked for uniqueness against other accounts first.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.MiddleName != nil {
		user.MiddleName = *input.MiddleName
	}
	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if email != user.Email {
			taken, err := s.repo.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, shared.ErrAlreadyExists
			}
		}
		user.Email = email
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RevokeToken records the token fingerprint in the ledger. The entry expiry
// comes from the token's own exp claim whenever the claims still decode,
// expired tokens included; only a token that no longer decodes at all falls
// back to a conservative full lifetime from now.
func (s *Service) RevokeToken(ctx context.Context, userID uuid.UUID, rawToken string) error {
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokens.Lifetime())
	if claims, err := s.tokens.Decode(rawToken); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.repo.InsertBlacklist(ctx, BlacklistEntry{
		ID:            uuid.New(),
		TokenHash:     Fingerprint(rawToken),
		UserID:        userID,
		BlacklistedAt: now,
		ExpiresAt:     expiresAt,
	})
}

// IsRevoked reports whether the raw token has been blacklisted.
func (s *Service) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	return s.repo.IsBlacklisted(ctx, Fingerprint(rawToken))
}

// DeleteAccount revokes the presented token and soft-deletes the account.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, rawToken string) error {
	if err := s.RevokeToken(ctx, userID, rawToken); err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, userID)
}

// PurgeExpired removes ledger entries already past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, time.Now().UTC())
}

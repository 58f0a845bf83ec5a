package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-auth/aegis/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	InsertBlacklist(ctx context.Context, entry BlacklistEntry) error
	IsBlacklisted(ctx context.Context, tokenHash string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, middle_name, email, password_hash, is_active, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var middle *string
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &middle, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if middle != nil {
		user.MiddleName = *middle
	}
	return &user, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateUser inserts a new account row.
func (r *PGRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, first_name, last_name, middle_name, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.FirstName, user.LastName, nullIfEmpty(user.MiddleName), user.Email, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByEmail fetches a user by normalized email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID fetches a user by ID.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateProfile persists the mutable profile fields and refreshes updated_at.
func (r *PGRepository) UpdateProfile(ctx context.Context, user *User) error {
	err := r.pool.QueryRow(ctx, `UPDATE users SET first_name = $2, last_name = $3, middle_name = $4, email = $5, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		user.ID, user.FirstName, user.LastName, nullIfEmpty(user.MiddleName), user.Email).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// EmailTaken reports whether another account already owns the email.
func (r *PGRepository) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, exclude).Scan(&taken)
	if err != nil {
		return false, err
	}
	return taken, nil
}

// RecordLogin stamps last_login_at.
func (r *PGRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// Deactivate soft-deletes the account.
func (r *PGRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// InsertBlacklist records a revoked token fingerprint. Revoking the same
// token twice is a no-op.
func (r *PGRepository) InsertBlacklist(ctx context.Context, entry BlacklistEntry) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO token_blacklist (id, token_hash, user_id, blacklisted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (token_hash) DO NOTHING`,
		entry.ID, entry.TokenHash, entry.UserID, entry.BlacklistedAt, entry.ExpiresAt)
	return err
}

// IsBlacklisted reports whether the fingerprint is present in the ledger.
func (r *PGRepository) IsBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE token_hash = $1)`, tokenHash).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// PurgeExpired deletes ledger rows whose expiry has passed and returns the
// number of rows removed.
func (r *PGRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)

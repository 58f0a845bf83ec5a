package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates a deactivated or soft-deleted account.
	ErrAccountInactive = errors.New("account inactive")
	// ErrRoleInUse indicates a role still assigned to at least one user.
	ErrRoleInUse = errors.New("role in use")
	// ErrAlreadyAssigned indicates the user already holds the role.
	ErrAlreadyAssigned = errors.New("role already assigned")
)

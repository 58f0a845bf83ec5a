package httpx

import (
	"errors"
	"net/http"

	"github.com/aegis-auth/aegis/internal/shared"
)

// Machine-readable error codes exposed by the API.
const (
	CodeValidationError         = "VALIDATION_ERROR"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeAuthenticationRequired  = "AUTHENTICATION_REQUIRED"
	CodeAuthenticationFailed    = "AUTHENTICATION_FAILED"
	CodeAccountInactive         = "ACCOUNT_INACTIVE"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeNotFound                = "NOT_FOUND"
	CodeAlreadyAssigned         = "ALREADY_ASSIGNED"
	CodeRoleInUse               = "ROLE_IN_USE"
	CodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	CodeInternalError           = "INTERNAL_ERROR"
)

// RespondError maps shared domain errors to API error envelopes. Errors
// without a mapping become an opaque 500 so internals never leak. Uniqueness
// conflicts surface as validation errors, matching how handlers report them
// when they catch the conflict before the write.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, CodeNotFound, "The requested resource was not found.")
	case errors.Is(err, shared.ErrAlreadyExists):
		Error(w, http.StatusBadRequest, CodeValidationError, "Validation error occurred.")
	case errors.Is(err, shared.ErrRoleInUse):
		Error(w, http.StatusBadRequest, CodeRoleInUse, "Role is assigned to one or more users and cannot be deleted.")
	case errors.Is(err, shared.ErrAlreadyAssigned):
		Error(w, http.StatusBadRequest, CodeAlreadyAssigned, "User already has this role.")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, shared.ErrAccountInactive):
		Error(w, http.StatusForbidden, CodeAccountInactive, "Account has been deactivated")
	default:
		Error(w, http.StatusInternalServerError, CodeInternalError, "An internal server error occurred.")
	}
}

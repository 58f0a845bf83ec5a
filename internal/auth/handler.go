package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
	"github.com/aegis-auth/aegis/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	limiter   *LoginLimiter
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, limiter *LoginLimiter) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		limiter:   limiter,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on the provided router. Logout and the
// profile endpoints require an authenticated principal.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.With(h.loginRateLimit).Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/logout", h.handleLogout)
		r.Get("/profile", h.handleProfile)
		r.Patch("/profile", h.handleUpdateProfile)
		r.Delete("/profile", h.handleDeleteAccount)
	})
}

// loginRateLimit applies the per-IP fixed window before login work begins.
func (h *Handler) loginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := httprate.KeyByIP(r)
		if err != nil {
			ip = r.RemoteAddr
		}
		allowed, err := h.limiter.Allow(r.Context(), ip)
		if err != nil {
			h.logger.Warn("login rate limiter", slog.Any("error", err))
		}
		if !allowed {
			httpx.Error(w, http.StatusTooManyRequests, httpx.CodeRateLimitExceeded, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type registerRequest struct {
	FirstName            string `json:"first_name" validate:"required,max=100"`
	LastName             string `json:"last_name" validate:"required,max=100"`
	MiddleName           string `json:"middle_name" validate:"omitempty,max=100"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
		return
	}
	if err := CheckPasswordPolicy(req.Password); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "password", Message: err.Error()})
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "email", Message: "User with this email already exists"})
			return
		}
		h.logger.Error("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, user.Profile())
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	TokenType string  `json:"token_type"`
	ExpiresIn int     `json:"expires_in"`
	User      Profile `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) && !errors.Is(err, shared.ErrAccountInactive) {
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(h.service.Tokens().Lifetime().Seconds()),
		User:      user.Profile(),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	token := shared.TokenFromContext(r.Context())

	if err := h.service.RevokeToken(r.Context(), principal.ID, token); err != nil {
		h.logger.Error("revoke token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	user, err := h.service.UserByID(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, user.Profile())
}

type updateProfileRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,max=100"`
	MiddleName *string `json:"middle_name" validate:"omitempty,max=100"`
	Email      *string `json:"email" validate:"omitempty,email,max=255"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), principal.ID, UpdateProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Email:      req.Email,
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "email", Message: "User with this email already exists"})
			return
		}
		h.logger.Error("update profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, user.Profile())
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	token := shared.TokenFromContext(r.Context())

	if err := h.service.DeleteAccount(r.Context(), principal.ID, token); err != nil {
		h.logger.Error("delete account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Account successfully deleted"})
}

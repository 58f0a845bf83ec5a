package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
	"github.com/aegis-auth/aegis/internal/shared"
)

// Handler exposes the /admin surface: role CRUD, business elements, access
// rules and role assignments. The router mounts it behind the authentication
// gate and the admin membership check.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers admin routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.handleListRoles)
	r.Post("/roles", h.handleCreateRole)
	r.Get("/roles/{id}", h.handleGetRole)
	r.Patch("/roles/{id}", h.handleUpdateRole)
	r.Delete("/roles/{id}", h.handleDeleteRole)

	r.Get("/business-elements", h.handleListElements)

	r.Get("/access-rules", h.handleListRules)
	r.Post("/access-rules", h.handleCreateRule)
	r.Patch("/access-rules/{id}", h.handleUpdateRule)
	r.Delete("/access-rules/{id}", h.handleDeleteRule)

	r.Post("/users/{user_id}/roles", h.handleAssignRole)
	r.Delete("/users/{user_id}/roles/{role_id}", h.handleRemoveRole)
}

func (h *Handler) respondError(w http.ResponseWriter, msg string, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrAlreadyExists) &&
		!errors.Is(err, shared.ErrRoleInUse) && !errors.Is(err, shared.ErrAlreadyAssigned) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func actorID(r *http.Request) uuid.UUID {
	if principal := shared.PrincipalFromContext(r.Context()); principal != nil {
		return principal.ID
	}
	return uuid.Nil
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.respondError(w, "list roles", err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSONList(w, http.StatusOK, roles, len(roles))
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=255"`
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
		return
	}

	role, err := h.service.CreateRole(r.Context(), actorID(r), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "name", Message: "Role with this name already exists"})
			return
		}
		h.respondError(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

type updateRoleRequest struct {
	Description string `json:"description" validate:"required,max=255"`
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
		return
	}

	role, err := h.service.UpdateRole(r.Context(), actorID(r), id, req.Description)
	if err != nil {
		h.respondError(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}
	if err := h.service.DeleteRole(r.Context(), actorID(r), id); err != nil {
		h.respondError(w, "delete role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Role deleted"})
}

func (h *Handler) handleListElements(w http.ResponseWriter, r *http.Request) {
	elements, err := h.service.ListElements(r.Context())
	if err != nil {
		h.respondError(w, "list elements", err)
		return
	}
	if elements == nil {
		elements = []BusinessElement{}
	}
	httpx.JSONList(w, http.StatusOK, elements, len(elements))
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	var filter RuleFilter
	if raw := r.URL.Query().Get("role_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "role_id", Message: "must be a valid UUID"})
			return
		}
		filter.RoleID = &id
	}
	if raw := r.URL.Query().Get("element_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "element_id", Message: "must be a valid UUID"})
			return
		}
		filter.ElementID = &id
	}

	rules, err := h.service.ListRules(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list rules", err)
		return
	}
	if rules == nil {
		rules = []AccessRule{}
	}
	httpx.JSONList(w, http.StatusOK, rules, len(rules))
}

type ruleFlagsRequest struct {
	Read      *bool `json:"read_permission"`
	ReadAll   *bool `json:"read_all_permission"`
	Create    *bool `json:"create_permission"`
	Update    *bool `json:"update_permission"`
	UpdateAll *bool `json:"update_all_permission"`
	Delete    *bool `json:"delete_permission"`
	DeleteAll *bool `json:"delete_all_permission"`
}

func (req ruleFlagsRequest) flags() RuleFlags {
	return RuleFlags{
		Read:      req.Read,
		ReadAll:   req.ReadAll,
		Create:    req.Create,
		Update:    req.Update,
		UpdateAll: req.UpdateAll,
		Delete:    req.Delete,
		DeleteAll: req.DeleteAll,
	}
}

type createRuleRequest struct {
	RoleID    string `json:"role_id" validate:"required,uuid"`
	ElementID string `json:"element_id" validate:"required,uuid"`
	ruleFlagsRequest
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
		return
	}
	roleID, _ := uuid.Parse(req.RoleID)
	elementID, _ := uuid.Parse(req.ElementID)

	rule, err := h.service.CreateRule(r.Context(), actorID(r), roleID, elementID, req.flags())
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "non_field_errors", Message: "Access rule for this role and element already exists"})
			return
		}
		h.respondError(w, "create rule", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rule)
}

func (h *Handler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}
	var req ruleFlagsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}

	rule, err := h.service.UpdateRule(r.Context(), actorID(r), id, req.flags())
	if err != nil {
		h.respondError(w, "update rule", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rule)
}

func (h *Handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}
	if err := h.service.DeleteRule(r.Context(), actorID(r), id); err != nil {
		h.respondError(w, "delete rule", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Access rule deleted"})
}

type assignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required,uuid"`
}

type userRolesResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Roles  []Role    `json:"roles"`
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "user_id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
			httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
		return
	}
	roleID, _ := uuid.Parse(req.RoleID)

	roles, err := h.service.AssignRole(r.Context(), actorID(r), userID, roleID)
	if err != nil {
		h.respondError(w, "assign role", err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSON(w, http.StatusOK, userRolesResponse{UserID: userID, Roles: roles})
}

func (h *Handler) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "user_id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}
	roleID, ok := pathID(r, "role_id")
	if !ok {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
		return
	}

	if err := h.service.RemoveRole(r.Context(), actorID(r), userID, roleID); err != nil {
		h.respondError(w, "remove role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Role removed from user"})
}

package resources

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
	"github.com/aegis-auth/aegis/internal/rbac"
	"github.com/aegis-auth/aegis/internal/shared"
)

// Handler exposes the RBAC-gated mock resource endpoints.
type Handler struct {
	store     *Store
	guard     rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(store *Store, guard rbac.Middleware) *Handler {
	return &Handler{store: store, guard: guard, validator: httpx.NewValidator()}
}

// MountRoutes registers one route group per business element. Every route
// runs behind the per-verb permission check for its element.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, element := range []string{"documents", "projects"} {
		element := element
		r.Route("/"+element, func(r chi.Router) {
			r.Use(h.guard.Require(element))
			r.Get("/", h.list(element))
			r.Post("/", h.create(element))
			r.Get("/{id}", h.get(element))
			r.Put("/{id}", h.update(element))
			r.Delete("/{id}", h.remove(element))
		})
	}
}

func (h *Handler) list(element string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := h.store.List(element)
		httpx.JSONList(w, http.StatusOK, items, len(items))
	}
}

// get serves a single item. Existence is checked by ID, but the permission
// required stays read_all like the list route: the verb mapping does not
// distinguish single-item reads.
func (h *Handler) get(element string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
			return
		}
		item, ok := h.store.Get(element, id)
		if !ok {
			httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
			return
		}
		httpx.JSON(w, http.StatusOK, item)
	}
}

type itemRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (h *Handler) create(element string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req itemRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
			return
		}

		var owner uuid.UUID
		if principal := shared.PrincipalFromContext(r.Context()); principal != nil {
			owner = principal.ID
		}
		httpx.JSON(w, http.StatusCreated, h.store.Add(element, req.Name, owner))
	}
}

func (h *Handler) update(element string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
			return
		}
		var req itemRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.",
				httpx.FieldError{Field: "non_field_errors", Message: "Malformed JSON body"})
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Error(w, http.StatusBadRequest, httpx.CodeValidationError, "Validation error occurred.", httpx.ValidationDetails(err)...)
			return
		}

		item, ok := h.store.Update(element, id, req.Name)
		if !ok {
			httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
			return
		}
		httpx.JSON(w, http.StatusOK, item)
	}
}

func (h *Handler) remove(element string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
			return
		}
		if !h.store.Remove(element, id) {
			httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "The requested resource was not found.")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"message": "Resource deleted"})
	}
}

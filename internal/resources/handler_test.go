package resources_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-auth/aegis/internal/rbac"
	"github.com/aegis-auth/aegis/internal/resources"
	"github.com/aegis-auth/aegis/internal/shared"
	_ "github.com/aegis-auth/aegis/testing"
)

type permRepo struct {
	rbac.Repository
	granted map[rbac.Action]bool
}

func (r *permRepo) HasPermission(ctx context.Context, userID uuid.UUID, element string, action rbac.Action) (bool, error) {
	return r.granted[action], nil
}

func newRouter(t *testing.T, granted map[rbac.Action]bool) (chi.Router, *resources.Store) {
	t.Helper()
	store := resources.NewStore()
	service := rbac.NewService(&permRepo{granted: granted}, nil, nil)
	handler := resources.NewHandler(store, rbac.Middleware{Service: service})
	r := chi.NewRouter()
	r.Route("/resources", handler.MountRoutes)
	return r, store
}

func do(router http.Handler, method, target, body string, principal *shared.Principal) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if principal != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListDocumentsGrantedByReadAll(t *testing.T) {
	router, _ := newRouter(t, map[rbac.Action]bool{rbac.ActionReadAll: true})
	principal := &shared.Principal{ID: uuid.New()}

	rec := do(router, http.MethodGet, "/resources/documents", "", principal)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []resources.Item `json:"data"`
		Meta struct {
			TotalCount int `json:"total_count"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 3)
	assert.Equal(t, 3, body.Meta.TotalCount)
}

func TestDeleteDeniedWithoutFlag(t *testing.T) {
	router, store := newRouter(t, map[rbac.Action]bool{rbac.ActionReadAll: true})
	principal := &shared.Principal{ID: uuid.New()}
	item := store.List("documents")[0]

	rec := do(router, http.MethodDelete, "/resources/documents/"+item.ID.String(), "", principal)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnonymousRejected(t *testing.T) {
	router, _ := newRouter(t, map[rbac.Action]bool{rbac.ActionReadAll: true})

	rec := do(router, http.MethodGet, "/resources/documents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSingleDocument(t *testing.T) {
	router, store := newRouter(t, map[rbac.Action]bool{rbac.ActionReadAll: true})
	principal := &shared.Principal{ID: uuid.New()}
	item := store.List("documents")[0]

	rec := do(router, http.MethodGet, "/resources/documents/"+item.ID.String(), "", principal)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/resources/documents/"+uuid.NewString(), "", principal)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAndUpdateDocument(t *testing.T) {
	router, _ := newRouter(t, map[rbac.Action]bool{
		rbac.ActionCreate:    true,
		rbac.ActionUpdateAll: true,
	})
	principal := &shared.Principal{ID: uuid.New()}

	rec := do(router, http.MethodPost, "/resources/documents", `{"name":"Contract"}`, principal)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data resources.Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, principal.ID, created.Data.OwnerID)

	rec = do(router, http.MethodPut, "/resources/documents/"+created.Data.ID.String(), `{"name":"Contract v2"}`, principal)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/resources/documents", `{"name":""}`, principal)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

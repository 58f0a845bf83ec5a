package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-auth/aegis/internal/shared"
)

func setupMiddleware(t *testing.T) (Middleware, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	return Middleware{Service: NewService(repo, nil, nil)}, repo
}

func requestWithPrincipal(method, target string, id uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := shared.ContextWithPrincipal(req.Context(), &shared.Principal{ID: id})
	return req.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAnonymous(t *testing.T) {
	mw, _ := setupMiddleware(t)

	rec := httptest.NewRecorder()
	mw.Require("documents")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources/documents", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireDeniesWithoutRule(t *testing.T) {
	mw, repo := setupMiddleware(t)
	userID := repo.addUser()

	rec := httptest.NewRecorder()
	mw.Require("documents")(okHandler()).ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/resources/documents", userID))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireGrantsPerVerb(t *testing.T) {
	ctx := context.Background()
	mw, repo := setupMiddleware(t)

	userID := repo.addUser()
	documents := repo.addElement("documents")
	role, err := mw.Service.CreateRole(ctx, uuid.Nil, "reader", "")
	require.NoError(t, err)
	_, err = mw.Service.CreateRule(ctx, uuid.Nil, role.ID, documents.ID, RuleFlags{ReadAll: boolPtr(true)})
	require.NoError(t, err)
	_, err = mw.Service.AssignRole(ctx, uuid.Nil, userID, role.ID)
	require.NoError(t, err)

	handler := mw.Require("documents")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/resources/documents", userID))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Same principal, verb requiring a flag the role does not carry.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithPrincipal(http.MethodDelete, "/resources/documents/1", userID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireFailsClosedWithoutElement(t *testing.T) {
	mw, repo := setupMiddleware(t)
	userID := repo.addUser()

	rec := httptest.NewRecorder()
	mw.Require("")(okHandler()).ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/resources/unknown", userID))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()
	mw, repo := setupMiddleware(t)

	adminID := repo.addUser()
	plainID := repo.addUser()
	role, err := mw.Service.CreateRole(ctx, uuid.Nil, AdminRoleName, "")
	require.NoError(t, err)
	_, err = mw.Service.AssignRole(ctx, uuid.Nil, adminID, role.ID)
	require.NoError(t, err)

	handler := mw.RequireAdmin(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/admin/roles", adminID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithPrincipal(http.MethodGet, "/admin/roles", plainID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/roles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package rbac

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-auth/aegis/internal/shared"
)

type ruleKey struct {
	roleID    uuid.UUID
	elementID uuid.UUID
}

type mockRepository struct {
	roles       map[uuid.UUID]*Role
	rolesByName map[string]uuid.UUID
	elements    map[uuid.UUID]*BusinessElement
	rules       map[uuid.UUID]*AccessRule
	rulePairs   map[ruleKey]uuid.UUID
	assignments map[uuid.UUID]map[uuid.UUID]*UserRole
	users       map[uuid.UUID]bool

	permissionError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[uuid.UUID]*Role),
		rolesByName: make(map[string]uuid.UUID),
		elements:    make(map[uuid.UUID]*BusinessElement),
		rules:       make(map[uuid.UUID]*AccessRule),
		rulePairs:   make(map[ruleKey]uuid.UUID),
		assignments: make(map[uuid.UUID]map[uuid.UUID]*UserRole),
		users:       make(map[uuid.UUID]bool),
	}
}

func (m *mockRepository) addUser() uuid.UUID {
	id := uuid.New()
	m.users[id] = true
	return id
}

func (m *mockRepository) addElement(name string) *BusinessElement {
	el := &BusinessElement{ID: uuid.New(), Name: name}
	m.elements[el.ID] = el
	return el
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	for _, role := range m.roles {
		roles = append(roles, *role)
	}
	return roles, nil
}

func (m *mockRepository) FindRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *role
	return &clone, nil
}

func (m *mockRepository) CreateRole(ctx context.Context, role *Role) error {
	if _, ok := m.rolesByName[role.Name]; ok {
		return shared.ErrAlreadyExists
	}
	clone := *role
	m.roles[role.ID] = &clone
	m.rolesByName[role.Name] = role.ID
	return nil
}

func (m *mockRepository) UpdateRoleDescription(ctx context.Context, id uuid.UUID, description string) (*Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	role.Description = description
	clone := *role
	return &clone, nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	role, ok := m.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.rolesByName, role.Name)
	delete(m.roles, id)
	return nil
}

func (m *mockRepository) RoleAssignedCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	for _, held := range m.assignments {
		if _, ok := held[id]; ok {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) ListElements(ctx context.Context) ([]BusinessElement, error) {
	var elements []BusinessElement
	for _, el := range m.elements {
		elements = append(elements, *el)
	}
	return elements, nil
}

func (m *mockRepository) FindElementByName(ctx context.Context, name string) (*BusinessElement, error) {
	for _, el := range m.elements {
		if el.Name == name {
			clone := *el
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) ListRules(ctx context.Context, filter RuleFilter) ([]AccessRule, error) {
	var rules []AccessRule
	for _, rule := range m.rules {
		if filter.RoleID != nil && rule.RoleID != *filter.RoleID {
			continue
		}
		if filter.ElementID != nil && rule.ElementID != *filter.ElementID {
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func (m *mockRepository) FindRule(ctx context.Context, id uuid.UUID) (*AccessRule, error) {
	rule, ok := m.rules[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *rule
	return &clone, nil
}

func (m *mockRepository) CreateRule(ctx context.Context, rule *AccessRule) error {
	key := ruleKey{roleID: rule.RoleID, elementID: rule.ElementID}
	if _, ok := m.rulePairs[key]; ok {
		return shared.ErrAlreadyExists
	}
	clone := *rule
	m.rules[rule.ID] = &clone
	m.rulePairs[key] = rule.ID
	return nil
}

func (m *mockRepository) UpdateRule(ctx context.Context, rule *AccessRule) error {
	if _, ok := m.rules[rule.ID]; !ok {
		return shared.ErrNotFound
	}
	clone := *rule
	m.rules[rule.ID] = &clone
	return nil
}

func (m *mockRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	rule, ok := m.rules[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.rulePairs, ruleKey{roleID: rule.RoleID, elementID: rule.ElementID})
	delete(m.rules, id)
	return nil
}

func (m *mockRepository) AssignRole(ctx context.Context, assignment *UserRole) error {
	held := m.assignments[assignment.UserID]
	if held == nil {
		held = make(map[uuid.UUID]*UserRole)
		m.assignments[assignment.UserID] = held
	}
	if _, ok := held[assignment.RoleID]; ok {
		return shared.ErrAlreadyAssigned
	}
	clone := *assignment
	held[assignment.RoleID] = &clone
	return nil
}

func (m *mockRepository) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	held := m.assignments[userID]
	if _, ok := held[roleID]; !ok {
		return shared.ErrNotFound
	}
	delete(held, roleID)
	return nil
}

func (m *mockRepository) RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	var roles []Role
	for roleID := range m.assignments[userID] {
		if role, ok := m.roles[roleID]; ok {
			roles = append(roles, *role)
		}
	}
	return roles, nil
}

func (m *mockRepository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return m.users[userID], nil
}

func (m *mockRepository) HasPermission(ctx context.Context, userID uuid.UUID, element string, action Action) (bool, error) {
	if m.permissionError != nil {
		return false, m.permissionError
	}
	for roleID := range m.assignments[userID] {
		for _, rule := range m.rules {
			if rule.RoleID != roleID {
				continue
			}
			el, ok := m.elements[rule.ElementID]
			if !ok || el.Name != element {
				continue
			}
			if rule.Allows(action) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockRepository) HasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error) {
	for roleID := range m.assignments[userID] {
		if role, ok := m.roles[roleID]; ok && role.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

var _ Repository = (*mockRepository)(nil)

func boolPtr(b bool) *bool { return &b }

func TestActionForMethod(t *testing.T) {
	assert.Equal(t, ActionReadAll, ActionForMethod(http.MethodGet))
	assert.Equal(t, ActionCreate, ActionForMethod(http.MethodPost))
	assert.Equal(t, ActionUpdateAll, ActionForMethod(http.MethodPut))
	assert.Equal(t, ActionUpdateAll, ActionForMethod(http.MethodPatch))
	assert.Equal(t, ActionDeleteAll, ActionForMethod(http.MethodDelete))
	assert.Equal(t, Action(""), ActionForMethod("TRACE"))
}

func TestAllowsGrantsOnMatchingFlag(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	userID := repo.addUser()
	documents := repo.addElement("documents")

	role, err := service.CreateRole(ctx, uuid.Nil, "Manager", "Document managers")
	require.NoError(t, err)
	assert.Equal(t, "manager", role.Name)

	_, err = service.CreateRule(ctx, uuid.Nil, role.ID, documents.ID, RuleFlags{ReadAll: boolPtr(true)})
	require.NoError(t, err)
	_, err = service.AssignRole(ctx, uuid.Nil, userID, role.ID)
	require.NoError(t, err)

	principal := &shared.Principal{ID: userID}

	granted, err := service.Allows(ctx, principal, "documents", ActionReadAll)
	require.NoError(t, err)
	assert.True(t, granted)

	// Same element, flag not set on any rule.
	granted, err = service.Allows(ctx, principal, "documents", ActionDeleteAll)
	require.NoError(t, err)
	assert.False(t, granted)

	// Element with no rule configured at all.
	granted, err = service.Allows(ctx, principal, "projects", ActionReadAll)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestAllowsUnionOfRoles(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	userID := repo.addUser()
	documents := repo.addElement("documents")

	reader, err := service.CreateRole(ctx, uuid.Nil, "reader", "")
	require.NoError(t, err)
	writer, err := service.CreateRole(ctx, uuid.Nil, "writer", "")
	require.NoError(t, err)

	_, err = service.CreateRule(ctx, uuid.Nil, reader.ID, documents.ID, RuleFlags{ReadAll: boolPtr(true)})
	require.NoError(t, err)
	_, err = service.CreateRule(ctx, uuid.Nil, writer.ID, documents.ID, RuleFlags{Create: boolPtr(true)})
	require.NoError(t, err)

	_, err = service.AssignRole(ctx, uuid.Nil, userID, reader.ID)
	require.NoError(t, err)
	_, err = service.AssignRole(ctx, uuid.Nil, userID, writer.ID)
	require.NoError(t, err)

	principal := &shared.Principal{ID: userID}

	// The broadest role wins: either role granting the flag is enough.
	granted, err := service.Allows(ctx, principal, "documents", ActionCreate)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = service.Allows(ctx, principal, "documents", ActionReadAll)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestAllowsDeniesAnonymousAndUnknownAction(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMockRepository(), nil, nil)

	granted, err := service.Allows(ctx, nil, "documents", ActionReadAll)
	require.NoError(t, err)
	assert.False(t, granted)

	granted, err = service.Allows(ctx, &shared.Principal{ID: uuid.New()}, "", ActionReadAll)
	require.NoError(t, err)
	assert.False(t, granted)

	granted, err = service.Allows(ctx, &shared.Principal{ID: uuid.New()}, "documents", "")
	require.NoError(t, err)
	assert.False(t, granted)
}

// ctxCheckingRepo fails the permission lookup whenever the context handed to
// it is already done.
type ctxCheckingRepo struct {
	*mockRepository
}

func (r *ctxCheckingRepo) HasPermission(ctx context.Context, userID uuid.UUID, element string, action Action) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return r.mockRepository.HasPermission(ctx, userID, element, action)
}

func TestAllowsSurvivesCallerCancellation(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(&ctxCheckingRepo{mockRepository: repo}, nil, nil)

	userID := repo.addUser()
	documents := repo.addElement("documents")

	role, err := service.CreateRole(ctx, uuid.Nil, "reader", "")
	require.NoError(t, err)
	_, err = service.CreateRule(ctx, uuid.Nil, role.ID, documents.ID, RuleFlags{ReadAll: boolPtr(true)})
	require.NoError(t, err)
	_, err = service.AssignRole(ctx, uuid.Nil, userID, role.ID)
	require.NoError(t, err)

	// The lookup shared through the flight must not die with the request
	// context of whichever caller happened to start it.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	granted, err := service.Allows(cancelled, &shared.Principal{ID: userID}, "documents", ActionReadAll)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	ctx := context.Background()
	service := NewService(newMockRepository(), nil, nil)

	_, err := service.CreateRole(ctx, uuid.Nil, "auditor", "first")
	require.NoError(t, err)

	// Lower-cased before the uniqueness check, so case variants collide.
	_, err = service.CreateRole(ctx, uuid.Nil, "Auditor", "second")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestDeleteRoleInUse(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	userID := repo.addUser()
	role, err := service.CreateRole(ctx, uuid.Nil, "operator", "")
	require.NoError(t, err)
	_, err = service.AssignRole(ctx, uuid.Nil, userID, role.ID)
	require.NoError(t, err)

	err = service.DeleteRole(ctx, uuid.Nil, role.ID)
	assert.ErrorIs(t, err, shared.ErrRoleInUse)

	require.NoError(t, service.RemoveRole(ctx, uuid.Nil, userID, role.ID))
	assert.NoError(t, service.DeleteRole(ctx, uuid.Nil, role.ID))
}

func TestAssignRoleConflictsAndMissingSides(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	userID := repo.addUser()
	role, err := service.CreateRole(ctx, uuid.Nil, "viewer", "")
	require.NoError(t, err)

	roles, err := service.AssignRole(ctx, uuid.Nil, userID, role.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)

	_, err = service.AssignRole(ctx, uuid.Nil, userID, role.ID)
	assert.ErrorIs(t, err, shared.ErrAlreadyAssigned)

	_, err = service.AssignRole(ctx, uuid.Nil, uuid.New(), role.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = service.AssignRole(ctx, uuid.Nil, userID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRuleDuplicatePair(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	documents := repo.addElement("documents")
	role, err := service.CreateRole(ctx, uuid.Nil, "clerk", "")
	require.NoError(t, err)

	_, err = service.CreateRule(ctx, uuid.Nil, role.ID, documents.ID, RuleFlags{Read: boolPtr(true)})
	require.NoError(t, err)

	_, err = service.CreateRule(ctx, uuid.Nil, role.ID, documents.ID, RuleFlags{Create: boolPtr(true)})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestUpdateRulePartialFlags(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	documents := repo.addElement("documents")
	role, err := service.CreateRole(ctx, uuid.Nil, "editor", "")
	require.NoError(t, err)

	rule, err := service.CreateRule(ctx, uuid.Nil, role.ID, documents.ID, RuleFlags{ReadAll: boolPtr(true)})
	require.NoError(t, err)

	updated, err := service.UpdateRule(ctx, uuid.Nil, rule.ID, RuleFlags{UpdateAll: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.ReadAll, "untouched flag must survive a partial update")
	assert.True(t, updated.UpdateAll)
	assert.False(t, updated.DeleteAll)
}

func TestIsAdminMembership(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	service := NewService(repo, nil, nil)

	adminID := repo.addUser()
	plainID := repo.addUser()

	role, err := service.CreateRole(ctx, uuid.Nil, AdminRoleName, "administrators")
	require.NoError(t, err)
	_, err = service.AssignRole(ctx, uuid.Nil, adminID, role.ID)
	require.NoError(t, err)

	isAdmin, err := service.IsAdmin(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = service.IsAdmin(ctx, plainID)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

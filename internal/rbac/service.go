package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/aegis-auth/aegis/internal/shared"
)

// Authorizer answers permission checks for business elements. Handlers
// compose it explicitly instead of relying on framework-level declarations.
type Authorizer interface {
	Allows(ctx context.Context, principal *shared.Principal, element string, action Action) (bool, error)
}

// Service evaluates permissions and manages the role/element/rule reference
// data behind the /admin surface.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
	checks singleflight.Group
}

// NewService constructs a Service. The audit logger may be nil, in which
// case admin mutations are not recorded.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Allows reports whether the principal may perform action on the element.
// Anonymous principals and unknown actions are denied outright; concurrent
// identical checks are collapsed into one store round trip.
func (s *Service) Allows(ctx context.Context, principal *shared.Principal, element string, action Action) (bool, error) {
	if principal == nil || element == "" || action == "" {
		return false, nil
	}
	key := fmt.Sprintf("%s|%s|%s", principal.ID, element, action)
	// The closure outlives the request of whichever caller enters it first;
	// detach from that caller's cancellation so followers sharing the flight
	// don't inherit its deadline.
	lookup := context.WithoutCancel(ctx)
	granted, err, _ := s.checks.Do(key, func() (any, error) {
		return s.repo.HasPermission(lookup, principal.ID, element, action)
	})
	if err != nil {
		return false, err
	}
	return granted.(bool), nil
}

// IsAdmin reports whether the user holds the reserved admin role. This is a
// plain membership test, separate from the access-rule matrix.
func (s *Service) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.repo.HasRole(ctx, userID, AdminRoleName)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	return s.repo.FindRole(ctx, id)
}

// CreateRole inserts a new role. Names are stored lower-cased so the unique
// constraint is case-insensitive.
func (s *Service) CreateRole(ctx context.Context, actor uuid.UUID, name, description string) (*Role, error) {
	role := &Role{
		ID:          uuid.New(),
		Name:        strings.ToLower(strings.TrimSpace(name)),
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	role.UpdatedAt = role.CreatedAt
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "role.create", "role", role.ID.String(), map[string]any{"name": role.Name})
	return role, nil
}

// UpdateRole changes the role description. The name is immutable.
func (s *Service) UpdateRole(ctx context.Context, actor, id uuid.UUID, description string) (*Role, error) {
	role, err := s.repo.UpdateRoleDescription(ctx, id, strings.TrimSpace(description))
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "role.update", "role", id.String(), nil)
	return role, nil
}

// DeleteRole removes a role that no user currently holds.
func (s *Service) DeleteRole(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := s.repo.FindRole(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.RoleAssignedCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrRoleInUse
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "role.delete", "role", id.String(), nil)
	return nil
}

// ListElements returns the seeded business elements.
func (s *Service) ListElements(ctx context.Context) ([]BusinessElement, error) {
	return s.repo.ListElements(ctx)
}

// ListRules returns access rules, optionally filtered by role or element.
func (s *Service) ListRules(ctx context.Context, filter RuleFilter) ([]AccessRule, error) {
	return s.repo.ListRules(ctx, filter)
}

// RuleFlags carries optional permission flag updates. Nil flags are left
// unchanged.
type RuleFlags struct {
	Read      *bool
	ReadAll   *bool
	Create    *bool
	Update    *bool
	UpdateAll *bool
	Delete    *bool
	DeleteAll *bool
}

func (f RuleFlags) apply(rule *AccessRule) {
	if f.Read != nil {
		rule.Read = *f.Read
	}
	if f.ReadAll != nil {
		rule.ReadAll = *f.ReadAll
	}
	if f.Create != nil {
		rule.Create = *f.Create
	}
	if f.Update != nil {
		rule.Update = *f.Update
	}
	if f.UpdateAll != nil {
		rule.UpdateAll = *f.UpdateAll
	}
	if f.Delete != nil {
		rule.Delete = *f.Delete
	}
	if f.DeleteAll != nil {
		rule.DeleteAll = *f.DeleteAll
	}
}

// CreateRule inserts an access rule for a (role, element) pair. Both sides
// must exist; a duplicate pair surfaces as an already-exists conflict.
func (s *Service) CreateRule(ctx context.Context, actor, roleID, elementID uuid.UUID, flags RuleFlags) (*AccessRule, error) {
	if _, err := s.repo.FindRole(ctx, roleID); err != nil {
		return nil, err
	}
	rule := &AccessRule{
		ID:        uuid.New(),
		RoleID:    roleID,
		ElementID: elementID,
		CreatedAt: time.Now().UTC(),
	}
	flags.apply(rule)
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "access_rule.create", "access_rule", rule.ID.String(), map[string]any{
		"role_id":    roleID.String(),
		"element_id": elementID.String(),
	})
	return rule, nil
}

// UpdateRule applies a subset of flag changes to an existing rule.
func (s *Service) UpdateRule(ctx context.Context, actor, id uuid.UUID, flags RuleFlags) (*AccessRule, error) {
	rule, err := s.repo.FindRule(ctx, id)
	if err != nil {
		return nil, err
	}
	flags.apply(rule)
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "access_rule.update", "access_rule", id.String(), nil)
	return rule, nil
}

// DeleteRule removes an access rule.
func (s *Service) DeleteRule(ctx context.Context, actor, id uuid.UUID) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "access_rule.delete", "access_rule", id.String(), nil)
	return nil
}

// AssignRole gives the user a role and returns the user's resulting role
// set. Assigning a role the user already holds is an already-assigned
// conflict.
func (s *Service) AssignRole(ctx context.Context, actor, userID, roleID uuid.UUID) ([]Role, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}
	if _, err := s.repo.FindRole(ctx, roleID); err != nil {
		return nil, err
	}

	assignedBy := &actor
	if actor == uuid.Nil {
		assignedBy = nil
	}
	err = s.repo.AssignRole(ctx, &UserRole{
		ID:         uuid.New(),
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: time.Now().UTC(),
		AssignedBy: assignedBy,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "user_role.assign", "user", userID.String(), map[string]any{"role_id": roleID.String()})
	return s.repo.RolesForUser(ctx, userID)
}

// RemoveRole takes a role away from the user.
func (s *Service) RemoveRole(ctx context.Context, actor, userID, roleID uuid.UUID) error {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.ErrNotFound
	}
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "user_role.remove", "user", userID.String(), map[string]any{"role_id": roleID.String()})
	return nil
}

// RolesForUser returns the roles currently held by the user.
func (s *Service) RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	return s.repo.RolesForUser(ctx, userID)
}

func (s *Service) recordAudit(ctx context.Context, actor uuid.UUID, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

var _ Authorizer = (*Service)(nil)

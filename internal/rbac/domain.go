package rbac

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AdminRoleName is the reserved role granting access to the /admin surface.
const AdminRoleName = "admin"

// Action is a permission flag requested against a business element.
type Action string

// The seven permission flags carried by an access rule.
const (
	ActionRead      Action = "read"
	ActionReadAll   Action = "read_all"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionUpdateAll Action = "update_all"
	ActionDelete    Action = "delete"
	ActionDeleteAll Action = "delete_all"
)

// ActionForMethod maps an HTTP verb to the permission flag it requires. GET
// always maps to read_all, for single-item reads too: the resource handlers
// expose collection-style permissions plus item lookup under the same flag.
// Unknown verbs map to an empty Action, which every check denies.
func ActionForMethod(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead:
		return ActionReadAll
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdateAll
	case http.MethodDelete:
		return ActionDeleteAll
	default:
		return ""
	}
}

// Role groups users under a named permission set. The name is immutable
// after creation; only the description may change.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BusinessElement names a category of protected resource, e.g. "documents".
type BusinessElement struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessRule binds one role to one business element with seven independent
// permission flags. At most one rule exists per (role, element) pair.
type AccessRule struct {
	ID        uuid.UUID `json:"id"`
	RoleID    uuid.UUID `json:"role_id"`
	ElementID uuid.UUID `json:"element_id"`
	Read      bool      `json:"read_permission"`
	ReadAll   bool      `json:"read_all_permission"`
	Create    bool      `json:"create_permission"`
	Update    bool      `json:"update_permission"`
	UpdateAll bool      `json:"update_all_permission"`
	Delete    bool      `json:"delete_permission"`
	DeleteAll bool      `json:"delete_all_permission"`
	CreatedAt time.Time `json:"created_at"`
}

// Allows reports whether the rule grants the action.
func (r AccessRule) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return r.Read
	case ActionReadAll:
		return r.ReadAll
	case ActionCreate:
		return r.Create
	case ActionUpdate:
		return r.Update
	case ActionUpdateAll:
		return r.UpdateAll
	case ActionDelete:
		return r.Delete
	case ActionDeleteAll:
		return r.DeleteAll
	default:
		return false
	}
}

// UserRole records a role assignment with its audit trail.
type UserRole struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	RoleID     uuid.UUID  `json:"role_id"`
	AssignedAt time.Time  `json:"assigned_at"`
	AssignedBy *uuid.UUID `json:"assigned_by"`
}

package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-auth/aegis/internal/shared"
)

// RuleFilter narrows access-rule listings. Nil fields match everything.
type RuleFilter struct {
	RoleID    *uuid.UUID
	ElementID *uuid.UUID
}

// Repository defines persistence operations for the RBAC subsystem.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindRole(ctx context.Context, id uuid.UUID) (*Role, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRoleDescription(ctx context.Context, id uuid.UUID, description string) (*Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	RoleAssignedCount(ctx context.Context, id uuid.UUID) (int64, error)

	ListElements(ctx context.Context) ([]BusinessElement, error)
	FindElementByName(ctx context.Context, name string) (*BusinessElement, error)

	ListRules(ctx context.Context, filter RuleFilter) ([]AccessRule, error)
	FindRule(ctx context.Context, id uuid.UUID) (*AccessRule, error)
	CreateRule(ctx context.Context, rule *AccessRule) error
	UpdateRule(ctx context.Context, rule *AccessRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error

	AssignRole(ctx context.Context, assignment *UserRole) error
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)

	HasPermission(ctx context.Context, userID uuid.UUID, element string, action Action) (bool, error)
	HasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

const roleColumns = `id, name, description, created_at, updated_at`

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// FindRole fetches a role by ID.
func (r *PGRepository) FindRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// CreateRole inserts a new role row.
func (r *PGRepository) CreateRole(ctx context.Context, role *Role) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO roles (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`,
		role.ID, role.Name, role.Description, role.CreatedAt)
	if isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// UpdateRoleDescription changes the description of a role. The name is
// immutable after creation.
func (r *PGRepository) UpdateRoleDescription(ctx context.Context, id uuid.UUID, description string) (*Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `UPDATE roles SET description = $2, updated_at = NOW()
		WHERE id = $1 RETURNING `+roleColumns, id, description))
}

// DeleteRole removes a role row.
func (r *PGRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RoleAssignedCount reports how many users currently hold the role.
func (r *PGRepository) RoleAssignedCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, id).Scan(&count)
	return count, err
}

// ListElements returns all business elements ordered by name.
func (r *PGRepository) ListElements(ctx context.Context) ([]BusinessElement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM business_elements ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var elements []BusinessElement
	for rows.Next() {
		var el BusinessElement
		if err := rows.Scan(&el.ID, &el.Name, &el.Description, &el.CreatedAt); err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// FindElementByName fetches a business element by its unique name.
func (r *PGRepository) FindElementByName(ctx context.Context, name string) (*BusinessElement, error) {
	var el BusinessElement
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at FROM business_elements WHERE name = $1`, name).
		Scan(&el.ID, &el.Name, &el.Description, &el.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &el, nil
}

const ruleColumns = `id, role_id, element_id, read_permission, read_all_permission, create_permission,
	update_permission, update_all_permission, delete_permission, delete_all_permission, created_at`

func scanRule(row pgx.Row) (*AccessRule, error) {
	var rule AccessRule
	err := row.Scan(&rule.ID, &rule.RoleID, &rule.ElementID, &rule.Read, &rule.ReadAll, &rule.Create,
		&rule.Update, &rule.UpdateAll, &rule.Delete, &rule.DeleteAll, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// ListRules returns access rules matching the filter.
func (r *PGRepository) ListRules(ctx context.Context, filter RuleFilter) ([]AccessRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM access_rules WHERE ($1::uuid IS NULL OR role_id = $1)
		AND ($2::uuid IS NULL OR element_id = $2) ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, filter.RoleID, filter.ElementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []AccessRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// FindRule fetches an access rule by ID.
func (r *PGRepository) FindRule(ctx context.Context, id uuid.UUID) (*AccessRule, error) {
	return scanRule(r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM access_rules WHERE id = $1`, id))
}

// CreateRule inserts an access rule. A second rule for the same
// (role, element) pair hits the unique constraint.
func (r *PGRepository) CreateRule(ctx context.Context, rule *AccessRule) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO access_rules (id, role_id, element_id, read_permission,
		read_all_permission, create_permission, update_permission, update_all_permission,
		delete_permission, delete_all_permission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rule.ID, rule.RoleID, rule.ElementID, rule.Read, rule.ReadAll, rule.Create,
		rule.Update, rule.UpdateAll, rule.Delete, rule.DeleteAll, rule.CreatedAt)
	if isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	// A dangling element_id trips the FK constraint.
	if isForeignKeyViolation(err) {
		return shared.ErrNotFound
	}
	return err
}

// UpdateRule persists the permission flags of an existing rule.
func (r *PGRepository) UpdateRule(ctx context.Context, rule *AccessRule) error {
	tag, err := r.pool.Exec(ctx, `UPDATE access_rules SET read_permission = $2, read_all_permission = $3,
		create_permission = $4, update_permission = $5, update_all_permission = $6,
		delete_permission = $7, delete_all_permission = $8 WHERE id = $1`,
		rule.ID, rule.Read, rule.ReadAll, rule.Create, rule.Update, rule.UpdateAll, rule.Delete, rule.DeleteAll)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteRule removes an access rule.
func (r *PGRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole records a role assignment. A duplicate (user, role) pair hits
// the unique constraint.
func (r *PGRepository) AssignRole(ctx context.Context, assignment *UserRole) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (id, user_id, role_id, assigned_at, assigned_by)
		VALUES ($1, $2, $3, $4, $5)`,
		assignment.ID, assignment.UserID, assignment.RoleID, assignment.AssignedAt, assignment.AssignedBy)
	if isUniqueViolation(err) {
		return shared.ErrAlreadyAssigned
	}
	return err
}

// RemoveRole deletes a role assignment.
func (r *PGRepository) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RolesForUser returns the roles held by the user ordered by name.
func (r *PGRepository) RolesForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// UserExists reports whether the user ID refers to an account.
func (r *PGRepository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// actionColumn maps an action to its flag column. Keeping the map explicit
// pins the SQL identifiers so the action string never reaches the query.
var actionColumn = map[Action]string{
	ActionRead:      "read_permission",
	ActionReadAll:   "read_all_permission",
	ActionCreate:    "create_permission",
	ActionUpdate:    "update_permission",
	ActionUpdateAll: "update_all_permission",
	ActionDelete:    "delete_permission",
	ActionDeleteAll: "delete_all_permission",
}

// HasPermission reports whether any role held by the user carries a rule for
// the element with the action flag set. Union over roles: one grant wins.
func (r *PGRepository) HasPermission(ctx context.Context, userID uuid.UUID, element string, action Action) (bool, error) {
	column, ok := actionColumn[action]
	if !ok {
		return false, nil
	}
	var granted bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM access_rules ar
		JOIN business_elements be ON be.id = ar.element_id
		JOIN user_roles ur ON ur.role_id = ar.role_id
		WHERE ur.user_id = $1 AND be.name = $2 AND ar.`+column+` = TRUE
	)`, userID, element).Scan(&granted)
	return granted, err
}

// HasRole reports whether the user holds the named role.
func (r *PGRepository) HasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error) {
	var held bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.name = $2
	)`, userID, roleName).Scan(&held)
	return held, err
}

var _ Repository = (*PGRepository)(nil)

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides persistence for the three override collections.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a permission repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserPermissionSet loads the per-user override matrix, if one exists.
func (r *Repository) UserPermissionSet(ctx context.Context, userID string) (Matrix, bool, error) {
	if r == nil || r.pool == nil {
		return nil, false, fmt.Errorf("authz repo not initialised")
	}
	const query = `SELECT matrix FROM user_permission_sets WHERE user_id = $1`
	return r.queryMatrix(ctx, query, userID)
}

// AgencyPermissionSet loads the per-agency override matrix, if one exists.
func (r *Repository) AgencyPermissionSet(ctx context.Context, tenant TenantID) (Matrix, bool, error) {
	if r == nil || r.pool == nil {
		return nil, false, fmt.Errorf("authz repo not initialised")
	}
	const query = `SELECT matrix FROM agency_permission_sets WHERE agency_id = $1`
	return r.queryMatrix(ctx, query, string(tenant))
}

// RolePermissionSet loads the system-wide default matrix for a role.
func (r *Repository) RolePermissionSet(ctx context.Context, role Role) (Matrix, bool, error) {
	if r == nil || r.pool == nil {
		return nil, false, fmt.Errorf("authz repo not initialised")
	}
	const query = `SELECT matrix FROM role_permission_sets WHERE role = $1`
	return r.queryMatrix(ctx, query, string(role))
}

func (r *Repository) queryMatrix(ctx context.Context, query, key string) (Matrix, bool, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	matrix, err := DecodeMatrix(raw)
	if err != nil {
		return nil, false, err
	}
	return matrix, true, nil
}

// SetRolePermissionSet upserts the default matrix for a role.
func (r *Repository) SetRolePermissionSet(ctx context.Context, role Role, matrix Matrix) error {
	data, err := EncodeMatrix(matrix)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO role_permission_sets (role, matrix, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (role) DO UPDATE SET matrix = EXCLUDED.matrix, updated_at = NOW()`
	_, err = r.pool.Exec(ctx, query, string(role), data)
	return err
}

// SetAgencyPermissionSet upserts the override matrix for a tenant. Rows are
// created lazily on first grant.
func (r *Repository) SetAgencyPermissionSet(ctx context.Context, tenant TenantID, matrix Matrix) error {
	data, err := EncodeMatrix(matrix)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO agency_permission_sets (agency_id, matrix, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (agency_id) DO UPDATE SET matrix = EXCLUDED.matrix, updated_at = NOW()`
	_, err = r.pool.Exec(ctx, query, string(tenant), data)
	return err
}

// SetUserPermissionSet upserts the override matrix for a user.
func (r *Repository) SetUserPermissionSet(ctx context.Context, userID string, matrix Matrix) error {
	data, err := EncodeMatrix(matrix)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO user_permission_sets (user_id, matrix, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET matrix = EXCLUDED.matrix, updated_at = NOW()`
	_, err = r.pool.Exec(ctx, query, userID, data)
	return err
}

// DeleteAgencyPermissionSet removes a tenant override so resolution falls
// through to the role default again.
func (r *Repository) DeleteAgencyPermissionSet(ctx context.Context, tenant TenantID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agency_permission_sets WHERE agency_id = $1`, string(tenant))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

// DeleteUserPermissionSet removes a user override.
func (r *Repository) DeleteUserPermissionSet(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_permission_sets WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

// ErrOverrideNotFound indicates a delete targeted an override that does not exist.
var ErrOverrideNotFound = errors.New("authz: override not found")

var _ Store = (*Repository)(nil)

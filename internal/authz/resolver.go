package authz

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoRolePermissions signals a configuration gap: a role that requires a
// seeded permission set has none. Callers must surface this distinctly from an
// ordinary denial so operators notice missing seed data.
var ErrNoRolePermissions = errors.New("authz: no role permission set defined")

// MissingRolePermissionsError identifies which role is missing its default
// matrix. It matches ErrNoRolePermissions under errors.Is.
type MissingRolePermissionsError struct {
	Role Role
}

func (e *MissingRolePermissionsError) Error() string {
	return fmt.Sprintf("authz: no role permission set defined for role %q", e.Role)
}

func (e *MissingRolePermissionsError) Is(target error) bool {
	return target == ErrNoRolePermissions
}

// Store provides read access to the three override collections. The boolean
// result distinguishes "record absent" from an empty matrix; both are valid
// states with different resolution behavior.
type Store interface {
	UserPermissionSet(ctx context.Context, userID string) (Matrix, bool, error)
	AgencyPermissionSet(ctx context.Context, tenant TenantID) (Matrix, bool, error)
	RolePermissionSet(ctx context.Context, role Role) (Matrix, bool, error)
}

// Resolver computes the effective permission matrix for an actor.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve applies the override layers in precedence order. The first layer
// that has a matrix wins and its matrix is returned wholesale: a user-level
// matrix that omits a module denies that module even when the agency or role
// default would grant it. This whole-matrix-replacement semantic is deliberate
// and must not be changed to a per-cell merge.
func (r *Resolver) Resolve(ctx context.Context, actor Actor) (Matrix, error) {
	if actor.Role == RoleSuperAdmin {
		return AllowAll(), nil
	}

	if matrix, ok, err := r.store.UserPermissionSet(ctx, actor.ID); err != nil {
		return nil, err
	} else if ok {
		return matrix, nil
	}

	if actor.Role.AgencyScoped() && actor.TenantID != "" {
		if matrix, ok, err := r.store.AgencyPermissionSet(ctx, actor.TenantID); err != nil {
			return nil, err
		} else if ok {
			return matrix, nil
		}
	}

	matrix, ok, err := r.store.RolePermissionSet(ctx, actor.Role)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingRolePermissionsError{Role: actor.Role}
	}
	return matrix, nil
}

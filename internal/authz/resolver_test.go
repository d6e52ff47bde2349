package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havencrm/havencrm/internal/authz"
)

type stubStore struct {
	users    map[string]authz.Matrix
	agencies map[authz.TenantID]authz.Matrix
	roles    map[authz.Role]authz.Matrix
	err      error

	userLookups   int
	agencyLookups int
	roleLookups   int
}

func (s *stubStore) UserPermissionSet(ctx context.Context, userID string) (authz.Matrix, bool, error) {
	s.userLookups++
	if s.err != nil {
		return nil, false, s.err
	}
	m, ok := s.users[userID]
	return m, ok, nil
}

func (s *stubStore) AgencyPermissionSet(ctx context.Context, tenant authz.TenantID) (authz.Matrix, bool, error) {
	s.agencyLookups++
	if s.err != nil {
		return nil, false, s.err
	}
	m, ok := s.agencies[tenant]
	return m, ok, nil
}

func (s *stubStore) RolePermissionSet(ctx context.Context, role authz.Role) (authz.Matrix, bool, error) {
	s.roleLookups++
	if s.err != nil {
		return nil, false, s.err
	}
	m, ok := s.roles[role]
	return m, ok, nil
}

func TestResolveSuperAdminNeedsNoRecords(t *testing.T) {
	store := &stubStore{}
	resolver := authz.NewResolver(store)

	matrix, err := resolver.Resolve(context.Background(), authz.Actor{ID: "root", Role: authz.RoleSuperAdmin, Active: true})
	require.NoError(t, err)

	for _, module := range authz.Modules() {
		for _, action := range authz.Actions() {
			assert.True(t, matrix.Allows(module, action), "super_admin should be allowed %s.%s", module, action)
		}
	}
	assert.Zero(t, store.userLookups, "super_admin resolution must not consult the store")
	assert.Zero(t, store.roleLookups)
}

func TestResolveUserLayerReplacesWholeMatrix(t *testing.T) {
	store := &stubStore{
		users: map[string]authz.Matrix{
			"u1": {authz.ModuleLeads: {View: true}},
		},
		roles: map[authz.Role]authz.Matrix{
			authz.RoleAgent: {authz.ModuleProperties: {View: true}},
		},
	}
	resolver := authz.NewResolver(store)
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgent, TenantID: "T1", Active: true}

	matrix, err := resolver.Resolve(context.Background(), actor)
	require.NoError(t, err)

	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionView))
	// No per-cell merge: the role default for properties must not leak through.
	assert.False(t, matrix.Allows(authz.ModuleProperties, authz.ActionView))
}

func TestResolveFallsThroughToRoleDefault(t *testing.T) {
	store := &stubStore{
		roles: map[authz.Role]authz.Matrix{
			authz.RoleAgencyAdmin: {authz.ModuleLeads: authz.AllActions()},
		},
	}
	resolver := authz.NewResolver(store)
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgencyAdmin, TenantID: "T1", Active: true}

	matrix, err := resolver.Resolve(context.Background(), actor)
	require.NoError(t, err)
	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionDelete))
	assert.Equal(t, 1, store.userLookups)
	assert.Equal(t, 1, store.agencyLookups)
	assert.Equal(t, 1, store.roleLookups)
}

func TestResolveAgencyLayerWinsOverRole(t *testing.T) {
	store := &stubStore{
		agencies: map[authz.TenantID]authz.Matrix{
			"T1": {authz.ModuleLeads: {View: true, Create: true, Edit: true, Delete: false}},
		},
		roles: map[authz.Role]authz.Matrix{
			authz.RoleAgencyAdmin: {authz.ModuleLeads: authz.AllActions()},
		},
	}
	resolver := authz.NewResolver(store)
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgencyAdmin, TenantID: "T1", Active: true}

	matrix, err := resolver.Resolve(context.Background(), actor)
	require.NoError(t, err)
	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionEdit))
	assert.False(t, matrix.Allows(authz.ModuleLeads, authz.ActionDelete))
	assert.Zero(t, store.roleLookups, "agency hit must short-circuit the role layer")
}

func TestResolveAgencyLayerSkippedForNonAgencyRole(t *testing.T) {
	store := &stubStore{
		agencies: map[authz.TenantID]authz.Matrix{
			"T1": {authz.ModuleLeads: authz.AllActions()},
		},
		roles: map[authz.Role]authz.Matrix{
			authz.RoleUser: {authz.ModuleProperties: {View: true}},
		},
	}
	resolver := authz.NewResolver(store)
	actor := authz.Actor{ID: "u9", Role: authz.RoleUser, TenantID: "T1", Active: true}

	matrix, err := resolver.Resolve(context.Background(), actor)
	require.NoError(t, err)
	assert.False(t, matrix.Allows(authz.ModuleLeads, authz.ActionView))
	assert.Zero(t, store.agencyLookups, "non-agency-scoped roles never consult the agency layer")
}

func TestResolveMissingRoleDefaultIsConfigurationError(t *testing.T) {
	resolver := authz.NewResolver(&stubStore{})
	actor := authz.Actor{ID: "u1", Role: authz.RoleStaff, TenantID: "T1", Active: true}

	_, err := resolver.Resolve(context.Background(), actor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, authz.ErrNoRolePermissions))

	var missing *authz.MissingRolePermissionsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, authz.RoleStaff, missing.Role)
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	resolver := authz.NewResolver(&stubStore{err: storeErr})
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgent, TenantID: "T1", Active: true}

	_, err := resolver.Resolve(context.Background(), actor)
	require.ErrorIs(t, err, storeErr)
	assert.False(t, errors.Is(err, authz.ErrNoRolePermissions))
}

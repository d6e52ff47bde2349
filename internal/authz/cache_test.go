package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havencrm/havencrm/internal/authz"
)

func newCachedStore(t *testing.T, inner authz.Store) (*authz.CachedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return authz.NewCachedStore(inner, client, time.Minute), mr
}

func TestCachedStoreServesRepeatsFromCache(t *testing.T) {
	inner := &stubStore{
		roles: map[authz.Role]authz.Matrix{
			authz.RoleAgent: {authz.ModuleLeads: {View: true, Create: true}},
		},
	}
	cached, _ := newCachedStore(t, inner)
	ctx := context.Background()

	matrix, ok, err := cached.RolePermissionSet(ctx, authz.RoleAgent)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionView))

	matrix, ok, err = cached.RolePermissionSet(ctx, authz.RoleAgent)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionCreate))
	assert.Equal(t, 1, inner.roleLookups)
}

func TestCachedStoreCachesAbsence(t *testing.T) {
	inner := &stubStore{}
	cached, _ := newCachedStore(t, inner)
	ctx := context.Background()

	for range 3 {
		_, ok, err := cached.UserPermissionSet(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, inner.userLookups)
}

func TestCachedStoreInvalidationForcesReload(t *testing.T) {
	inner := &stubStore{
		agencies: map[authz.TenantID]authz.Matrix{
			"T1": {authz.ModuleProperties: {View: true}},
		},
	}
	cached, _ := newCachedStore(t, inner)
	ctx := context.Background()

	_, ok, err := cached.AgencyPermissionSet(ctx, "T1")
	require.NoError(t, err)
	require.True(t, ok)

	inner.agencies["T1"] = authz.Matrix{authz.ModuleProperties: authz.AllActions()}
	require.NoError(t, cached.InvalidateAgency(ctx, "T1"))

	matrix, ok, err := cached.AgencyPermissionSet(ctx, "T1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, matrix.Allows(authz.ModuleProperties, authz.ActionDelete))
	assert.Equal(t, 2, inner.agencyLookups)
}

func TestCachedStoreInvalidationClearsAbsentMarker(t *testing.T) {
	inner := &stubStore{users: map[string]authz.Matrix{}}
	cached, _ := newCachedStore(t, inner)
	ctx := context.Background()

	_, ok, err := cached.UserPermissionSet(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	inner.users["u1"] = authz.Matrix{authz.ModuleCMS: {Edit: true}}
	require.NoError(t, cached.InvalidateUser(ctx, "u1"))

	matrix, ok, err := cached.UserPermissionSet(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, matrix.Allows(authz.ModuleCMS, authz.ActionEdit))
}

func TestCachedStoreFallsBackWhenRedisDown(t *testing.T) {
	inner := &stubStore{
		roles: map[authz.Role]authz.Matrix{
			authz.RoleStaff: {authz.ModuleInquiries: {View: true}},
		},
	}
	cached, mr := newCachedStore(t, inner)
	mr.Close()

	matrix, ok, err := cached.RolePermissionSet(context.Background(), authz.RoleStaff)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, matrix.Allows(authz.ModuleInquiries, authz.ActionView))
	assert.Equal(t, 1, inner.roleLookups)
}

func TestCachedStoreDropsCorruptEntries(t *testing.T) {
	inner := &stubStore{
		roles: map[authz.Role]authz.Matrix{
			authz.RoleUser: {authz.ModuleLeads: {View: true}},
		},
	}
	cached, mr := newCachedStore(t, inner)
	require.NoError(t, mr.Set("authz:role:user", "{not json"))

	matrix, ok, err := cached.RolePermissionSet(context.Background(), authz.RoleUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionView))
}

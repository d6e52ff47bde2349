package authz_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havencrm/havencrm/internal/authz"
)

func TestTenantIsolationMismatchDenies(t *testing.T) {
	doc := &stubDocument{tenant: "T2"}
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgencyAdmin, TenantID: "T1", Active: true}

	d := authz.CheckTenantIsolation(doc, actor)
	assert.False(t, d.Allow)
	assert.Equal(t, authz.ReasonTenantMismatch, d.Reason)
	assert.Equal(t, authz.TenantID("T2"), d.Context.DocumentTenant)
	assert.Equal(t, authz.TenantID("T1"), d.Context.ActorTenant)
}

func TestTenantIsolationMatchAllows(t *testing.T) {
	doc := &stubDocument{tenant: "T1"}
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgent, TenantID: "T1", Active: true}

	d := authz.CheckTenantIsolation(doc, actor)
	assert.True(t, d.Allow)
	assert.Equal(t, authz.ReasonTenantMatch, d.Reason)
}

func TestTenantIsolationActorWithoutTenantDenied(t *testing.T) {
	doc := &stubDocument{tenant: "T1"}
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgent, Active: true}

	d := authz.CheckTenantIsolation(doc, actor)
	assert.False(t, d.Allow)
	assert.Equal(t, authz.ReasonActorHasNoTenant, d.Reason)
}

func TestTenantIsolationSuperAdminExempt(t *testing.T) {
	doc := &stubDocument{tenant: "T2"}
	actor := authz.Actor{ID: "root", Role: authz.RoleSuperAdmin, Active: true}

	d := authz.CheckTenantIsolation(doc, actor)
	assert.True(t, d.Allow)
	assert.Equal(t, authz.ReasonSuperAdminBypass, d.Reason)
}

func TestTenantIsolationIgnoresModulePermissions(t *testing.T) {
	// A role-layer grant for the module is irrelevant once the tenants differ.
	store := &stubStore{
		roles: map[authz.Role]authz.Matrix{
			authz.RoleAgencyAdmin: {authz.ModuleContactMessages: authz.AllActions()},
		},
	}
	gate := newGate(store)
	actor := authz.Actor{ID: "u1", Role: authz.RoleAgencyAdmin, TenantID: "T1", Active: true}

	moduleDecision, err := gate.Check(context.Background(), actor, authz.ModuleContactMessages, authz.ActionDelete)
	require.NoError(t, err)
	assert.True(t, moduleDecision.Allow)

	doc := &stubDocument{tenant: "T2"}
	tenantDecision := authz.CheckTenantIsolation(doc, actor)
	assert.False(t, tenantDecision.Allow)
	assert.Equal(t, authz.ReasonTenantMismatch, tenantDecision.Reason)
}

func TestTenantRefDecodesRawAndNestedForms(t *testing.T) {
	var ref authz.TenantRef
	require.NoError(t, json.Unmarshal([]byte(`"T1"`), &ref))
	assert.Equal(t, authz.TenantID("T1"), ref.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"T2"}`), &ref))
	assert.Equal(t, authz.TenantID("T2"), ref.ID)

	data, err := json.Marshal(authz.TenantOf("T3"))
	require.NoError(t, err)
	assert.Equal(t, `"T3"`, string(data))
}

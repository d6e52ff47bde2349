package authz

import (
	"encoding/json"
	"fmt"
)

// TenantRef carries a document's owning tenant. Documents sometimes store the
// raw agency id and sometimes a nested agency object; TenantRef normalises
// both to the canonical id during decoding.
type TenantRef struct {
	ID TenantID
}

// TenantOf wraps a raw tenant id.
func TenantOf(id TenantID) TenantRef {
	return TenantRef{ID: id}
}

// UnmarshalJSON accepts either "T1" or {"id":"T1"}.
func (t *TenantRef) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		t.ID = TenantID(raw)
		return nil
	}
	var nested struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("authz: decode tenant ref: %w", err)
	}
	t.ID = TenantID(nested.ID)
	return nil
}

// MarshalJSON always writes the canonical raw-id form.
func (t TenantRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t.ID))
}

// TenantScoped is implemented by documents that belong to a tenant.
type TenantScoped interface {
	OwningTenant() TenantRef
}

// CheckTenantIsolation verifies a document's owning tenant matches the
// actor's. It never consults the module/action matrix and applies in addition
// to the module gate: a module-level allow plus a tenant mismatch is a net
// deny. Both tenant ids travel in the decision context for audit.
func CheckTenantIsolation(doc TenantScoped, actor Actor) Decision {
	if actor.Role == RoleSuperAdmin {
		return Allowed(ReasonSuperAdminBypass)
	}
	if actor.TenantID == "" {
		return Denied(ReasonActorHasNoTenant)
	}
	docTenant := doc.OwningTenant().ID
	if docTenant.String() == actor.TenantID.String() {
		d := Allowed(ReasonTenantMatch)
		d.Context = DecisionContext{DocumentTenant: docTenant, ActorTenant: actor.TenantID}
		return d
	}
	d := Denied(ReasonTenantMismatch)
	d.Context = DecisionContext{DocumentTenant: docTenant, ActorTenant: actor.TenantID}
	return d
}

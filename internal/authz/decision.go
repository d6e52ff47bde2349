package authz

// Reason explains a Decision. The values are stable strings echoed to callers
// and recorded in metrics and audit logs.
type Reason string

const (
	ReasonUnauthenticated        Reason = "unauthenticated"
	ReasonBypass                 Reason = "bypass"
	ReasonGranted                Reason = "granted"
	ReasonNoRolePermissions      Reason = "no_role_permissions_defined"
	ReasonInsufficientPermission Reason = "insufficient_permission"
	ReasonSuperAdminBypass       Reason = "super_admin_bypass"
	ReasonEntryExplicitDeny      Reason = "entry_explicit_deny"
	ReasonEntryExplicitAllow     Reason = "entry_explicit_allow"
	ReasonModulePermissionPassed Reason = "module_permission_passed"
	ReasonActorHasNoTenant       Reason = "actor_has_no_tenant"
	ReasonTenantMatch            Reason = "tenant_match"
	ReasonTenantMismatch         Reason = "tenant_mismatch"
)

// DecisionContext carries the facts behind a decision for diagnostics and
// audit. Granted is the boolean actually found in the matrix cell, useful when
// distinguishing an explicit false from an absent entry is worth logging; it
// is never consulted for authorization.
type DecisionContext struct {
	Module         Module   `json:"module,omitempty"`
	Action         Action   `json:"action,omitempty"`
	Granted        *bool    `json:"granted,omitempty"`
	DocumentTenant TenantID `json:"tenant_of_document,omitempty"`
	ActorTenant    TenantID `json:"tenant_of_actor,omitempty"`
}

// Decision is the outcome of a gate check. A deny is a normal return value,
// not an error.
type Decision struct {
	Allow   bool            `json:"allow"`
	Reason  Reason          `json:"reason"`
	Context DecisionContext `json:"context,omitempty"`
}

// Allowed constructs an allow decision.
func Allowed(reason Reason) Decision {
	return Decision{Allow: true, Reason: reason}
}

// Denied constructs a deny decision.
func Denied(reason Reason) Decision {
	return Decision{Allow: false, Reason: reason}
}

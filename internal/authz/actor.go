package authz

// TenantID identifies an agency, the isolation boundary for agency-scoped
// roles. The empty value means the actor belongs to no tenant.
type TenantID string

func (t TenantID) String() string { return string(t) }

// Actor is the authenticated identity making a request. It is derived per
// request from the identity store and never persisted as-is.
type Actor struct {
	ID       string
	Role     Role
	TenantID TenantID
	Active   bool
}

// Authenticated reports whether the actor represents a live identity.
// Deactivated identities are treated the same as missing credentials.
func (a Actor) Authenticated() bool {
	return a.ID != "" && a.Active
}

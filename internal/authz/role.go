package authz

import "fmt"

// Role is the closed set of roles known to the platform.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAgencyAdmin Role = "agency_admin"
	RoleAgent       Role = "agent"
	RoleStaff       Role = "staff"
	RoleUser        Role = "user"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAgencyAdmin, RoleAgent, RoleStaff, RoleUser}
}

// ParseRole validates a raw role string coming from storage or a credential.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleAgencyAdmin, RoleAgent, RoleStaff, RoleUser:
		return Role(raw), nil
	}
	return "", fmt.Errorf("authz: unknown role %q", raw)
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// AgencyScoped reports whether the role operates inside a tenant boundary.
// Only agency-scoped roles consult the agency override layer during resolution.
func (r Role) AgencyScoped() bool {
	switch r {
	case RoleAgencyAdmin, RoleAgent, RoleStaff:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

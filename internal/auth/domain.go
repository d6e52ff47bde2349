package auth

import (
	"time"

	"github.com/havencrm/havencrm/internal/authz"
)

// Identity represents a stored user account as the identity store sees it.
type Identity struct {
	ID        string
	Email     string
	Role      authz.Role
	AgencyID  authz.TenantID
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor derives the per-request actor view from the identity.
func (i Identity) Actor() authz.Actor {
	return authz.Actor{
		ID:       i.ID,
		Role:     i.Role,
		TenantID: i.AgencyID,
		Active:   i.IsActive,
	}
}

package leads

import (
	"time"

	"github.com/google/uuid"

	"github.com/havencrm/havencrm/internal/authz"
)

// Status tracks where a lead sits in the funnel.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

// Lead is a tenant-scoped sales lead. It carries per-document permission
// overrides set at creation time and editable later by a super_admin.
type Lead struct {
	ID          uuid.UUID
	AgencyID    authz.TenantRef
	Name        string
	Email       string
	Phone       string
	Source      string
	Status      Status
	Message     string
	AssignedTo  string
	Permissions authz.EntryPermissions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwningTenant implements authz.TenantScoped.
func (l *Lead) OwningTenant() authz.TenantRef {
	return l.AgencyID
}

// EntryOverrides implements authz.EntryProtected.
func (l *Lead) EntryOverrides() authz.EntryPermissions {
	return l.Permissions
}

package authz

import (
	"context"
	"log/slog"

	"github.com/havencrm/havencrm/internal/shared"
)

// AdminStore extends Store with the write operations used by the admin API.
type AdminStore interface {
	Store
	SetRolePermissionSet(ctx context.Context, role Role, matrix Matrix) error
	SetAgencyPermissionSet(ctx context.Context, tenant TenantID, matrix Matrix) error
	SetUserPermissionSet(ctx context.Context, userID string, matrix Matrix) error
	DeleteAgencyPermissionSet(ctx context.Context, tenant TenantID) error
	DeleteUserPermissionSet(ctx context.Context, userID string) error
}

// Invalidator drops cached permission records. Implemented by CachedStore.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
	InvalidateAgency(ctx context.Context, tenant TenantID) error
	InvalidateRole(ctx context.Context, role Role) error
}

// ChangeEvent describes a permission record write for outbound notification.
type ChangeEvent struct {
	Layer     string `json:"layer"` // "role", "agency", or "user"
	Key       string `json:"key"`
	ChangedBy string `json:"changed_by"`
}

// Notifier is the outbound message-passing interface callers may invoke after
// a permission write. The core never reads from it.
type Notifier interface {
	PermissionsChanged(ctx context.Context, event ChangeEvent) error
}

// Service orchestrates administrative edits to the three override
// collections: it writes the record, invalidates the cache synchronously, and
// only then emits audit and notification events.
type Service struct {
	store    AdminStore
	cache    Invalidator
	notifier Notifier
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs a Service. cache, notifier, and audit may be nil.
func NewService(store AdminStore, cache Invalidator, notifier Notifier, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, notifier: notifier, audit: audit, logger: logger}
}

// RolePermissionSet returns the stored default matrix for a role.
func (s *Service) RolePermissionSet(ctx context.Context, role Role) (Matrix, bool, error) {
	return s.store.RolePermissionSet(ctx, role)
}

// AgencyPermissionSet returns the stored override for a tenant.
func (s *Service) AgencyPermissionSet(ctx context.Context, tenant TenantID) (Matrix, bool, error) {
	return s.store.AgencyPermissionSet(ctx, tenant)
}

// UserPermissionSet returns the stored override for a user.
func (s *Service) UserPermissionSet(ctx context.Context, userID string) (Matrix, bool, error) {
	return s.store.UserPermissionSet(ctx, userID)
}

// SetRolePermissionSet replaces the default matrix for a role.
func (s *Service) SetRolePermissionSet(ctx context.Context, actor Actor, role Role, matrix Matrix) error {
	if err := s.store.SetRolePermissionSet(ctx, role, matrix); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateRole(ctx, role); err != nil {
			return err
		}
	}
	s.afterWrite(ctx, actor, ChangeEvent{Layer: "role", Key: string(role), ChangedBy: actor.ID})
	return nil
}

// SetAgencyPermissionSet creates or replaces a tenant override.
func (s *Service) SetAgencyPermissionSet(ctx context.Context, actor Actor, tenant TenantID, matrix Matrix) error {
	if err := s.store.SetAgencyPermissionSet(ctx, tenant, matrix); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAgency(ctx, tenant); err != nil {
			return err
		}
	}
	s.afterWrite(ctx, actor, ChangeEvent{Layer: "agency", Key: string(tenant), ChangedBy: actor.ID})
	return nil
}

// SetUserPermissionSet creates or replaces a user override.
func (s *Service) SetUserPermissionSet(ctx context.Context, actor Actor, userID string, matrix Matrix) error {
	if err := s.store.SetUserPermissionSet(ctx, userID, matrix); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, userID); err != nil {
			return err
		}
	}
	s.afterWrite(ctx, actor, ChangeEvent{Layer: "user", Key: userID, ChangedBy: actor.ID})
	return nil
}

// DeleteAgencyPermissionSet removes a tenant override.
func (s *Service) DeleteAgencyPermissionSet(ctx context.Context, actor Actor, tenant TenantID) error {
	if err := s.store.DeleteAgencyPermissionSet(ctx, tenant); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAgency(ctx, tenant); err != nil {
			return err
		}
	}
	s.afterWrite(ctx, actor, ChangeEvent{Layer: "agency", Key: string(tenant), ChangedBy: actor.ID})
	return nil
}

// DeleteUserPermissionSet removes a user override.
func (s *Service) DeleteUserPermissionSet(ctx context.Context, actor Actor, userID string) error {
	if err := s.store.DeleteUserPermissionSet(ctx, userID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, userID); err != nil {
			return err
		}
	}
	s.afterWrite(ctx, actor, ChangeEvent{Layer: "user", Key: userID, ChangedBy: actor.ID})
	return nil
}

// afterWrite emits audit and notification events. Failures here are logged
// and swallowed: the permission write and cache invalidation already
// succeeded, and neither audit nor notification participates in
// authorization.
func (s *Service) afterWrite(ctx context.Context, actor Actor, event ChangeEvent) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "permissions.update",
			Entity:   "permission_set",
			EntityID: event.Layer + ":" + event.Key,
			Meta:     map[string]any{"layer": event.Layer, "key": event.Key},
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("audit permission write", slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.PermissionsChanged(ctx, event); err != nil && s.logger != nil {
			s.logger.Warn("notify permission change", slog.Any("error", err))
		}
	}
}

package authz

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// absentMarker caches the fact that an override layer has no record, so a
// resolution that falls through two empty layers does not hit Postgres on
// every request.
const absentMarker = "-"

// CachedStore decorates a Store with a Redis cache. Writers must call the
// matching Invalidate method synchronously before acknowledging a permission
// write; otherwise stale-allow or stale-deny windows open up. The TTL is a
// backstop, not the invalidation mechanism.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps the inner store.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

// UserPermissionSet implements Store.
func (c *CachedStore) UserPermissionSet(ctx context.Context, userID string) (Matrix, bool, error) {
	return c.lookup(ctx, userKey(userID), func() (Matrix, bool, error) {
		return c.inner.UserPermissionSet(ctx, userID)
	})
}

// AgencyPermissionSet implements Store.
func (c *CachedStore) AgencyPermissionSet(ctx context.Context, tenant TenantID) (Matrix, bool, error) {
	return c.lookup(ctx, agencyKey(tenant), func() (Matrix, bool, error) {
		return c.inner.AgencyPermissionSet(ctx, tenant)
	})
}

// RolePermissionSet implements Store.
func (c *CachedStore) RolePermissionSet(ctx context.Context, role Role) (Matrix, bool, error) {
	return c.lookup(ctx, roleKey(role), func() (Matrix, bool, error) {
		return c.inner.RolePermissionSet(ctx, role)
	})
}

func (c *CachedStore) lookup(ctx context.Context, key string, load func() (Matrix, bool, error)) (Matrix, bool, error) {
	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == absentMarker {
			return nil, false, nil
		}
		matrix, decodeErr := DecodeMatrix([]byte(cached))
		if decodeErr == nil {
			return matrix, true, nil
		}
		// Unreadable cache entry: drop it and fall through to the store.
		_ = c.client.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		// Redis being down must not take authorization with it.
		return load()
	}

	matrix, ok, err := load()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		_ = c.client.Set(ctx, key, absentMarker, c.ttl).Err()
		return nil, false, nil
	}
	if data, encErr := EncodeMatrix(matrix); encErr == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return matrix, true, nil
}

// InvalidateUser drops the cached user override (present or absent marker).
func (c *CachedStore) InvalidateUser(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userKey(userID)).Err()
}

// InvalidateAgency drops the cached agency override.
func (c *CachedStore) InvalidateAgency(ctx context.Context, tenant TenantID) error {
	return c.client.Del(ctx, agencyKey(tenant)).Err()
}

// InvalidateRole drops the cached role default.
func (c *CachedStore) InvalidateRole(ctx context.Context, role Role) error {
	return c.client.Del(ctx, roleKey(role)).Err()
}

func userKey(id string) string     { return "authz:user:" + id }
func agencyKey(id TenantID) string { return "authz:agency:" + string(id) }
func roleKey(role Role) string     { return "authz:role:" + string(role) }

var _ Store = (*CachedStore)(nil)

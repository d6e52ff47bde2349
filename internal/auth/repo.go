package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/havencrm/havencrm/internal/authz"
	"github.com/havencrm/havencrm/internal/shared"
)

// Repository defines persistence operations for the identity store.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Identity, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByID fetches an identity by its id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Identity, error) {
	const query = `
SELECT id, email, role, COALESCE(agency_id::text, ''), is_active, created_at, updated_at
FROM identities
WHERE id = $1`
	var (
		identity Identity
		rawRole  string
		agencyID string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&identity.ID,
		&identity.Email,
		&rawRole,
		&agencyID,
		&identity.IsActive,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return nil, err
	}
	identity.Role = role
	identity.AgencyID = authz.TenantID(agencyID)
	return &identity, nil
}

var _ Repository = (*PGRepository)(nil)

package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/havencrm/havencrm/internal/authz"
	"github.com/havencrm/havencrm/internal/shared"
)

// ErrNotFound indicates the requested lead does not exist.
var ErrNotFound = errors.New("leads: not found")

// Repository defines persistence operations for leads.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Lead, error)
	List(ctx context.Context, tenant authz.TenantID, page shared.Pagination) ([]Lead, int, error)
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetEntryPermissions(ctx context.Context, id uuid.UUID, perms authz.EntryPermissions) error
}

// PGRepository implements Repository over PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a lead repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const leadColumns = `id, agency_id, name, email, phone, source, status, message, COALESCE(assigned_to, ''), entry_permissions, created_at, updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead     Lead
		agencyID string
		status   string
		rawPerms []byte
	)
	err := row.Scan(
		&lead.ID,
		&agencyID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Source,
		&status,
		&lead.Message,
		&lead.AssignedTo,
		&rawPerms,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.AgencyID = authz.TenantOf(authz.TenantID(agencyID))
	lead.Status = Status(status)
	perms, err := authz.DecodeEntryPermissions(rawPerms)
	if err != nil {
		return nil, err
	}
	lead.Permissions = perms
	return &lead, nil
}

// Get fetches a lead by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1`, leadColumns)
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return lead, nil
}

// List returns one page of leads for the tenant, newest first. An empty
// tenant lists across all tenants; only super_admin callers reach that path.
func (r *PGRepository) List(ctx context.Context, tenant authz.TenantID, page shared.Pagination) ([]Lead, int, error) {
	var (
		total int
		rows  pgx.Rows
		err   error
	)
	if tenant == "" {
		if err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&total); err != nil {
			return nil, 0, err
		}
		query := fmt.Sprintf(`SELECT %s FROM leads ORDER BY created_at DESC LIMIT $1 OFFSET $2`, leadColumns)
		rows, err = r.pool.Query(ctx, query, page.PerPage, page.Offset())
	} else {
		if err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE agency_id = $1`, string(tenant)).Scan(&total); err != nil {
			return nil, 0, err
		}
		query := fmt.Sprintf(`SELECT %s FROM leads WHERE agency_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, leadColumns)
		rows, err = r.pool.Query(ctx, query, string(tenant), page.PerPage, page.Offset())
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *lead)
	}
	return result, total, rows.Err()
}

// Create inserts a new lead.
func (r *PGRepository) Create(ctx context.Context, lead *Lead) error {
	perms, err := authz.EncodeEntryPermissions(lead.Permissions)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	const query = `
INSERT INTO leads (id, agency_id, name, email, phone, source, status, message, assigned_to, entry_permissions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12)`
	_, err = r.pool.Exec(ctx, query,
		lead.ID, string(lead.AgencyID.ID), lead.Name, lead.Email, lead.Phone,
		lead.Source, string(lead.Status), lead.Message, lead.AssignedTo, perms,
		lead.CreatedAt, lead.UpdatedAt,
	)
	return err
}

// Update rewrites the mutable lead fields.
func (r *PGRepository) Update(ctx context.Context, lead *Lead) error {
	lead.UpdatedAt = time.Now().UTC()
	const query = `
UPDATE leads
SET name = $2, email = $3, phone = $4, source = $5, status = $6, message = $7,
    assigned_to = NULLIF($8, ''), updated_at = $9
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Source,
		string(lead.Status), lead.Message, lead.AssignedTo, lead.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a lead.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEntryPermissions replaces the per-document overrides.
func (r *PGRepository) SetEntryPermissions(ctx context.Context, id uuid.UUID, perms authz.EntryPermissions) error {
	data, err := authz.EncodeEntryPermissions(perms)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET entry_permissions = $2, updated_at = NOW() WHERE id = $1`, id, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)

package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The tenants registry lives in the shared schema and is always queried
// through the pool directly, never through a tenant-scoped connection.
type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const tenantCols = `id, slug, name, lifecycle_state, created_at, updated_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.LifecycleState, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shared.tenants (id, slug, name, lifecycle_state)
		VALUES ($1, $2, $3, $4)`,
		t.ID, t.Slug, t.Name, t.LifecycleState)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx,
		`SELECT `+tenantCols+` FROM shared.tenants WHERE id = $1`, id))
}

func (r *repoPG) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return scanTenant(r.pool.QueryRow(ctx,
		`SELECT `+tenantCols+` FROM shared.tenants WHERE slug = $1`, slug))
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tenantCols+` FROM shared.tenants WHERE lifecycle_state = $1 ORDER BY slug`,
		StateActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *repoPG) SetLifecycleState(ctx context.Context, id uuid.UUID, state string) error {
	if !validStates[state] {
		return fmt.Errorf("invalid lifecycle state: %s", state)
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE shared.tenants SET lifecycle_state = $2, updated_at = NOW()
		WHERE id = $1`, id, state)
	return err
}

package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== CompletedProcedure Repository ===========

type procedureRepoPG struct{ pool *pgxpool.Pool }

func NewProcedureRepoPG(pool *pgxpool.Pool) ProcedureRepository {
	return &procedureRepoPG{pool: pool}
}

const procCols = `id, external_system, external_id, patient_id, procedure_code, description,
	fee, provider_external_id, performed_at, status, created_at, updated_at`

func scanProcedure(row pgx.Row) (*CompletedProcedure, error) {
	var p CompletedProcedure
	err := row.Scan(&p.ID, &p.ExternalSystem, &p.ExternalID, &p.PatientID, &p.ProcedureCode, &p.Description,
		&p.Fee, &p.ProviderExternalID, &p.PerformedAt, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *procedureRepoPG) Create(ctx context.Context, p *CompletedProcedure) error {
	p.ID = uuid.New()
	p.Status = StatusCompleted
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO completed_procedures (id, external_system, external_id, patient_id,
			procedure_code, description, fee, provider_external_id, performed_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.ExternalSystem, p.ExternalID, p.PatientID,
		p.ProcedureCode, p.Description, p.Fee, p.ProviderExternalID, p.PerformedAt, p.Status)
	return err
}

func (r *procedureRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CompletedProcedure, error) {
	return scanProcedure(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+procCols+` FROM completed_procedures WHERE id = $1`, id))
}

func (r *procedureRepoPG) Update(ctx context.Context, p *CompletedProcedure) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE completed_procedures SET procedure_code=$2, description=$3, fee=$4,
			provider_external_id=$5, performed_at=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.ProcedureCode, p.Description, p.Fee,
		p.ProviderExternalID, p.PerformedAt)
	return err
}

// =========== ProcedureCode Repository ===========

type procedureCodeRepoPG struct{ pool *pgxpool.Pool }

func NewProcedureCodeRepoPG(pool *pgxpool.Pool) ProcedureCodeRepository {
	return &procedureCodeRepoPG{pool: pool}
}

const codeCols = `id, external_system, external_id, code, description, abbreviated_desc,
	category, base_units, is_hygiene, created_at, updated_at`

func scanProcedureCode(row pgx.Row) (*ProcedureCode, error) {
	var c ProcedureCode
	err := row.Scan(&c.ID, &c.ExternalSystem, &c.ExternalID, &c.Code, &c.Description, &c.AbbreviatedDesc,
		&c.Category, &c.BaseUnits, &c.IsHygiene, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *procedureCodeRepoPG) Create(ctx context.Context, c *ProcedureCode) error {
	c.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO procedure_codes (id, external_system, external_id, code, description,
			abbreviated_desc, category, base_units, is_hygiene)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.ExternalSystem, c.ExternalID, c.Code, c.Description,
		c.AbbreviatedDesc, c.Category, c.BaseUnits, c.IsHygiene)
	return err
}

func (r *procedureCodeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProcedureCode, error) {
	return scanProcedureCode(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+codeCols+` FROM procedure_codes WHERE id = $1`, id))
}

func (r *procedureCodeRepoPG) Update(ctx context.Context, c *ProcedureCode) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE procedure_codes SET code=$2, description=$3, abbreviated_desc=$4,
			category=$5, base_units=$6, is_hygiene=$7, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Code, c.Description, c.AbbreviatedDesc,
		c.Category, c.BaseUnits, c.IsHygiene)
	return err
}

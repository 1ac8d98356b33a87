package scheduling

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

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, external_system, external_id, patient_id, provider_id, operatory_id,
	starts_at, ends_at, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ExternalSystem, &a.ExternalID, &a.PatientID, &a.ProviderID, &a.OperatoryID,
		&a.StartsAt, &a.EndsAt, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointments (id, external_system, external_id, patient_id, provider_id, operatory_id,
			starts_at, ends_at, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.ExternalSystem, a.ExternalID, a.PatientID, a.ProviderID, a.OperatoryID,
		a.StartsAt, a.EndsAt, a.Status, a.Notes)
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointments SET patient_id=$2, provider_id=$3, operatory_id=$4,
			starts_at=$5, ends_at=$6, status=$7, notes=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PatientID, a.ProviderID, a.OperatoryID,
		a.StartsAt, a.EndsAt, a.Status, a.Notes)
	return err
}

// =========== Provider Repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepoPG{pool: pool}
}

const providerCols = `id, external_system, external_id, first_name, last_name, abbreviation,
	is_hidden, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.ExternalSystem, &p.ExternalID, &p.FirstName, &p.LastName, &p.Abbreviation,
		&p.IsHidden, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO providers (id, external_system, external_id, first_name, last_name, abbreviation, is_hidden)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.ExternalSystem, p.ExternalID, p.FirstName, p.LastName, p.Abbreviation, p.IsHidden)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return scanProvider(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+providerCols+` FROM providers WHERE id = $1`, id))
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE providers SET first_name=$2, last_name=$3, abbreviation=$4, is_hidden=$5, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Abbreviation, p.IsHidden)
	return err
}

// =========== Operatory Repository ===========

type operatoryRepoPG struct{ pool *pgxpool.Pool }

func NewOperatoryRepoPG(pool *pgxpool.Pool) OperatoryRepository {
	return &operatoryRepoPG{pool: pool}
}

const operatoryCols = `id, external_system, external_id, name, abbreviation, is_hidden,
	created_at, updated_at`

func scanOperatory(row pgx.Row) (*Operatory, error) {
	var o Operatory
	err := row.Scan(&o.ID, &o.ExternalSystem, &o.ExternalID, &o.Name, &o.Abbreviation, &o.IsHidden,
		&o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *operatoryRepoPG) Create(ctx context.Context, o *Operatory) error {
	o.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO operatories (id, external_system, external_id, name, abbreviation, is_hidden)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.ExternalSystem, o.ExternalID, o.Name, o.Abbreviation, o.IsHidden)
	return err
}

func (r *operatoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Operatory, error) {
	return scanOperatory(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+operatoryCols+` FROM operatories WHERE id = $1`, id))
}

func (r *operatoryRepoPG) Update(ctx context.Context, o *Operatory) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE operatories SET name=$2, abbreviation=$3, is_hidden=$4, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.Abbreviation, o.IsHidden)
	return err
}

package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, external_system, external_id, first_name, last_name, birth_date,
	email, phone, address_line1, address_line2, city, state, postal_code,
	status, family_id, guarantor_id, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.ExternalSystem, &p.ExternalID, &p.FirstName, &p.LastName, &p.BirthDate,
		&p.Email, &p.Phone, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.PostalCode,
		&p.Status, &p.FamilyID, &p.GuarantorID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, external_system, external_id, first_name, last_name, birth_date,
			email, phone, address_line1, address_line2, city, state, postal_code, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.ExternalSystem, p.ExternalID, p.FirstName, p.LastName, p.BirthDate,
		p.Email, p.Phone, p.AddressLine1, p.AddressLine2, p.City, p.State, p.PostalCode, p.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, email=$4, phone=$5,
			address_line1=$6, address_line2=$7, city=$8, state=$9, postal_code=$10,
			status=$11, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone,
		p.AddressLine1, p.AddressLine2, p.City, p.State, p.PostalCode, p.Status)
	return err
}

func (r *repoPG) SetFamily(ctx context.Context, id uuid.UUID, familyID, guarantorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET family_id=$2, guarantor_id=$3, updated_at=NOW()
		WHERE id = $1`, id, familyID, guarantorID)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

// =========== Family Repository ===========

type familyRepoPG struct{ pool *pgxpool.Pool }

func NewFamilyRepoPG(pool *pgxpool.Pool) FamilyRepository { return &familyRepoPG{pool: pool} }

func (r *familyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const familyCols = `id, external_system, external_guarantor_id, guarantor_patient_id,
	member_count, balance, created_at, updated_at`

func scanFamily(row pgx.Row) (*Family, error) {
	var f Family
	err := row.Scan(&f.ID, &f.ExternalSystem, &f.ExternalGuarantorID, &f.GuarantorPatientID,
		&f.MemberCount, &f.Balance, &f.CreatedAt, &f.UpdatedAt)
	return &f, err
}

func (r *familyRepoPG) Create(ctx context.Context, f *Family) error {
	f.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO families (id, external_system, external_guarantor_id, guarantor_patient_id,
			member_count, balance)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.ExternalSystem, f.ExternalGuarantorID, f.GuarantorPatientID,
		f.MemberCount, f.Balance)
	return err
}

func (r *familyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Family, error) {
	return scanFamily(r.conn(ctx).QueryRow(ctx,
		`SELECT `+familyCols+` FROM families WHERE id = $1`, id))
}

func (r *familyRepoPG) UpdateAggregates(ctx context.Context, id uuid.UUID, memberCount int, balance decimal.Decimal) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE families SET member_count=$2, balance=$3, updated_at=NOW()
		WHERE id = $1`, id, memberCount, balance)
	return err
}

package insurance

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

const policyCols = `id, external_system, external_subscription_id, patient_id,
	carrier_name, plan_name, external_plan_id, group_number,
	subscriber_external_id, relationship, effective_date, termination_date,
	created_at, updated_at`

func scanPolicy(row pgx.Row) (*Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.ExternalSystem, &p.ExternalSubscriptionID, &p.PatientID,
		&p.CarrierName, &p.PlanName, &p.ExternalPlanID, &p.GroupNumber,
		&p.SubscriberExternalID, &p.Relationship, &p.EffectiveDate, &p.TerminationDate,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Policy) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_policies (id, external_system, external_subscription_id, patient_id,
			carrier_name, plan_name, external_plan_id, group_number,
			subscriber_external_id, relationship, effective_date, termination_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.ExternalSystem, p.ExternalSubscriptionID, p.PatientID,
		p.CarrierName, p.PlanName, p.ExternalPlanID, p.GroupNumber,
		p.SubscriberExternalID, p.Relationship, p.EffectiveDate, p.TerminationDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return scanPolicy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+policyCols+` FROM insurance_policies WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Policy) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_policies SET carrier_name=$2, plan_name=$3, external_plan_id=$4,
			group_number=$5, subscriber_external_id=$6, relationship=$7,
			effective_date=$8, termination_date=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.CarrierName, p.PlanName, p.ExternalPlanID,
		p.GroupNumber, p.SubscriberExternalID, p.Relationship,
		p.EffectiveDate, p.TerminationDate)
	return err
}

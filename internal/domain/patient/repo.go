package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// Update writes the mutable fields only; external_id and birth_date are
	// never touched after creation.
	Update(ctx context.Context, p *Patient) error
	// SetFamily points one patient row at its family group and guarantor.
	SetFamily(ctx context.Context, id uuid.UUID, familyID, guarantorID uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type FamilyRepository interface {
	Create(ctx context.Context, f *Family) error
	GetByID(ctx context.Context, id uuid.UUID) (*Family, error)
	// UpdateAggregates refreshes the derived fields on re-sync.
	UpdateAggregates(ctx context.Context, id uuid.UUID, memberCount int, balance decimal.Decimal) error
}

package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
}

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
}

type OperatoryRepository interface {
	Create(ctx context.Context, o *Operatory) error
	GetByID(ctx context.Context, id uuid.UUID) (*Operatory, error)
	Update(ctx context.Context, o *Operatory) error
}

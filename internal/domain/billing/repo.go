package billing

import (
	"context"

	"github.com/google/uuid"
)

type ProcedureRepository interface {
	Create(ctx context.Context, p *CompletedProcedure) error
	GetByID(ctx context.Context, id uuid.UUID) (*CompletedProcedure, error)
	Update(ctx context.Context, p *CompletedProcedure) error
}

type ProcedureCodeRepository interface {
	Create(ctx context.Context, c *ProcedureCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProcedureCode, error)
	Update(ctx context.Context, c *ProcedureCode) error
}

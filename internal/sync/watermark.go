package sync

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/platform/db"
)

// WatermarkStore tracks the last-successful-sync timestamp per entity type
// within one tenant's schema. A nil timestamp means "pull full history".
type WatermarkStore interface {
	Get(ctx context.Context, entity EntityType) (*time.Time, error)
	Advance(ctx context.Context, entity EntityType, at time.Time) error
	// All returns every watermark the tenant has, keyed by entity type.
	// Entities never synced are absent.
	All(ctx context.Context) (map[EntityType]time.Time, error)
}

type watermarkStorePG struct {
	pool           *pgxpool.Pool
	externalSystem string
}

func NewWatermarkStorePG(pool *pgxpool.Pool, externalSystem string) WatermarkStore {
	return &watermarkStorePG{pool: pool, externalSystem: externalSystem}
}

func (s *watermarkStorePG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

func (s *watermarkStorePG) Get(ctx context.Context, entity EntityType) (*time.Time, error) {
	var at time.Time
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT last_synced_at FROM sync_watermarks
		WHERE external_system = $1 AND entity_type = $2`,
		s.externalSystem, string(entity)).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

func (s *watermarkStorePG) Advance(ctx context.Context, entity EntityType, at time.Time) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO sync_watermarks (external_system, entity_type, last_synced_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_system, entity_type)
		DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at, updated_at = NOW()`,
		s.externalSystem, string(entity), at.UTC())
	return err
}

func (s *watermarkStorePG) All(ctx context.Context) (map[EntityType]time.Time, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT entity_type, last_synced_at FROM sync_watermarks
		WHERE external_system = $1`, s.externalSystem)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := make(map[EntityType]time.Time)
	for rows.Next() {
		var entity string
		var at time.Time
		if err := rows.Scan(&entity, &at); err != nil {
			return nil, err
		}
		marks[EntityType(entity)] = at
	}
	return marks, rows.Err()
}

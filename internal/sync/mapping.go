package sync

import (
	"context"
	"errors"
	"time"

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

// Mapping is one durable external-id to internal-id correspondence. Mappings
// are created once, refreshed (timestamp only) on every re-observation, and
// never deleted.
type Mapping struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ExternalSystem string     `db:"external_system" json:"external_system"`
	EntityType     EntityType `db:"entity_type" json:"entity_type"`
	ExternalID     string     `db:"external_id" json:"external_id"`
	InternalID     uuid.UUID  `db:"internal_id" json:"internal_id"`
	SyncStatus     string     `db:"sync_status" json:"sync_status"`
	LastSyncedAt   time.Time  `db:"last_synced_at" json:"last_synced_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// MappingStore is the single source of truth for "does this external record
// already exist internally". Workers never search internal entities by
// business key.
type MappingStore interface {
	Find(ctx context.Context, entity EntityType, externalID string) (uuid.UUID, bool, error)
	Create(ctx context.Context, entity EntityType, externalID string, internalID uuid.UUID) error
	// Touch refreshes last_synced_at on re-observation of a mapped record.
	Touch(ctx context.Context, entity EntityType, externalID string) error
	// ListByEntity pages mappings of one entity type; entity "" means all.
	ListByEntity(ctx context.Context, entity EntityType, limit, offset int) ([]Mapping, int, error)
	// ExternalIDs returns every mapped external id for an entity type, in
	// mapping creation order. The family worker drives its fan-out from this.
	ExternalIDs(ctx context.Context, entity EntityType) ([]string, error)
}

type mappingStorePG struct {
	pool           *pgxpool.Pool
	externalSystem string
}

func NewMappingStorePG(pool *pgxpool.Pool, externalSystem string) MappingStore {
	return &mappingStorePG{pool: pool, externalSystem: externalSystem}
}

func (s *mappingStorePG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

func (s *mappingStorePG) Find(ctx context.Context, entity EntityType, externalID string) (uuid.UUID, bool, error) {
	var internalID uuid.UUID
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT internal_id FROM sync_mappings
		WHERE external_system = $1 AND entity_type = $2 AND external_id = $3`,
		s.externalSystem, string(entity), externalID).Scan(&internalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return internalID, true, nil
}

func (s *mappingStorePG) Create(ctx context.Context, entity EntityType, externalID string, internalID uuid.UUID) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO sync_mappings (id, external_system, entity_type, external_id, internal_id, sync_status, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, 'synced', NOW())`,
		uuid.New(), s.externalSystem, string(entity), externalID, internalID)
	return err
}

func (s *mappingStorePG) Touch(ctx context.Context, entity EntityType, externalID string) error {
	_, err := s.conn(ctx).Exec(ctx, `
		UPDATE sync_mappings SET last_synced_at = NOW(), sync_status = 'synced'
		WHERE external_system = $1 AND entity_type = $2 AND external_id = $3`,
		s.externalSystem, string(entity), externalID)
	return err
}

func (s *mappingStorePG) ListByEntity(ctx context.Context, entity EntityType, limit, offset int) ([]Mapping, int, error) {
	where := `WHERE external_system = $1`
	args := []interface{}{s.externalSystem}
	if entity != "" {
		where += ` AND entity_type = $2`
		args = append(args, string(entity))
	}

	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM sync_mappings `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, external_system, entity_type, external_id, internal_id, sync_status, last_synced_at, created_at
		FROM sync_mappings ` + where + ` ORDER BY entity_type, created_at`
	if entity != "" {
		query += ` LIMIT $3 OFFSET $4`
	} else {
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		var m Mapping
		var entityStr string
		if err := rows.Scan(&m.ID, &m.ExternalSystem, &entityStr, &m.ExternalID, &m.InternalID,
			&m.SyncStatus, &m.LastSyncedAt, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		m.EntityType = EntityType(entityStr)
		mappings = append(mappings, m)
	}
	return mappings, total, rows.Err()
}

func (s *mappingStorePG) ExternalIDs(ctx context.Context, entity EntityType) ([]string, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT external_id FROM sync_mappings
		WHERE external_system = $1 AND entity_type = $2
		ORDER BY created_at`, s.externalSystem, string(entity))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

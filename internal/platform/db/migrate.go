package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one versioned SQL file. The version is the numeric filename
// prefix; 001_core.sql is version 1.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus pairs a known migration with its ledger entry, if any.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies versioned SQL files per schema. Every tenant schema keeps
// its own schema_migrations ledger, so tenants onboarded at different times
// converge on the same version independently of each other.
type Migrator struct {
	pool *pgxpool.Pool
	dir  string
}

func NewMigrator(pool *pgxpool.Pool, migrationsDir string) *Migrator {
	return &Migrator{pool: pool, dir: migrationsDir}
}

// LoadMigrations reads the migrations directory and returns its contents
// sorted by version. Files without a numeric prefix are not migrations and
// are ignored.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %s: %w", m.dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		sql, err := os.ReadFile(filepath.Join(m.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(sql)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up applies every pending migration to the schema, oldest first, each in
// its own transaction. Returns how many were applied.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}
	ledger, err := m.ledger(ctx, schema)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, mig := range migrations {
		if _, done := ledger[mig.Version]; done {
			continue
		}
		if err := m.apply(ctx, schema, mig); err != nil {
			return applied, fmt.Errorf("apply %s to %s: %w", mig.Name, schema, err)
		}
		applied++
	}
	return applied, nil
}

// Status merges the migration files against the schema's ledger.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	ledger, err := m.ledger(ctx, schema)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		st := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := ledger[mig.Version]; ok {
			at := at
			st.Applied = true
			st.AppliedAt = &at
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// SetupTenant creates the tenant's schema if needed and brings it to the
// latest version. Safe to call again for an existing tenant.
func (m *Migrator) SetupTenant(ctx context.Context, tenantID string) error {
	if !ValidTenantID(tenantID) {
		return fmt.Errorf("invalid tenant identifier: %s", tenantID)
	}

	schema := SchemaFor(tenantID)
	if _, err := m.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	if _, err := m.Up(ctx, schema); err != nil {
		return fmt.Errorf("migrate %s: %w", schema, err)
	}
	return nil
}

// ledger reads the schema's applied versions, creating the ledger table on
// first use.
func (m *Migrator) ledger(ctx context.Context, schema string) (map[int]time.Time, error) {
	_, err := m.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.schema_migrations (
    version INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, schema))
	if err != nil {
		return nil, fmt.Errorf("ensure schema_migrations in %s: %w", schema, err)
	}

	rows, err := m.pool.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s.schema_migrations", schema))
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations in %s: %w", schema, err)
	}
	defer rows.Close()

	ledger := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan schema_migrations row: %w", err)
		}
		ledger[v] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}
	return ledger, nil
}

// apply runs one migration and records it in the ledger, atomically.
func (m *Migrator) apply(ctx context.Context, schema string, mig Migration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET search_path TO %s, shared, public", schema)); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		mig.Version, mig.Name,
	); err != nil {
		return fmt.Errorf("record in ledger: %w", err)
	}
	return tx.Commit(ctx)
}

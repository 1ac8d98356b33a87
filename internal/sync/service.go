package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/billing"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/insurance"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/patient"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/scheduling"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/tenant"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/platform/db"
)

// Deps bundles everything the engine needs. All stores and repositories are
// interfaces; tests swap in in-memory fakes.
type Deps struct {
	Adapter pms.Adapter
	Pool    *pgxpool.Pool

	Watermarks WatermarkStore
	Mappings   MappingStore
	Leases     LeaseStore

	Tenants        tenant.Repository
	Patients       patient.Repository
	Families       patient.FamilyRepository
	Appointments   scheduling.AppointmentRepository
	Providers      scheduling.ProviderRepository
	Operatories    scheduling.OperatoryRepository
	Policies       insurance.Repository
	Procedures     billing.ProcedureRepository
	ProcedureCodes billing.ProcedureCodeRepository
}

// Options tunes the engine.
type Options struct {
	ExternalSystem string
	LeaseTTL       time.Duration
	TenantWorkers  int
}

// Service is the sync orchestrator. Stages within one tenant run strictly
// sequentially in dependency order; the scheduled sweep fans tenants out
// across a bounded worker pool.
type Service struct {
	deps Deps
	opts Options

	logger zerolog.Logger
	now    func() time.Time

	// scopeTenant binds a context to the tenant's schema. Overridable so the
	// engine can be exercised without a database.
	scopeTenant func(ctx context.Context, tenantID string) (context.Context, func(), error)

	// inTx wraps one record's writes in a transaction on the pinned
	// connection. Overridable for the same reason.
	inTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(deps Deps, opts Options, logger zerolog.Logger) *Service {
	if opts.ExternalSystem == "" {
		opts.ExternalSystem = "opendental"
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 5 * time.Minute
	}
	if opts.TenantWorkers <= 0 {
		opts.TenantWorkers = 4
	}

	s := &Service{
		deps:   deps,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
	s.scopeTenant = func(ctx context.Context, tenantID string) (context.Context, func(), error) {
		// A context already scoped to this tenant (the HTTP tenant
		// middleware does this) is reused as-is.
		if db.TenantFromContext(ctx) == tenantID && db.ConnFromContext(ctx) != nil {
			return ctx, func() {}, nil
		}
		return db.WithTenant(ctx, deps.Pool, tenantID)
	}
	s.inTx = db.WithTx
	return s
}

// FullSync runs every entity worker for one tenant in dependency order. A
// stage failure aborts only the remaining stages; completed stages' commits
// stand, and the partial result map is always returned.
func (s *Service) FullSync(ctx context.Context, tenantID string) (map[EntityType]Result, error) {
	results := make(map[EntityType]Result, len(FullSyncOrder))

	if !s.deps.Adapter.IsConfigured() {
		for _, entity := range FullSyncOrder {
			results[entity] = Result{}
		}
		return results, nil
	}

	ctx, release, err := s.scopeTenant(ctx, tenantID)
	if err != nil {
		return results, fmt.Errorf("scope tenant %s: %w", tenantID, err)
	}
	defer release()

	start := s.now()
	for _, entity := range FullSyncOrder {
		res, err := s.syncEntity(ctx, tenantID, entity)
		results[entity] = res
		if err != nil {
			s.logger.Error().Err(err).
				Str("tenant", tenantID).
				Str("entity", string(entity)).
				Msg("full sync stage failed, aborting remaining stages")
			return results, fmt.Errorf("sync %s: %w", entity, err)
		}
	}

	s.logger.Info().
		Str("tenant", tenantID).
		Dur("duration", s.now().Sub(start)).
		Msg("full sync completed")
	return results, nil
}

// TriggerSync runs exactly one entity worker, without dependency ordering.
// The caller is responsible for having synced dependencies first.
func (s *Service) TriggerSync(ctx context.Context, tenantID string, entity EntityType) (Result, error) {
	if !KnownEntity(entity) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	if !s.deps.Adapter.IsConfigured() {
		return Result{}, nil
	}

	ctx, release, err := s.scopeTenant(ctx, tenantID)
	if err != nil {
		return Result{}, fmt.Errorf("scope tenant %s: %w", tenantID, err)
	}
	defer release()

	return s.syncEntity(ctx, tenantID, entity)
}

// ScheduledSync sweeps every active tenant through FullSync. Tenants run on
// a bounded worker pool (each tenant internally sequential); one tenant's
// failure never prevents the others from running.
func (s *Service) ScheduledSync(ctx context.Context) error {
	if !s.deps.Adapter.IsConfigured() {
		s.logger.Debug().Msg("pms adapter not configured, skipping scheduled sync")
		return nil
	}

	tenants, err := s.deps.Tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	sem := make(chan struct{}, s.opts.TenantWorkers)
	var wg stdsync.WaitGroup
	for _, t := range tenants {
		t := t
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().
						Str("tenant", t.Slug).
						Interface("panic", r).
						Msg("scheduled sync panicked for tenant")
				}
			}()

			if _, err := s.FullSync(ctx, t.Slug); err != nil {
				s.logger.Error().Err(err).
					Str("tenant", t.Slug).
					Msg("scheduled sync failed for tenant")
			}
		}()
	}
	wg.Wait()

	s.logger.Info().Int("tenants", len(tenants)).Msg("scheduled sync sweep completed")
	return nil
}

// SyncStatus returns the watermark per entity type; entities never synced
// are absent from the map.
func (s *Service) SyncStatus(ctx context.Context, tenantID string) (map[EntityType]time.Time, error) {
	ctx, release, err := s.scopeTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("scope tenant %s: %w", tenantID, err)
	}
	defer release()

	return s.deps.Watermarks.All(ctx)
}

// Mappings pages the identity mappings for introspection. entity "" lists
// all entity types.
func (s *Service) Mappings(ctx context.Context, tenantID string, entity EntityType, limit, offset int) ([]Mapping, int, error) {
	ctx, release, err := s.scopeTenant(ctx, tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("scope tenant %s: %w", tenantID, err)
	}
	defer release()

	return s.deps.Mappings.ListByEntity(ctx, entity, limit, offset)
}

// PushPatient sends one internal patient to the PMS and records the returned
// external id as a mapping. This is the engine's only internal-to-PMS write.
func (s *Service) PushPatient(ctx context.Context, tenantID string, patientID uuid.UUID) (string, error) {
	if !s.deps.Adapter.IsConfigured() {
		return "", fmt.Errorf("pms adapter is not configured")
	}

	ctx, release, err := s.scopeTenant(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("scope tenant %s: %w", tenantID, err)
	}
	defer release()

	p, err := s.deps.Patients.GetByID(ctx, patientID)
	if err != nil {
		return "", fmt.Errorf("load patient %s: %w", patientID, err)
	}

	push := &pms.PatientPush{
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
	if p.BirthDate != nil {
		push.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	if p.Email != nil {
		push.Email = *p.Email
	}
	if p.Phone != nil {
		push.Phone = *p.Phone
	}
	if p.AddressLine1 != nil {
		push.AddressL1 = *p.AddressLine1
	}
	if p.AddressLine2 != nil {
		push.AddressL2 = *p.AddressLine2
	}
	if p.City != nil {
		push.City = *p.City
	}
	if p.State != nil {
		push.State = *p.State
	}
	if p.PostalCode != nil {
		push.PostalCode = *p.PostalCode
	}

	externalID, err := s.deps.Adapter.PushPatient(ctx, push)
	if err != nil {
		return "", fmt.Errorf("push patient to pms: %w", err)
	}

	if err := s.deps.Mappings.Create(ctx, EntityPatients, externalID, p.ID); err != nil {
		return "", fmt.Errorf("record mapping for pushed patient: %w", err)
	}
	return externalID, nil
}

// syncEntity wraps one worker run with the lease and the watermark protocol.
// The watermark advances iff fetch and loop completed without an unhandled
// error, independent of per-record skip/error counts; its value is captured
// before the fetch so records arriving mid-sync are re-pulled next run.
func (s *Service) syncEntity(ctx context.Context, tenantID string, entity EntityType) (Result, error) {
	worker, ok := s.workerFor(entity)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	release, acquired, err := s.deps.Leases.Acquire(ctx, tenantID, entity, s.opts.LeaseTTL)
	if err != nil {
		return Result{}, fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		return Result{}, ErrSyncInProgress
	}
	defer release()

	since, err := s.deps.Watermarks.Get(ctx, entity)
	if err != nil {
		return Result{}, fmt.Errorf("read watermark: %w", err)
	}

	mark := s.now().UTC()
	res, err := worker(ctx, since)
	if err != nil {
		return res, err
	}

	if err := s.deps.Watermarks.Advance(ctx, entity, mark); err != nil {
		return res, fmt.Errorf("advance watermark: %w", err)
	}

	s.logger.Info().
		Str("tenant", tenantID).
		Str("entity", string(entity)).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("entity sync completed")
	return res, nil
}

type workerFunc func(ctx context.Context, since *time.Time) (Result, error)

func (s *Service) workerFor(entity EntityType) (workerFunc, bool) {
	switch entity {
	case EntityProcedureCodes:
		return s.syncProcedureCodes, true
	case EntityProviders:
		return s.syncProviders, true
	case EntityOperatories:
		return s.syncOperatories, true
	case EntityPatients:
		return s.syncPatients, true
	case EntityFamilies:
		return s.syncFamilies, true
	case EntityAppointments:
		return s.syncAppointments, true
	case EntityInsurance:
		return s.syncInsurance, true
	case EntityProcedures:
		return s.syncProcedures, true
	default:
		return nil, false
	}
}

// processRecord runs one record's transform-and-upsert under the batch
// failure-isolation rules: a dependency gap counts as a skip, any other
// error (or panic) counts as an error, and the loop always continues. The
// record's writes run in one transaction, so its row and its identity
// mapping commit together or not at all.
func (s *Service) processRecord(ctx context.Context, entity EntityType, externalID string, res *Result, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			res.Errors++
			s.logger.Error().
				Str("entity", string(entity)).
				Str("external_id", externalID).
				Interface("panic", r).
				Msg("record sync panicked")
		}
	}()

	if err := s.inTx(ctx, fn); err != nil {
		var gap dependencyGapError
		if errors.As(err, &gap) {
			res.Skipped++
			s.logger.Debug().
				Str("entity", string(entity)).
				Str("external_id", externalID).
				Msg(gap.Error())
			return
		}
		res.Errors++
		s.logger.Warn().Err(err).
			Str("entity", string(entity)).
			Str("external_id", externalID).
			Msg("record sync failed")
	}
}

// Package sync implements the PMS synchronization and identity-mapping
// engine: incremental pulls from the external system, durable external-to-
// internal identity mappings, per-entity watermarks, dependency-ordered full
// syncs, and a scheduled sweep across active tenants.
package sync

import (
	"errors"
	"fmt"
)

// EntityType names one synchronized entity class. The values double as
// watermark/mapping keys and as the :entity path parameter on trigger syncs.
type EntityType string

const (
	EntityProcedureCodes EntityType = "procedure_codes"
	EntityProviders      EntityType = "providers"
	EntityOperatories    EntityType = "operatories"
	EntityPatients       EntityType = "patients"
	EntityFamilies       EntityType = "families"
	EntityAppointments   EntityType = "appointments"
	EntityInsurance      EntityType = "insurance_policies"
	EntityProcedures     EntityType = "completed_procedures"
)

// FullSyncOrder is the fixed dependency order of a full sync: reference data
// first, then patients, then everything that references them.
var FullSyncOrder = []EntityType{
	EntityProcedureCodes,
	EntityProviders,
	EntityOperatories,
	EntityPatients,
	EntityFamilies,
	EntityAppointments,
	EntityInsurance,
	EntityProcedures,
}

var knownEntities = func() map[EntityType]bool {
	m := make(map[EntityType]bool, len(FullSyncOrder))
	for _, e := range FullSyncOrder {
		m[e] = true
	}
	return m
}()

// KnownEntity reports whether the entity type has a sync worker.
func KnownEntity(e EntityType) bool { return knownEntities[e] }

// Result is the per-entity outcome of one sync pass. Skipped counts
// dependency gaps and filtered records; Errors counts per-record failures.
// None of these abort the batch.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

var (
	// ErrSyncInProgress means another invocation holds the lease for this
	// (tenant, entity) key.
	ErrSyncInProgress = errors.New("sync already in progress for this tenant and entity")

	// ErrUnknownEntity means the requested entity type has no sync worker.
	ErrUnknownEntity = errors.New("unknown entity type")
)

// dependencyGapError marks a record skipped because a required parent mapping
// does not exist yet. It never escapes the worker loop; it is counted as a
// skip, not an error.
type dependencyGapError struct {
	entity     EntityType
	externalID string
	dependsOn  EntityType
	parentID   string
}

func (e dependencyGapError) Error() string {
	return fmt.Sprintf("%s %s depends on unmapped %s %s", e.entity, e.externalID, e.dependsOn, e.parentID)
}

package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/billing"
)

// syncProcedures pulls completed procedures. The status filter is a hard
// gate: a procedure the PMS does not mark completed is dropped before any
// mapping or write, leaves no row, and charges no counter — treatment-planned
// or in-progress work must never reach billing.
func (s *Service) syncProcedures(ctx context.Context, since *time.Time) (Result, error) {
	records, err := s.deps.Adapter.FetchProcedures(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch procedures: %w", err)
	}

	var res Result
	for i := range records {
		rec := &records[i]
		if strings.ToLower(strings.TrimSpace(rec.Status)) != billing.StatusCompleted {
			continue
		}

		s.processRecord(ctx, EntityProcedures, rec.ID, &res, func(ctx context.Context) error {
			patientID, found, err := s.deps.Mappings.Find(ctx, EntityPatients, rec.PatientID)
			if err != nil {
				return err
			}
			if !found {
				return dependencyGapError{
					entity:     EntityProcedures,
					externalID: rec.ID,
					dependsOn:  EntityPatients,
					parentID:   rec.PatientID,
				}
			}

			p := &billing.CompletedProcedure{
				ExternalSystem:     s.opts.ExternalSystem,
				ExternalID:         rec.ID,
				PatientID:          patientID,
				ProcedureCode:      rec.Code,
				Description:        rec.Description,
				Fee:                rec.Fee,
				ProviderExternalID: rec.ProviderID,
				PerformedAt:        rec.PerformedAt,
				Status:             billing.StatusCompleted,
			}

			internalID, mapped, err := s.deps.Mappings.Find(ctx, EntityProcedures, rec.ID)
			if err != nil {
				return err
			}
			if mapped {
				p.ID = internalID
				if err := s.deps.Procedures.Update(ctx, p); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityProcedures, rec.ID); err != nil {
					return err
				}
				res.Updated++
				return nil
			}

			if err := s.deps.Procedures.Create(ctx, p); err != nil {
				return err
			}
			if err := s.deps.Mappings.Create(ctx, EntityProcedures, rec.ID, p.ID); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	}
	return res, nil
}

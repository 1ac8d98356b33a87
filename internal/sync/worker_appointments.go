package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/scheduling"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms"
)

func (s *Service) syncAppointments(ctx context.Context, since *time.Time) (Result, error) {
	records, err := s.deps.Adapter.FetchAppointments(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch appointments: %w", err)
	}

	var res Result
	for i := range records {
		rec := &records[i]
		s.processRecord(ctx, EntityAppointments, rec.ID, &res, func(ctx context.Context) error {
			// The patient reference is load-bearing: no appointment row may
			// exist without its patient mapping.
			patientID, found, err := s.deps.Mappings.Find(ctx, EntityPatients, rec.PatientID)
			if err != nil {
				return err
			}
			if !found {
				return dependencyGapError{
					entity:     EntityAppointments,
					externalID: rec.ID,
					dependsOn:  EntityPatients,
					parentID:   rec.PatientID,
				}
			}

			status := strings.ToLower(strings.TrimSpace(rec.Status))
			if !scheduling.ValidStatus(status) {
				return scheduling.ErrUnknownStatus{Status: rec.Status}
			}

			a := s.transformAppointment(ctx, rec, patientID, status)

			internalID, mapped, err := s.deps.Mappings.Find(ctx, EntityAppointments, rec.ID)
			if err != nil {
				return err
			}
			if mapped {
				existing, err := s.deps.Appointments.GetByID(ctx, internalID)
				if err != nil {
					return err
				}
				if err := scheduling.CheckTransition(existing.Status, status); err != nil {
					return err
				}
				a.ID = internalID
				if err := s.deps.Appointments.Update(ctx, a); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityAppointments, rec.ID); err != nil {
					return err
				}
				res.Updated++
				return nil
			}

			if err := s.deps.Appointments.Create(ctx, a); err != nil {
				return err
			}
			if err := s.deps.Mappings.Create(ctx, EntityAppointments, rec.ID, a.ID); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	}
	return res, nil
}

// transformAppointment maps the vendor appointment onto the internal schema.
// Provider and operatory references resolve best-effort: an absent mapping
// leaves the column null rather than blocking the record.
func (s *Service) transformAppointment(ctx context.Context, rec *pms.ExternalAppointment, patientID uuid.UUID, status string) *scheduling.Appointment {
	a := &scheduling.Appointment{
		ExternalSystem: s.opts.ExternalSystem,
		ExternalID:     rec.ID,
		PatientID:      patientID,
		StartsAt:       rec.StartsAt,
		EndsAt:         rec.EndsAt,
		Status:         status,
	}
	if rec.Notes != "" {
		a.Notes = &rec.Notes
	}

	if rec.ProviderID != "" {
		if id, ok, err := s.deps.Mappings.Find(ctx, EntityProviders, rec.ProviderID); err == nil && ok {
			a.ProviderID = &id
		}
	}
	if rec.OperatoryID != "" {
		if id, ok, err := s.deps.Mappings.Find(ctx, EntityOperatories, rec.OperatoryID); err == nil && ok {
			a.OperatoryID = &id
		}
	}
	return a
}

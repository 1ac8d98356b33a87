package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/patient"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms"
)

// Vendor patient statuses normalized onto the internal vocabulary. Anything
// unrecognized maps to the documented default, "active".
var patientStatusTable = map[string]string{
	"patient":    "active",
	"active":     "active",
	"inactive":   "inactive",
	"archived":   "archived",
	"deceased":   "deceased",
	"deleted":    "archived",
	"nonpatient": "prospective",
	"prospect":   "prospective",
}

func normalizePatientStatus(raw string) string {
	if v, ok := patientStatusTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return "active"
}

func (s *Service) syncPatients(ctx context.Context, since *time.Time) (Result, error) {
	records, err := s.deps.Adapter.FetchPatients(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch patients: %w", err)
	}

	var res Result
	for i := range records {
		rec := &records[i]
		s.processRecord(ctx, EntityPatients, rec.ID, &res, func(ctx context.Context) error {
			internalID, found, err := s.deps.Mappings.Find(ctx, EntityPatients, rec.ID)
			if err != nil {
				return err
			}

			p := s.transformPatient(rec)
			if found {
				// Identity fields (external id, birth date) are immutable
				// after creation; the repository update never touches them.
				p.ID = internalID
				if err := s.deps.Patients.Update(ctx, p); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityPatients, rec.ID); err != nil {
					return err
				}
				res.Updated++
				return nil
			}

			if err := s.deps.Patients.Create(ctx, p); err != nil {
				return err
			}
			if err := s.deps.Mappings.Create(ctx, EntityPatients, rec.ID, p.ID); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	}
	return res, nil
}

// transformPatient maps the vendor patient shape onto the internal schema,
// flattening the address sub-object into columns.
func (s *Service) transformPatient(rec *pms.ExternalPatient) *patient.Patient {
	p := &patient.Patient{
		ExternalSystem: s.opts.ExternalSystem,
		ExternalID:     rec.ID,
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		Status:         normalizePatientStatus(rec.Status),
	}

	if rec.BirthDate != "" {
		if dob, err := time.Parse("2006-01-02", rec.BirthDate); err == nil {
			p.BirthDate = &dob
		}
	}
	if rec.Email != "" {
		p.Email = &rec.Email
	}
	if rec.Phone != "" {
		p.Phone = &rec.Phone
	}
	if addr := rec.Address; addr != nil {
		if addr.Line1 != "" {
			p.AddressLine1 = &addr.Line1
		}
		if addr.Line2 != "" {
			p.AddressLine2 = &addr.Line2
		}
		if addr.City != "" {
			p.City = &addr.City
		}
		if addr.State != "" {
			p.State = &addr.State
		}
		if addr.PostalCode != "" {
			p.PostalCode = &addr.PostalCode
		}
	}
	return p
}

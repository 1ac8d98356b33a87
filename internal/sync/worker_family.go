package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/patient"
)

// syncFamilies derives billing families from the PMS family module. There is
// no incremental feed for families, so the worker walks every already-synced
// patient, asks the PMS for that patient's family, and deduplicates groups
// through a per-run processed set keyed by guarantor external id.
func (s *Service) syncFamilies(ctx context.Context, _ *time.Time) (Result, error) {
	patientIDs, err := s.deps.Mappings.ExternalIDs(ctx, EntityPatients)
	if err != nil {
		return Result{}, fmt.Errorf("list patient mappings: %w", err)
	}

	processed := make(map[string]bool)
	var res Result
	for _, extPatientID := range patientIDs {
		extPatientID := extPatientID
		s.processRecord(ctx, EntityFamilies, extPatientID, &res, func(ctx context.Context) error {
			fam, err := s.deps.Adapter.FetchFamilyMembers(ctx, extPatientID)
			if err != nil {
				return err
			}
			if fam == nil || fam.GuarantorID == "" {
				return nil
			}
			if processed[fam.GuarantorID] {
				return nil
			}
			processed[fam.GuarantorID] = true

			// Single-member groups carry no relationship worth a row.
			if len(fam.MemberIDs) <= 1 {
				res.Skipped++
				return nil
			}

			guarantorID, found, err := s.deps.Mappings.Find(ctx, EntityPatients, fam.GuarantorID)
			if err != nil {
				return err
			}
			if !found {
				return dependencyGapError{
					entity:     EntityFamilies,
					externalID: fam.GuarantorID,
					dependsOn:  EntityPatients,
					parentID:   fam.GuarantorID,
				}
			}

			familyID, mapped, err := s.deps.Mappings.Find(ctx, EntityFamilies, fam.GuarantorID)
			if err != nil {
				return err
			}
			if mapped {
				if err := s.deps.Families.UpdateAggregates(ctx, familyID, len(fam.MemberIDs), fam.Balance); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityFamilies, fam.GuarantorID); err != nil {
					return err
				}
				res.Updated++
			} else {
				f := &patient.Family{
					ExternalSystem:      s.opts.ExternalSystem,
					ExternalGuarantorID: fam.GuarantorID,
					GuarantorPatientID:  guarantorID,
					MemberCount:         len(fam.MemberIDs),
					Balance:             fam.Balance,
				}
				if err := s.deps.Families.Create(ctx, f); err != nil {
					return err
				}
				if err := s.deps.Mappings.Create(ctx, EntityFamilies, fam.GuarantorID, f.ID); err != nil {
					return err
				}
				familyID = f.ID
				res.Created++
			}

			// Fan the group out across every mapped member. Members not yet
			// mapped pick their pointers up on the next run.
			for _, memberExtID := range fam.MemberIDs {
				memberID, ok, err := s.deps.Mappings.Find(ctx, EntityPatients, memberExtID)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				if err := s.deps.Patients.SetFamily(ctx, memberID, familyID, guarantorID); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return res, nil
}

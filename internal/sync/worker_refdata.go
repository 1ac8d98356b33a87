package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/billing"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/scheduling"
)

// Reference-data workers: providers, operatories, and procedure codes have
// no dependencies and share the plain pull-map-upsert shape.

func (s *Service) syncProviders(ctx context.Context, since *time.Time) (Result, error) {
	records, err := s.deps.Adapter.FetchProviders(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch providers: %w", err)
	}

	var res Result
	for i := range records {
		rec := &records[i]
		s.processRecord(ctx, EntityProviders, rec.ID, &res, func(ctx context.Context) error {
			p := &scheduling.Provider{
				ExternalSystem: s.opts.ExternalSystem,
				ExternalID:     rec.ID,
				FirstName:      rec.FirstName,
				LastName:       rec.LastName,
				Abbreviation:   rec.Abbreviation,
				IsHidden:       rec.IsHidden,
			}

			internalID, mapped, err := s.deps.Mappings.Find(ctx, EntityProviders, rec.ID)
			if err != nil {
				return err
			}
			if mapped {
				p.ID = internalID
				if err := s.deps.Providers.Update(ctx, p); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityProviders, rec.ID); err != nil {
					return err
				}
				res.Updated++
				return nil
			}

			if err := s.deps.Providers.Create(ctx, p); err != nil {
				return err
			}
			if err := s.deps.Mappings.Create(ctx, EntityProviders, rec.ID, p.ID); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	}
	return res, nil
}

func (s *Service) syncOperatories(ctx context.Context, since *time.Time) (Result, error) {
	records, err := s.deps.Adapter.FetchOperatories(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch operatories: %w", err)
	}

	var res Result
	for i := range records {
		rec := &records[i]
		s.processRecord(ctx, EntityOperatories, rec.ID, &res, func(ctx context.Context) error {
			o := &scheduling.Operatory{
				ExternalSystem: s.opts.ExternalSystem,
				ExternalID:     rec.ID,
				Name:           rec.Name,
				Abbreviation:   rec.Abbreviation,
				IsHidden:       rec.IsHidden,
			}

			internalID, mapped, err := s.deps.Mappings.Find(ctx, EntityOperatories, rec.ID)
			if err != nil {
				return err
			}
			if mapped {
				o.ID = internalID
				if err := s.deps.Operatories.Update(ctx, o); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityOperatories, rec.ID); err != nil {
					return err
				}
				res.Updated++
				return nil
			}

			if err := s.deps.Operatories.Create(ctx, o); err != nil {
				return err
			}
			if err := s.deps.Mappings.Create(ctx, EntityOperatories, rec.ID, o.ID); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	}
	return res, nil
}

func (s *Service) syncProcedureCodes(ctx context.Context, since *time.Time) (Result, error) {
	records, err := s.deps.Adapter.FetchProcedureCodes(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch procedure codes: %w", err)
	}

	var res Result
	for i := range records {
		rec := &records[i]
		s.processRecord(ctx, EntityProcedureCodes, rec.ID, &res, func(ctx context.Context) error {
			c := &billing.ProcedureCode{
				ExternalSystem:  s.opts.ExternalSystem,
				ExternalID:      rec.ID,
				Code:            rec.Code,
				Description:     rec.Description,
				AbbreviatedDesc: rec.AbbreviatedDesc,
				Category:        billing.ClassifyCategory(rec.Category),
				BaseUnits:       billing.ParseTimeUnits(rec.TimeString),
				IsHygiene:       rec.IsHygiene,
			}

			internalID, mapped, err := s.deps.Mappings.Find(ctx, EntityProcedureCodes, rec.ID)
			if err != nil {
				return err
			}
			if mapped {
				c.ID = internalID
				if err := s.deps.ProcedureCodes.Update(ctx, c); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityProcedureCodes, rec.ID); err != nil {
					return err
				}
				res.Updated++
				return nil
			}

			if err := s.deps.ProcedureCodes.Create(ctx, c); err != nil {
				return err
			}
			if err := s.deps.Mappings.Create(ctx, EntityProcedureCodes, rec.ID, c.ID); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	}
	return res, nil
}

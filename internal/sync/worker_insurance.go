package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/insurance"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms"
)

// syncInsurance runs the two-step join: plans are cached by external plan id
// in a structure local to this call, then subscriptions are joined against
// that cache. The cache is never shared across invocations or tenants.
//
// Plans are always fetched in full, not incrementally: a subscription changed
// today may reference a plan unchanged for years, and that plan must be in
// the cache for the join to succeed.
func (s *Service) syncInsurance(ctx context.Context, since *time.Time) (Result, error) {
	plans, err := s.deps.Adapter.FetchInsurancePlans(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetch insurance plans: %w", err)
	}
	planCache := make(map[string]*pms.ExternalInsurancePlan, len(plans))
	for i := range plans {
		planCache[plans[i].ID] = &plans[i]
	}

	subs, err := s.deps.Adapter.FetchInsuranceSubscriptions(ctx, since)
	if err != nil {
		return Result{}, fmt.Errorf("fetch insurance subscriptions: %w", err)
	}

	var res Result
	for i := range subs {
		rec := &subs[i]
		s.processRecord(ctx, EntityInsurance, rec.ID, &res, func(ctx context.Context) error {
			patientID, found, err := s.deps.Mappings.Find(ctx, EntityPatients, rec.PatientID)
			if err != nil {
				return err
			}
			if !found {
				return dependencyGapError{
					entity:     EntityInsurance,
					externalID: rec.ID,
					dependsOn:  EntityPatients,
					parentID:   rec.PatientID,
				}
			}

			plan, ok := planCache[rec.PlanID]
			if !ok {
				return dependencyGapError{
					entity:     EntityInsurance,
					externalID: rec.ID,
					dependsOn:  "insurance_plans",
					parentID:   rec.PlanID,
				}
			}

			p := &insurance.Policy{
				ExternalSystem:         s.opts.ExternalSystem,
				ExternalSubscriptionID: rec.ID,
				PatientID:              patientID,
				CarrierName:            plan.CarrierName,
				PlanName:               plan.PlanName,
				ExternalPlanID:         plan.ID,
				GroupNumber:            plan.GroupNumber,
				SubscriberExternalID:   rec.SubscriberID,
				Relationship:           insurance.NormalizeRelationship(rec.Relationship),
			}
			if rec.EffectiveDate != "" {
				if d, err := time.Parse("2006-01-02", rec.EffectiveDate); err == nil {
					p.EffectiveDate = &d
				}
			}
			if rec.TerminationDate != "" {
				if d, err := time.Parse("2006-01-02", rec.TerminationDate); err == nil {
					p.TerminationDate = &d
				}
			}

			internalID, mapped, err := s.deps.Mappings.Find(ctx, EntityInsurance, rec.ID)
			if err != nil {
				return err
			}
			if mapped {
				p.ID = internalID
				if err := s.deps.Policies.Update(ctx, p); err != nil {
					return err
				}
				if err := s.deps.Mappings.Touch(ctx, EntityInsurance, rec.ID); err != nil {
					return err
				}
				res.Updated++
				return nil
			}

			if err := s.deps.Policies.Create(ctx, p); err != nil {
				return err
			}
			if err := s.deps.Mappings.Create(ctx, EntityInsurance, rec.ID, p.ID); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	}
	return res, nil
}

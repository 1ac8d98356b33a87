package insurance

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relationship values are normalized through an explicit table; anything the
// PMS sends outside the table maps to the documented default, never to an
// arbitrary value.
const (
	RelationshipSelf      = "self"
	RelationshipSpouse    = "spouse"
	RelationshipChild     = "child"
	RelationshipDependent = "dependent"

	DefaultRelationship = RelationshipSelf
)

var relationshipTable = map[string]string{
	"self":               RelationshipSelf,
	"subscriber":         RelationshipSelf,
	"spouse":             RelationshipSpouse,
	"husband":            RelationshipSpouse,
	"wife":               RelationshipSpouse,
	"child":              RelationshipChild,
	"son":                RelationshipChild,
	"daughter":           RelationshipChild,
	"dependent":          RelationshipDependent,
	"handicapdependent":  RelationshipDependent,
	"dependentadult":     RelationshipDependent,
}

// NormalizeRelationship maps a vendor relationship string onto the internal
// vocabulary, falling back to DefaultRelationship for unrecognized input.
func NormalizeRelationship(raw string) string {
	if v, ok := relationshipTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return DefaultRelationship
}

// Policy maps to the insurance_policies table: one row per PMS insurance
// subscription, denormalized with its plan's carrier/group fields.
type Policy struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	ExternalSystem         string     `db:"external_system" json:"external_system"`
	ExternalSubscriptionID string     `db:"external_subscription_id" json:"external_subscription_id"`
	PatientID              uuid.UUID  `db:"patient_id" json:"patient_id"`
	CarrierName            string     `db:"carrier_name" json:"carrier_name"`
	PlanName               string     `db:"plan_name" json:"plan_name"`
	ExternalPlanID         string     `db:"external_plan_id" json:"external_plan_id"`
	GroupNumber            string     `db:"group_number" json:"group_number"`
	SubscriberExternalID   string     `db:"subscriber_external_id" json:"subscriber_external_id"`
	Relationship           string     `db:"relationship" json:"relationship"`
	EffectiveDate          *time.Time `db:"effective_date" json:"effective_date,omitempty"`
	TerminationDate        *time.Time `db:"termination_date" json:"termination_date,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

package patient

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Patient is an internal patient row materialized from the external PMS.
// ExternalSystem and ExternalID are provenance columns written once at
// creation; identity resolution always goes through the sync mapping store.
// BirthDate and ExternalID are immutable after creation.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ExternalSystem string     `db:"external_system" json:"external_system"`
	ExternalID     string     `db:"external_id" json:"external_id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	AddressLine1   *string    `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2   *string    `db:"address_line2" json:"address_line2,omitempty"`
	City           *string    `db:"city" json:"city,omitempty"`
	State          *string    `db:"state" json:"state,omitempty"`
	PostalCode     *string    `db:"postal_code" json:"postal_code,omitempty"`
	Status         string     `db:"status" json:"status"`
	FamilyID       *uuid.UUID `db:"family_id" json:"family_id,omitempty"`
	GuarantorID    *uuid.UUID `db:"guarantor_id" json:"guarantor_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Family is a billing group derived from PMS family relationships. The
// external guarantor id is the group's identity in the mapping store.
type Family struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	ExternalSystem      string          `db:"external_system" json:"external_system"`
	ExternalGuarantorID string          `db:"external_guarantor_id" json:"external_guarantor_id"`
	GuarantorPatientID  uuid.UUID       `db:"guarantor_patient_id" json:"guarantor_patient_id"`
	MemberCount         int             `db:"member_count" json:"member_count"`
	Balance             decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Package pms defines the boundary to the external practice-management
// system. The sync engine only ever sees these types and the Adapter
// interface; the vendor wire protocol lives in the opendental subpackage.
package pms

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Adapter is the typed fetch/push surface of the external PMS. Every fetch
// accepts an optional since timestamp (nil = full history) and returns
// records in the vendor's native shape. Implementations must report
// IsConfigured() == false when the deployment has no PMS connection; callers
// treat that as a graceful no-op, never an error.
type Adapter interface {
	IsConfigured() bool

	FetchPatients(ctx context.Context, since *time.Time) ([]ExternalPatient, error)
	FetchAppointments(ctx context.Context, since *time.Time) ([]ExternalAppointment, error)
	FetchInsurancePlans(ctx context.Context, since *time.Time) ([]ExternalInsurancePlan, error)
	FetchInsuranceSubscriptions(ctx context.Context, since *time.Time) ([]ExternalInsuranceSubscription, error)
	FetchProcedures(ctx context.Context, since *time.Time) ([]ExternalProcedure, error)
	FetchProcedureCodes(ctx context.Context, since *time.Time) ([]ExternalProcedureCode, error)
	FetchProviders(ctx context.Context, since *time.Time) ([]ExternalProvider, error)
	FetchOperatories(ctx context.Context, since *time.Time) ([]ExternalOperatory, error)

	// FetchFamilyMembers returns the billing family the given patient belongs
	// to, as the PMS sees it.
	FetchFamilyMembers(ctx context.Context, externalPatientID string) (*ExternalFamily, error)

	// PushPatient creates the patient in the PMS and returns the new
	// external id. This is the only internal-to-PMS write.
	PushPatient(ctx context.Context, p *PatientPush) (string, error)
}

type ExternalPatient struct {
	ID        string           `json:"PatNum"`
	FirstName string           `json:"FName"`
	LastName  string           `json:"LName"`
	BirthDate string           `json:"Birthdate"` // YYYY-MM-DD
	Email     string           `json:"Email"`
	Phone     string           `json:"WirelessPhone"`
	Status    string           `json:"PatStatus"`
	Address   *ExternalAddress `json:"Address,omitempty"`
}

type ExternalAddress struct {
	Line1      string `json:"Address"`
	Line2      string `json:"Address2"`
	City       string `json:"City"`
	State      string `json:"State"`
	PostalCode string `json:"Zip"`
}

type ExternalAppointment struct {
	ID           string    `json:"AptNum"`
	PatientID    string    `json:"PatNum"`
	ProviderID   string    `json:"ProvNum"`
	OperatoryID  string    `json:"Op"`
	StartsAt     time.Time `json:"AptDateTime"`
	EndsAt       time.Time `json:"AptDateTimeEnd"`
	Status       string    `json:"AptStatus"`
	Notes        string    `json:"Note"`
}

type ExternalInsurancePlan struct {
	ID          string `json:"PlanNum"`
	CarrierName string `json:"CarrierName"`
	PlanName    string `json:"GroupName"`
	GroupNumber string `json:"GroupNum"`
}

type ExternalInsuranceSubscription struct {
	ID              string `json:"InsSubNum"`
	PlanID          string `json:"PlanNum"`
	PatientID       string `json:"PatNum"`
	SubscriberID    string `json:"Subscriber"`
	Relationship    string `json:"Relationship"`
	EffectiveDate   string `json:"DateEffective"`   // YYYY-MM-DD, may be empty
	TerminationDate string `json:"DateTerm"`        // YYYY-MM-DD, may be empty
}

type ExternalProcedure struct {
	ID          string          `json:"ProcNum"`
	PatientID   string          `json:"PatNum"`
	ProviderID  string          `json:"ProvNum"`
	Code        string          `json:"ProcCode"`
	Description string          `json:"Descript"`
	Status      string          `json:"ProcStatus"`
	Fee         decimal.Decimal `json:"ProcFee"`
	PerformedAt time.Time       `json:"ProcDate"`
}

type ExternalProcedureCode struct {
	ID              string `json:"CodeNum"`
	Code            string `json:"ProcCode"`
	Description     string `json:"Descript"`
	AbbreviatedDesc string `json:"AbbrDesc"`
	Category        string `json:"ProcCat"`
	TimeString      string `json:"ProcTime"` // one "/" per scheduling time unit
	IsHygiene       bool   `json:"IsHygiene"`
}

type ExternalProvider struct {
	ID           string `json:"ProvNum"`
	FirstName    string `json:"FName"`
	LastName     string `json:"LName"`
	Abbreviation string `json:"Abbr"`
	IsHidden     bool   `json:"IsHidden"`
}

type ExternalOperatory struct {
	ID           string `json:"OperatoryNum"`
	Name         string `json:"OpName"`
	Abbreviation string `json:"Abbrev"`
	IsHidden     bool   `json:"IsHidden"`
}

// ExternalFamily is the PMS's view of one billing family: the guarantor, the
// member patient ids (guarantor included), and the family's balance.
type ExternalFamily struct {
	GuarantorID string          `json:"Guarantor"`
	MemberIDs   []string        `json:"Members"`
	Balance     decimal.Decimal `json:"BalTotal"`
}

// PatientPush is the subset of patient fields sent on the one-off
// internal-to-PMS push.
type PatientPush struct {
	FirstName  string `json:"FName"`
	LastName   string `json:"LName"`
	BirthDate  string `json:"Birthdate"`
	Email      string `json:"Email"`
	Phone      string `json:"WirelessPhone"`
	AddressL1  string `json:"Address"`
	AddressL2  string `json:"Address2"`
	City       string `json:"City"`
	State      string `json:"State"`
	PostalCode string `json:"Zip"`
}

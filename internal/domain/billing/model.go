package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusCompleted is the only procedure status this system stores. Anything
// else (treatment-planned, referred, deleted, condition) is filtered out
// before it can reach billing.
const StatusCompleted = "completed"

// Procedure-code categories. Classification runs through an ordered predicate
// table; unrecognized vendor categories fall back to CategoryGeneral.
const (
	CategoryDiagnostic   = "diagnostic"
	CategoryPreventive   = "preventive"
	CategoryRestorative  = "restorative"
	CategoryEndodontics  = "endodontics"
	CategoryPeriodontics = "periodontics"
	CategoryProsthetics  = "prosthetics"
	CategoryOralSurgery  = "oral_surgery"
	CategoryOrthodontics = "orthodontics"
	CategoryGeneral      = "general"
)

// categoryRule is one (substring predicate, canonical category) pair. Rules
// are evaluated in order, first match wins.
type categoryRule struct {
	substring string
	category  string
}

var categoryRules = []categoryRule{
	{"diagnos", CategoryDiagnostic},
	{"x-ray", CategoryDiagnostic},
	{"radiograph", CategoryDiagnostic},
	{"prevent", CategoryPreventive},
	{"prophy", CategoryPreventive},
	{"fluoride", CategoryPreventive},
	{"sealant", CategoryPreventive},
	{"restor", CategoryRestorative},
	{"filling", CategoryRestorative},
	{"crown", CategoryRestorative},
	{"endo", CategoryEndodontics},
	{"root canal", CategoryEndodontics},
	{"perio", CategoryPeriodontics},
	{"prosth", CategoryProsthetics},
	{"denture", CategoryProsthetics},
	{"implant", CategoryProsthetics},
	{"surg", CategoryOralSurgery},
	{"extract", CategoryOralSurgery},
	{"ortho", CategoryOrthodontics},
}

// ClassifyCategory maps a vendor category string onto the internal category
// vocabulary. Matching is case-insensitive; the first rule whose substring
// appears in the input wins; no match yields CategoryGeneral.
func ClassifyCategory(raw string) string {
	lowered := strings.ToLower(raw)
	for _, rule := range categoryRules {
		if strings.Contains(lowered, rule.substring) {
			return rule.category
		}
	}
	return CategoryGeneral
}

// ParseTimeUnits counts the scheduling time units in a PMS procedure time
// string (one "/" per unit, e.g. "/////" is 5 units). Anything other than
// slashes is ignored; an empty or malformed string is 0 units.
func ParseTimeUnits(timeString string) int {
	return strings.Count(timeString, "/")
}

// CompletedProcedure maps to the completed_procedures table. Only procedures
// the PMS marks completed ever produce a row.
type CompletedProcedure struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	ExternalSystem     string          `db:"external_system" json:"external_system"`
	ExternalID         string          `db:"external_id" json:"external_id"`
	PatientID          uuid.UUID       `db:"patient_id" json:"patient_id"`
	ProcedureCode      string          `db:"procedure_code" json:"procedure_code"`
	Description        string          `db:"description" json:"description"`
	Fee                decimal.Decimal `db:"fee" json:"fee"`
	ProviderExternalID string          `db:"provider_external_id" json:"provider_external_id"`
	PerformedAt        time.Time       `db:"performed_at" json:"performed_at"`
	Status             string          `db:"status" json:"status"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// ProcedureCode maps to the procedure_codes reference table (the practice's
// fee schedule codes, e.g. CDT codes).
type ProcedureCode struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ExternalSystem  string    `db:"external_system" json:"external_system"`
	ExternalID      string    `db:"external_id" json:"external_id"`
	Code            string    `db:"code" json:"code"`
	Description     string    `db:"description" json:"description"`
	AbbreviatedDesc string    `db:"abbreviated_desc" json:"abbreviated_desc"`
	Category        string    `db:"category" json:"category"`
	BaseUnits       int       `db:"base_units" json:"base_units"`
	IsHygiene       bool      `db:"is_hygiene" json:"is_hygiene"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

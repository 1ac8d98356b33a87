package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses form a declared finite vocabulary. Values outside it
// are rejected with ErrUnknownStatus rather than written through.
const (
	StatusScheduled   = "scheduled"
	StatusConfirmed   = "confirmed"
	StatusArrived     = "arrived"
	StatusCompleted   = "completed"
	StatusBroken      = "broken"
	StatusUnscheduled = "unscheduled"
)

// ErrUnknownStatus is returned for a status outside the declared vocabulary.
type ErrUnknownStatus struct{ Status string }

func (e ErrUnknownStatus) Error() string {
	return fmt.Sprintf("unknown appointment status: %q", e.Status)
}

// ErrInvalidTransition is returned when a status change is not allowed by the
// transition table.
type ErrInvalidTransition struct{ From, To string }

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid appointment status transition: %s -> %s", e.From, e.To)
}

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusArrived: true,
	StatusCompleted: true, StatusBroken: true, StatusUnscheduled: true,
}

// allowedTransitions is the explicit validity table. Completed is terminal;
// broken appointments may only be rescheduled. A status may always transition
// to itself (idempotent re-sync of unchanged data).
var allowedTransitions = map[string]map[string]bool{
	StatusScheduled:   {StatusConfirmed: true, StatusArrived: true, StatusCompleted: true, StatusBroken: true, StatusUnscheduled: true},
	StatusConfirmed:   {StatusArrived: true, StatusCompleted: true, StatusBroken: true, StatusUnscheduled: true},
	StatusArrived:     {StatusCompleted: true, StatusBroken: true},
	StatusCompleted:   {},
	StatusBroken:      {StatusScheduled: true, StatusUnscheduled: true},
	StatusUnscheduled: {StatusScheduled: true},
}

// ValidStatus reports whether s is in the declared vocabulary.
func ValidStatus(s string) bool { return validStatuses[s] }

// CheckTransition validates a status change against the vocabulary and the
// transition table. Same-status writes are always allowed.
func CheckTransition(from, to string) error {
	if !validStatuses[to] {
		return ErrUnknownStatus{Status: to}
	}
	if from == to {
		return nil
	}
	if !validStatuses[from] {
		return ErrUnknownStatus{Status: from}
	}
	if !allowedTransitions[from][to] {
		return ErrInvalidTransition{From: from, To: to}
	}
	return nil
}

// Appointment maps to the appointments table. PatientID is mandatory and
// resolved through the sync mapping store before the row is written;
// provider/operatory references are best-effort.
type Appointment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ExternalSystem string     `db:"external_system" json:"external_system"`
	ExternalID     string     `db:"external_id" json:"external_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID     *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	OperatoryID    *uuid.UUID `db:"operatory_id" json:"operatory_id,omitempty"`
	StartsAt       time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt         time.Time  `db:"ends_at" json:"ends_at"`
	Status         string     `db:"status" json:"status"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Provider maps to the providers reference table.
type Provider struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ExternalSystem string    `db:"external_system" json:"external_system"`
	ExternalID     string    `db:"external_id" json:"external_id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Abbreviation   string    `db:"abbreviation" json:"abbreviation"`
	IsHidden       bool      `db:"is_hidden" json:"is_hidden"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Operatory maps to the operatories reference table (a chair/room).
type Operatory struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ExternalSystem string    `db:"external_system" json:"external_system"`
	ExternalID     string    `db:"external_id" json:"external_id"`
	Name           string    `db:"name" json:"name"`
	Abbreviation   string    `db:"abbreviation" json:"abbreviation"`
	IsHidden       bool      `db:"is_hidden" json:"is_hidden"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

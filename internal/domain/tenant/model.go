package tenant

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lifecycle states a tenant can be in. Only active tenants are picked up by
// the scheduled sync sweep.
const (
	StateActive    = "active"
	StateSuspended = "suspended"
	StateClosed    = "closed"
)

var validStates = map[string]bool{
	StateActive: true, StateSuspended: true, StateClosed: true,
}

// Tenant maps to the shared.tenants registry row. Slug doubles as the
// Postgres schema suffix (tenant_<slug>).
type Tenant struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Slug           string    `db:"slug" json:"slug"`
	Name           string    `db:"name" json:"name"`
	LifecycleState string    `db:"lifecycle_state" json:"lifecycle_state"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the row is well-formed before persistence.
func (t *Tenant) Validate() error {
	if t.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if t.LifecycleState == "" {
		t.LifecycleState = StateActive
	}
	if !validStates[t.LifecycleState] {
		return fmt.Errorf("invalid lifecycle state: %s", t.LifecycleState)
	}
	return nil
}

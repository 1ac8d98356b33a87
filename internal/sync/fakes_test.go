package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/billing"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/insurance"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/patient"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/scheduling"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/tenant"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms"
)

// ---------------------------------------------------------------------------
// fake PMS adapter
// ---------------------------------------------------------------------------

type fakeAdapter struct {
	// The scheduled sweep fans tenants out across goroutines, so the call
	// log takes a lock.
	mu stdsync.Mutex

	configured bool

	patients      []pms.ExternalPatient
	appointments  []pms.ExternalAppointment
	plans         []pms.ExternalInsurancePlan
	subscriptions []pms.ExternalInsuranceSubscription
	procedures    []pms.ExternalProcedure
	codes         []pms.ExternalProcedureCode
	providers     []pms.ExternalProvider
	operatories   []pms.ExternalOperatory
	families      map[string]*pms.ExternalFamily

	fetchErr map[string]error // keyed by entity name, e.g. "patients"

	// sinceSeen records the since argument of every fetch, keyed the same way.
	sinceSeen map[string][]*time.Time
	// calls records every fetch in invocation order.
	calls []string

	pushed   []*pms.PatientPush
	pushErr  error
	nextPush int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		configured: true,
		families:   make(map[string]*pms.ExternalFamily),
		fetchErr:   make(map[string]error),
		sinceSeen:  make(map[string][]*time.Time),
	}
}

func (a *fakeAdapter) IsConfigured() bool { return a.configured }

func (a *fakeAdapter) record(name string, since *time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinceSeen[name] = append(a.sinceSeen[name], since)
	a.calls = append(a.calls, name)
	return a.fetchErr[name]
}

func (a *fakeAdapter) FetchPatients(_ context.Context, since *time.Time) ([]pms.ExternalPatient, error) {
	if err := a.record("patients", since); err != nil {
		return nil, err
	}
	return a.patients, nil
}

func (a *fakeAdapter) FetchAppointments(_ context.Context, since *time.Time) ([]pms.ExternalAppointment, error) {
	if err := a.record("appointments", since); err != nil {
		return nil, err
	}
	return a.appointments, nil
}

func (a *fakeAdapter) FetchInsurancePlans(_ context.Context, since *time.Time) ([]pms.ExternalInsurancePlan, error) {
	if err := a.record("plans", since); err != nil {
		return nil, err
	}
	return a.plans, nil
}

func (a *fakeAdapter) FetchInsuranceSubscriptions(_ context.Context, since *time.Time) ([]pms.ExternalInsuranceSubscription, error) {
	if err := a.record("subscriptions", since); err != nil {
		return nil, err
	}
	return a.subscriptions, nil
}

func (a *fakeAdapter) FetchProcedures(_ context.Context, since *time.Time) ([]pms.ExternalProcedure, error) {
	if err := a.record("procedures", since); err != nil {
		return nil, err
	}
	return a.procedures, nil
}

func (a *fakeAdapter) FetchProcedureCodes(_ context.Context, since *time.Time) ([]pms.ExternalProcedureCode, error) {
	if err := a.record("codes", since); err != nil {
		return nil, err
	}
	return a.codes, nil
}

func (a *fakeAdapter) FetchProviders(_ context.Context, since *time.Time) ([]pms.ExternalProvider, error) {
	if err := a.record("providers", since); err != nil {
		return nil, err
	}
	return a.providers, nil
}

func (a *fakeAdapter) FetchOperatories(_ context.Context, since *time.Time) ([]pms.ExternalOperatory, error) {
	if err := a.record("operatories", since); err != nil {
		return nil, err
	}
	return a.operatories, nil
}

func (a *fakeAdapter) FetchFamilyMembers(_ context.Context, externalPatientID string) (*pms.ExternalFamily, error) {
	return a.families[externalPatientID], nil
}

func (a *fakeAdapter) PushPatient(_ context.Context, p *pms.PatientPush) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pushErr != nil {
		return "", a.pushErr
	}
	a.pushed = append(a.pushed, p)
	a.nextPush++
	return fmt.Sprintf("push-%d", a.nextPush), nil
}

// ---------------------------------------------------------------------------
// in-memory watermark store
// ---------------------------------------------------------------------------

type memWatermarks struct {
	marks      map[EntityType]time.Time
	getErr     error
	advanceErr error
}

func newMemWatermarks() *memWatermarks {
	return &memWatermarks{marks: make(map[EntityType]time.Time)}
}

func (w *memWatermarks) Get(_ context.Context, entity EntityType) (*time.Time, error) {
	if w.getErr != nil {
		return nil, w.getErr
	}
	at, ok := w.marks[entity]
	if !ok {
		return nil, nil
	}
	return &at, nil
}

func (w *memWatermarks) Advance(_ context.Context, entity EntityType, at time.Time) error {
	if w.advanceErr != nil {
		return w.advanceErr
	}
	w.marks[entity] = at.UTC()
	return nil
}

func (w *memWatermarks) All(_ context.Context) (map[EntityType]time.Time, error) {
	out := make(map[EntityType]time.Time, len(w.marks))
	for k, v := range w.marks {
		out[k] = v
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// in-memory mapping store
// ---------------------------------------------------------------------------

type memMappings struct {
	byKey     map[string]uuid.UUID
	order     []Mapping // creation order
	touched   map[string]int
	createErr func(entity EntityType, externalID string) error
}

func newMemMappings() *memMappings {
	return &memMappings{
		byKey:   make(map[string]uuid.UUID),
		touched: make(map[string]int),
	}
}

func mapKey(entity EntityType, externalID string) string {
	return string(entity) + "/" + externalID
}

func (m *memMappings) Find(_ context.Context, entity EntityType, externalID string) (uuid.UUID, bool, error) {
	id, ok := m.byKey[mapKey(entity, externalID)]
	return id, ok, nil
}

func (m *memMappings) Create(_ context.Context, entity EntityType, externalID string, internalID uuid.UUID) error {
	if m.createErr != nil {
		if err := m.createErr(entity, externalID); err != nil {
			return err
		}
	}
	key := mapKey(entity, externalID)
	if _, exists := m.byKey[key]; exists {
		return fmt.Errorf("duplicate mapping %s", key)
	}
	m.byKey[key] = internalID
	m.order = append(m.order, Mapping{
		ID:         uuid.New(),
		EntityType: entity,
		ExternalID: externalID,
		InternalID: internalID,
	})
	return nil
}

func (m *memMappings) Touch(_ context.Context, entity EntityType, externalID string) error {
	m.touched[mapKey(entity, externalID)]++
	return nil
}

func (m *memMappings) ListByEntity(_ context.Context, entity EntityType, limit, offset int) ([]Mapping, int, error) {
	var filtered []Mapping
	for _, mp := range m.order {
		if entity == "" || mp.EntityType == entity {
			filtered = append(filtered, mp)
		}
	}
	total := len(filtered)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (m *memMappings) ExternalIDs(_ context.Context, entity EntityType) ([]string, error) {
	var ids []string
	for _, mp := range m.order {
		if mp.EntityType == entity {
			ids = append(ids, mp.ExternalID)
		}
	}
	return ids, nil
}

func (m *memMappings) count(entity EntityType) int {
	n := 0
	for _, mp := range m.order {
		if mp.EntityType == entity {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// in-memory repositories
// ---------------------------------------------------------------------------

type memPatientRepo struct {
	rows      map[uuid.UUID]*patient.Patient
	createErr func(p *patient.Patient) error
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{rows: make(map[uuid.UUID]*patient.Patient)}
}

func (r *memPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	if r.createErr != nil {
		if err := r.createErr(p); err != nil {
			return err
		}
	}
	p.ID = uuid.New()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("patient %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memPatientRepo) Update(_ context.Context, p *patient.Patient) error {
	existing, ok := r.rows[p.ID]
	if !ok {
		return fmt.Errorf("patient %s not found", p.ID)
	}
	cp := *p
	// Immutable after creation.
	cp.ExternalID = existing.ExternalID
	cp.BirthDate = existing.BirthDate
	cp.FamilyID = existing.FamilyID
	cp.GuarantorID = existing.GuarantorID
	r.rows[p.ID] = &cp
	return nil
}

func (r *memPatientRepo) SetFamily(_ context.Context, id uuid.UUID, familyID, guarantorID uuid.UUID) error {
	p, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("patient %s not found", id)
	}
	p.FamilyID = &familyID
	p.GuarantorID = &guarantorID
	return nil
}

func (r *memPatientRepo) List(_ context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	var out []*patient.Patient
	for _, p := range r.rows {
		out = append(out, p)
	}
	return out, len(out), nil
}

type memFamilyRepo struct {
	rows map[uuid.UUID]*patient.Family
}

func newMemFamilyRepo() *memFamilyRepo {
	return &memFamilyRepo{rows: make(map[uuid.UUID]*patient.Family)}
}

func (r *memFamilyRepo) Create(_ context.Context, f *patient.Family) error {
	f.ID = uuid.New()
	cp := *f
	r.rows[f.ID] = &cp
	return nil
}

func (r *memFamilyRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Family, error) {
	f, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("family %s not found", id)
	}
	cp := *f
	return &cp, nil
}

func (r *memFamilyRepo) UpdateAggregates(_ context.Context, id uuid.UUID, memberCount int, balance decimal.Decimal) error {
	f, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("family %s not found", id)
	}
	f.MemberCount = memberCount
	f.Balance = balance
	return nil
}

type memAppointmentRepo struct {
	rows map[uuid.UUID]*scheduling.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{rows: make(map[uuid.UUID]*scheduling.Appointment)}
}

func (r *memAppointmentRepo) Create(_ context.Context, a *scheduling.Appointment) error {
	a.ID = uuid.New()
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *memAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (r *memAppointmentRepo) Update(_ context.Context, a *scheduling.Appointment) error {
	if _, ok := r.rows[a.ID]; !ok {
		return fmt.Errorf("appointment %s not found", a.ID)
	}
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

type memProviderRepo struct {
	rows map[uuid.UUID]*scheduling.Provider
}

func newMemProviderRepo() *memProviderRepo {
	return &memProviderRepo{rows: make(map[uuid.UUID]*scheduling.Provider)}
}

func (r *memProviderRepo) Create(_ context.Context, p *scheduling.Provider) error {
	p.ID = uuid.New()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*scheduling.Provider, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", id)
	}
	return p, nil
}

func (r *memProviderRepo) Update(_ context.Context, p *scheduling.Provider) error {
	if _, ok := r.rows[p.ID]; !ok {
		return fmt.Errorf("provider %s not found", p.ID)
	}
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

type memOperatoryRepo struct {
	rows map[uuid.UUID]*scheduling.Operatory
}

func newMemOperatoryRepo() *memOperatoryRepo {
	return &memOperatoryRepo{rows: make(map[uuid.UUID]*scheduling.Operatory)}
}

func (r *memOperatoryRepo) Create(_ context.Context, o *scheduling.Operatory) error {
	o.ID = uuid.New()
	cp := *o
	r.rows[o.ID] = &cp
	return nil
}

func (r *memOperatoryRepo) GetByID(_ context.Context, id uuid.UUID) (*scheduling.Operatory, error) {
	o, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("operatory %s not found", id)
	}
	return o, nil
}

func (r *memOperatoryRepo) Update(_ context.Context, o *scheduling.Operatory) error {
	if _, ok := r.rows[o.ID]; !ok {
		return fmt.Errorf("operatory %s not found", o.ID)
	}
	cp := *o
	r.rows[o.ID] = &cp
	return nil
}

type memPolicyRepo struct {
	rows map[uuid.UUID]*insurance.Policy
}

func newMemPolicyRepo() *memPolicyRepo {
	return &memPolicyRepo{rows: make(map[uuid.UUID]*insurance.Policy)}
}

func (r *memPolicyRepo) Create(_ context.Context, p *insurance.Policy) error {
	p.ID = uuid.New()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memPolicyRepo) GetByID(_ context.Context, id uuid.UUID) (*insurance.Policy, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("policy %s not found", id)
	}
	return p, nil
}

func (r *memPolicyRepo) Update(_ context.Context, p *insurance.Policy) error {
	if _, ok := r.rows[p.ID]; !ok {
		return fmt.Errorf("policy %s not found", p.ID)
	}
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

type memProcedureRepo struct {
	rows      map[uuid.UUID]*billing.CompletedProcedure
	createErr func(p *billing.CompletedProcedure) error
}

func newMemProcedureRepo() *memProcedureRepo {
	return &memProcedureRepo{rows: make(map[uuid.UUID]*billing.CompletedProcedure)}
}

func (r *memProcedureRepo) Create(_ context.Context, p *billing.CompletedProcedure) error {
	if r.createErr != nil {
		if err := r.createErr(p); err != nil {
			return err
		}
	}
	p.ID = uuid.New()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memProcedureRepo) GetByID(_ context.Context, id uuid.UUID) (*billing.CompletedProcedure, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("procedure %s not found", id)
	}
	return p, nil
}

func (r *memProcedureRepo) Update(_ context.Context, p *billing.CompletedProcedure) error {
	if _, ok := r.rows[p.ID]; !ok {
		return fmt.Errorf("procedure %s not found", p.ID)
	}
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

type memProcedureCodeRepo struct {
	rows map[uuid.UUID]*billing.ProcedureCode
}

func newMemProcedureCodeRepo() *memProcedureCodeRepo {
	return &memProcedureCodeRepo{rows: make(map[uuid.UUID]*billing.ProcedureCode)}
}

func (r *memProcedureCodeRepo) Create(_ context.Context, c *billing.ProcedureCode) error {
	c.ID = uuid.New()
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

func (r *memProcedureCodeRepo) GetByID(_ context.Context, id uuid.UUID) (*billing.ProcedureCode, error) {
	c, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("procedure code %s not found", id)
	}
	return c, nil
}

func (r *memProcedureCodeRepo) Update(_ context.Context, c *billing.ProcedureCode) error {
	if _, ok := r.rows[c.ID]; !ok {
		return fmt.Errorf("procedure code %s not found", c.ID)
	}
	cp := *c
	r.rows[c.ID] = &cp
	return nil
}

type memTenantRepo struct {
	tenants []*tenant.Tenant
}

func (r *memTenantRepo) Create(_ context.Context, t *tenant.Tenant) error {
	t.ID = uuid.New()
	r.tenants = append(r.tenants, t)
	return nil
}

func (r *memTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	for _, t := range r.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tenant %s not found", id)
}

func (r *memTenantRepo) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	for _, t := range r.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tenant %s not found", slug)
}

func (r *memTenantRepo) ListActive(_ context.Context) ([]*tenant.Tenant, error) {
	var out []*tenant.Tenant
	for _, t := range r.tenants {
		if t.LifecycleState == tenant.StateActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTenantRepo) SetLifecycleState(_ context.Context, id uuid.UUID, state string) error {
	for _, t := range r.tenants {
		if t.ID == id {
			t.LifecycleState = state
			return nil
		}
	}
	return fmt.Errorf("tenant %s not found", id)
}

// ---------------------------------------------------------------------------
// engine harness
// ---------------------------------------------------------------------------

type testEngine struct {
	svc *Service

	adapter    *fakeAdapter
	watermarks *memWatermarks
	mappings   *memMappings
	tenants    *memTenantRepo

	patients    *memPatientRepo
	families    *memFamilyRepo
	appts       *memAppointmentRepo
	providers   *memProviderRepo
	operatories *memOperatoryRepo
	policies    *memPolicyRepo
	procedures  *memProcedureRepo
	codes       *memProcedureCodeRepo
}

func newTestEngine(adapter *fakeAdapter) *testEngine {
	e := &testEngine{
		adapter:     adapter,
		watermarks:  newMemWatermarks(),
		mappings:    newMemMappings(),
		tenants:     &memTenantRepo{},
		patients:    newMemPatientRepo(),
		families:    newMemFamilyRepo(),
		appts:       newMemAppointmentRepo(),
		providers:   newMemProviderRepo(),
		operatories: newMemOperatoryRepo(),
		policies:    newMemPolicyRepo(),
		procedures:  newMemProcedureRepo(),
		codes:       newMemProcedureCodeRepo(),
	}

	deps := Deps{
		Adapter:        adapter,
		Watermarks:     e.watermarks,
		Mappings:       e.mappings,
		Leases:         NewMemoryLeaseStore(),
		Tenants:        e.tenants,
		Patients:       e.patients,
		Families:       e.families,
		Appointments:   e.appts,
		Providers:      e.providers,
		Operatories:    e.operatories,
		Policies:       e.policies,
		Procedures:     e.procedures,
		ProcedureCodes: e.codes,
	}
	e.svc = NewService(deps, Options{ExternalSystem: "opendental"}, zerolog.Nop())
	// No database in tests; tenant scoping is a pass-through.
	e.svc.scopeTenant = func(ctx context.Context, tenantID string) (context.Context, func(), error) {
		return ctx, func() {}, nil
	}
	return e
}

// enableTx gives the in-memory stores the rollback behavior the Postgres
// stores get from a per-record transaction: on error, patient rows and
// mappings revert to their pre-record state.
func (e *testEngine) enableTx() {
	e.svc.inTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
		patientRows := make(map[uuid.UUID]*patient.Patient, len(e.patients.rows))
		for k, v := range e.patients.rows {
			cp := *v
			patientRows[k] = &cp
		}
		mapByKey := make(map[string]uuid.UUID, len(e.mappings.byKey))
		for k, v := range e.mappings.byKey {
			mapByKey[k] = v
		}
		mapOrder := append([]Mapping(nil), e.mappings.order...)

		if err := fn(ctx); err != nil {
			e.patients.rows = patientRows
			e.mappings.byKey = mapByKey
			e.mappings.order = mapOrder
			return err
		}
		return nil
	}
}

// mapPatient seeds a patient row plus its identity mapping, the way a
// previous patient sync would have left them.
func (e *testEngine) mapPatient(t *testing.T, externalID string) uuid.UUID {
	t.Helper()
	p := &patient.Patient{
		ExternalSystem: "opendental",
		ExternalID:     externalID,
		FirstName:      "Pat",
		LastName:       externalID,
		Status:         "active",
	}
	if err := e.patients.Create(context.Background(), p); err != nil {
		t.Fatalf("seed patient %s: %v", externalID, err)
	}
	if err := e.mappings.Create(context.Background(), EntityPatients, externalID, p.ID); err != nil {
		t.Fatalf("seed mapping %s: %v", externalID, err)
	}
	return p.ID
}

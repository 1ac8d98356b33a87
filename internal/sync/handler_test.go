package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms"
)

func newTestHandler(adapter *fakeAdapter) (*Handler, *testEngine, *echo.Echo) {
	e := newTestEngine(adapter)
	return NewHandler(e.svc), e, echo.New()
}

func TestHandler_TriggerSync(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.patients = []pms.ExternalPatient{extPatient("p1")}
	h, _, e := newTestHandler(adapter)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("entity")
	c.SetParamValues("patients")

	if err := h.TriggerSync(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var res Result
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Created != 1 {
		t.Errorf("created = %d, want 1", res.Created)
	}
}

func TestHandler_TriggerSync_UnknownEntityIsNotAnError(t *testing.T) {
	h, _, e := newTestHandler(newFakeAdapter())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("entity")
	c.SetParamValues("holograms")

	if err := h.TriggerSync(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with message body, got %d", rec.Code)
	}

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] == "" {
		t.Error("expected explanatory message for unknown entity")
	}
}

func TestHandler_TriggerSync_Conflict(t *testing.T) {
	h, eng, e := newTestHandler(newFakeAdapter())

	// Tenant id is "" when no tenant middleware ran.
	if _, ok, _ := eng.svc.deps.Leases.Acquire(context.Background(), "", EntityPatients, time.Minute); !ok {
		t.Fatal("seed lease")
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("entity")
	c.SetParamValues("patients")

	err := h.TriggerSync(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 HTTPError, got %v", err)
	}
}

func TestHandler_FullSync(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.patients = []pms.ExternalPatient{extPatient("p1"), extPatient("p2")}
	h, _, e := newTestHandler(adapter)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.FullSync(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Results map[EntityType]Result `json:"results"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Results[EntityPatients].Created != 2 {
		t.Errorf("patients created = %d, want 2", body.Results[EntityPatients].Created)
	}
}

func TestHandler_SyncStatus(t *testing.T) {
	h, eng, e := newTestHandler(newFakeAdapter())

	at := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	eng.watermarks.marks[EntityPatients] = at

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SyncStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var status map[string]time.Time
	json.Unmarshal(rec.Body.Bytes(), &status)
	if !status["patients"].Equal(at) {
		t.Errorf("status[patients] = %v, want %v", status["patients"], at)
	}
}

func TestHandler_PushPatient_InvalidID(t *testing.T) {
	h, _, e := newTestHandler(newFakeAdapter())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.PushPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

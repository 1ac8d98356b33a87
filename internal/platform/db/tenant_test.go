package db

import (
	"context"
	"testing"
)

func TestSchemaFor(t *testing.T) {
	if got := SchemaFor("acme_dental"); got != "tenant_acme_dental" {
		t.Errorf("SchemaFor = %q, want tenant_acme_dental", got)
	}
}

func TestValidTenantID(t *testing.T) {
	valid := []string{"default", "acme", "clinic_42", "A1"}
	for _, id := range valid {
		if !ValidTenantID(id) {
			t.Errorf("ValidTenantID(%q) = false, want true", id)
		}
	}

	invalid := []string{"", "a-b", "x;DROP SCHEMA public", "a b", "tenant.1"}
	for _, id := range invalid {
		if ValidTenantID(id) {
			t.Errorf("ValidTenantID(%q) = true, want false", id)
		}
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.Background()
	if tid := TenantFromContext(ctx); tid != "" {
		t.Errorf("TenantFromContext on empty ctx = %q, want empty", tid)
	}

	ctx = context.WithValue(ctx, TenantIDKey, "acme")
	if tid := TenantFromContext(ctx); tid != "acme" {
		t.Errorf("TenantFromContext = %q, want acme", tid)
	}
}

func TestConnFromContextEmpty(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Error("ConnFromContext on empty ctx should be nil")
	}
}

func TestTxFromContextWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("TxFromContext with wrong value type should be nil")
	}
}

func TestWithTxPassThroughWithoutConn(t *testing.T) {
	called := false
	err := WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		if TxFromContext(ctx) != nil {
			t.Error("no connection pinned, yet a transaction appeared in context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestWithTxPropagatesFnError(t *testing.T) {
	want := context.DeadlineExceeded
	err := WithTx(context.Background(), func(ctx context.Context) error {
		return want
	})
	if err != want {
		t.Fatalf("WithTx error = %v, want %v", err, want)
	}
}

func TestWithTenantRejectsInvalidID(t *testing.T) {
	_, release, err := WithTenant(context.Background(), nil, "bad-slug!")
	if err == nil {
		t.Fatal("expected error for invalid tenant slug")
	}
	if release != nil {
		t.Error("release should be nil on error")
	}
}

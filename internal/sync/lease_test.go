package sync

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLease_AcquireAndRelease(t *testing.T) {
	store := NewMemoryLeaseStore()
	ctx := context.Background()

	release, ok, err := store.Acquire(ctx, "t1", EntityPatients, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, time.Minute); ok {
		t.Fatal("second acquire succeeded while lease held")
	}

	release()
	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, time.Minute); !ok {
		t.Fatal("acquire failed after release")
	}
}

func TestMemoryLease_KeysAreIndependent(t *testing.T) {
	store := NewMemoryLeaseStore()
	ctx := context.Background()

	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, time.Minute); !ok {
		t.Fatal("acquire t1/patients")
	}
	if _, ok, _ := store.Acquire(ctx, "t1", EntityProviders, time.Minute); !ok {
		t.Error("t1/providers blocked by t1/patients")
	}
	if _, ok, _ := store.Acquire(ctx, "t2", EntityPatients, time.Minute); !ok {
		t.Error("t2/patients blocked by t1/patients")
	}
}

func TestMemoryLease_ExpiresAfterTTL(t *testing.T) {
	store := NewMemoryLeaseStore().(*memoryLeaseStore)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	// The holder crashes without releasing.
	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, 5*time.Minute); !ok {
		t.Fatal("first acquire")
	}

	now = now.Add(4 * time.Minute)
	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, 5*time.Minute); ok {
		t.Fatal("acquire succeeded before TTL expired")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, 5*time.Minute); !ok {
		t.Fatal("acquire failed after TTL expired")
	}
}

func TestMemoryLease_StaleReleaseDoesNotFreeNewHolder(t *testing.T) {
	store := NewMemoryLeaseStore().(*memoryLeaseStore)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	staleRelease, ok, _ := store.Acquire(ctx, "t1", EntityPatients, time.Minute)
	if !ok {
		t.Fatal("first acquire")
	}

	// The first holder's lease expires and a second holder takes over.
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, time.Minute); !ok {
		t.Fatal("second acquire after expiry")
	}

	// The crashed first holder finally calls release; the second holder's
	// lease must survive it.
	staleRelease()
	if _, ok, _ := store.Acquire(ctx, "t1", EntityPatients, time.Minute); ok {
		t.Fatal("stale release freed the new holder's lease")
	}
}

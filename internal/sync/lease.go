package sync

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LeaseStore hands out advisory leases keyed by (tenant, entity) so that a
// manual trigger and a scheduled sweep can never race on the same key. The
// TTL bounds how long a crashed holder can block the key; on a clean exit
// the release func frees it immediately.
type LeaseStore interface {
	// Acquire returns ok == false without error when another holder has the
	// lease. The release func must be called on every exit path; it is safe
	// to call when ok == false (no-op).
	Acquire(ctx context.Context, tenantID string, entity EntityType, ttl time.Duration) (release func(), ok bool, err error)
}

func leaseKey(tenantID string, entity EntityType) string {
	return fmt.Sprintf("sync:lease:%s:%s", tenantID, entity)
}

// memoryLeaseStore is a process-local LeaseStore for single-node deployments
// and tests.
type memoryLeaseStore struct {
	mu     sync.Mutex
	leases map[string]time.Time // key -> expiry
	now    func() time.Time
}

func NewMemoryLeaseStore() LeaseStore {
	return &memoryLeaseStore{
		leases: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *memoryLeaseStore) Acquire(_ context.Context, tenantID string, entity EntityType, ttl time.Duration) (func(), bool, error) {
	key := leaseKey(tenantID, entity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, held := s.leases[key]; held && s.now().Before(expiry) {
		return func() {}, false, nil
	}

	expiry := s.now().Add(ttl)
	s.leases[key] = expiry

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Only delete our own lease; a lease that expired and was re-acquired
		// belongs to the new holder.
		if cur, held := s.leases[key]; held && cur.Equal(expiry) {
			delete(s.leases, key)
		}
	}
	return release, true, nil
}

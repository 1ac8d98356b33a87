package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisLeaseStore implements LeaseStore with SET NX PX, so leases are shared
// across engine instances. Release is a compare-and-delete on the holder
// token to avoid freeing a lease that already expired and was re-acquired.
type redisLeaseStore struct {
	client *redis.Client
}

func NewRedisLeaseStore(client *redis.Client) LeaseStore {
	return &redisLeaseStore{client: client}
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *redisLeaseStore) Acquire(ctx context.Context, tenantID string, entity EntityType, ttl time.Duration) (func(), bool, error) {
	key := leaseKey(tenantID, entity)
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return func() {}, false, nil
	}

	release := func() {
		// Release happens on every exit path, including after the request ctx
		// is done, so use a short independent timeout.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, s.client, []string{key}, token).Err()
	}
	return release, true, nil
}

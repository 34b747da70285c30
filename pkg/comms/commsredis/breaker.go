// Package commsredis provides a Redis-backed circuit-breaker store so
// multiple processes share one breaker per channel.
package commsredis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/redis/go-redis/v9"
)

// stateTTL caps how long stale breaker state lives in Redis. It only needs
// to outlast the cooldown window.
const stateTTL = 30 * time.Minute

// RedisBreakerStore implements comms.BreakerStore on Redis.
type RedisBreakerStore struct {
	rdb *redis.Client
}

// NewRedisBreakerStore creates a Redis-backed breaker store.
func NewRedisBreakerStore(rdb *redis.Client) *RedisBreakerStore {
	return &RedisBreakerStore{rdb: rdb}
}

func breakerKey(channel comms.Service) string {
	return fmt.Sprintf("comms:breaker:%s", channel)
}

// Get implements comms.BreakerStore.
func (s *RedisBreakerStore) Get(ctx context.Context, channel comms.Service) (comms.BreakerState, error) {
	data, err := s.rdb.Get(ctx, breakerKey(channel)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return comms.BreakerState{}, nil
		}
		return comms.BreakerState{}, err
	}

	var state comms.BreakerState
	if err := json.Unmarshal(data, &state); err != nil {
		return comms.BreakerState{}, err
	}
	return state, nil
}

// Set implements comms.BreakerStore.
func (s *RedisBreakerStore) Set(ctx context.Context, channel comms.Service, state comms.BreakerState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, breakerKey(channel), data, stateTTL).Err()
}

// Reset implements comms.BreakerStore.
func (s *RedisBreakerStore) Reset(ctx context.Context, channel comms.Service) error {
	return s.rdb.Del(ctx, breakerKey(channel)).Err()
}

package comms

import (
	"context"
	"sync"
	"time"
)

// BreakerState is the persisted circuit-breaker state for one channel.
type BreakerState struct {
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at"`
}

// Open reports whether the breaker tripped (OpenedAt is set).
func (s BreakerState) Open() bool {
	return !s.OpenedAt.IsZero()
}

// BreakerStore persists breaker state per channel. State is keyed by
// channel, not per recipient: a burst of failures for one recipient trips
// delivery for everyone on that channel. Implementations must be safe for
// concurrent use.
type BreakerStore interface {
	Get(ctx context.Context, channel Service) (BreakerState, error)
	Set(ctx context.Context, channel Service, state BreakerState) error
	Reset(ctx context.Context, channel Service) error
}

// CircuitBreaker stops calling a failing provider after Threshold
// consecutive failures, for a Cooldown window. The store is injected so
// tests can reset state and multiple processes can share one breaker.
type CircuitBreaker struct {
	store     BreakerStore
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewCircuitBreaker creates a breaker over the given store.
func NewCircuitBreaker(store BreakerStore, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &CircuitBreaker{
		store:     store,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (b *CircuitBreaker) SetClock(now func() time.Time) {
	b.now = now
}

// Allow reports whether a send may proceed. An open breaker whose cooldown
// has elapsed closes again and allows the attempt.
func (b *CircuitBreaker) Allow(ctx context.Context, channel Service) (bool, error) {
	state, err := b.store.Get(ctx, channel)
	if err != nil {
		// A broken breaker store must not block delivery.
		return true, err
	}
	if !state.Open() {
		return true, nil
	}
	if b.now().Sub(state.OpenedAt) >= b.cooldown {
		if err := b.store.Reset(ctx, channel); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// OnSuccess closes the breaker and clears the failure count.
func (b *CircuitBreaker) OnSuccess(ctx context.Context, channel Service) error {
	return b.store.Reset(ctx, channel)
}

// OnFailure records one failure and opens the breaker when the consecutive
// failure count reaches the threshold. Returns true when the breaker is
// now open.
func (b *CircuitBreaker) OnFailure(ctx context.Context, channel Service) (bool, error) {
	state, err := b.store.Get(ctx, channel)
	if err != nil {
		return false, err
	}

	state.Failures++
	if state.Failures >= b.threshold && !state.Open() {
		state.OpenedAt = b.now()
	}

	if err := b.store.Set(ctx, channel, state); err != nil {
		return state.Open(), err
	}
	return state.Open(), nil
}

// MemoryBreakerStore is the in-process BreakerStore used by default and in
// tests.
type MemoryBreakerStore struct {
	mu     sync.Mutex
	states map[Service]BreakerState
}

// NewMemoryBreakerStore creates an empty in-memory store.
func NewMemoryBreakerStore() *MemoryBreakerStore {
	return &MemoryBreakerStore{states: make(map[Service]BreakerState)}
}

func (m *MemoryBreakerStore) Get(_ context.Context, channel Service) (BreakerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[channel], nil
}

func (m *MemoryBreakerStore) Set(_ context.Context, channel Service, state BreakerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[channel] = state
	return nil
}

func (m *MemoryBreakerStore) Reset(_ context.Context, channel Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, channel)
	return nil
}

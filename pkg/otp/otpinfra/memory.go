package otpinfra

import (
	"context"
	"sync"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp"
)

// MemoryRepository is an in-memory otp.Repository for tests and dev mode.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*otp.Record
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*otp.Record)}
}

func recordKey(phone, countryCode string, purpose otp.Purpose) string {
	return phone + "|" + countryCode + "|" + string(purpose)
}

func (r *MemoryRepository) Upsert(ctx context.Context, record *otp.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *record
	r.records[recordKey(record.Phone, record.CountryCode, record.Purpose)] = &clone
	return nil
}

func (r *MemoryRepository) GetLatest(ctx context.Context, phone, countryCode string, purpose otp.Purpose) (*otp.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[recordKey(phone, countryCode, purpose)]
	if !ok {
		return nil, otp.ErrNoActiveOTP()
	}
	clone := *record
	return &clone, nil
}

func (r *MemoryRepository) Update(ctx context.Context, record *otp.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(record.Phone, record.CountryCode, record.Purpose)
	if _, ok := r.records[key]; !ok {
		return otp.ErrNoActiveOTP()
	}
	clone := *record
	r.records[key] = &clone
	return nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for key, record := range r.records {
		if record.ExpiresAt.Before(cutoff) {
			delete(r.records, key)
		}
	}
	return nil
}

// MemoryRateLimiter is an in-memory otp.RateLimiter for tests and dev
// mode. Windows are fixed, starting at the first hit.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	counts  map[string]int64
	resets  map[string]time.Time
	nowFunc func() time.Time
}

// NewMemoryRateLimiter creates an empty in-memory rate limiter.
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		counts:  make(map[string]int64),
		resets:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// SetClock overrides the time source for tests.
func (l *MemoryRateLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.nowFunc = now
	l.mu.Unlock()
}

func (l *MemoryRateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if resetAt, ok := l.resets[key]; !ok || now.After(resetAt) {
		l.counts[key] = 0
		l.resets[key] = now.Add(window)
	}
	l.counts[key]++
	return l.counts[key], l.resets[key], nil
}

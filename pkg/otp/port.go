package otp

import (
	"context"
	"time"
)

// Repository persists OTP records, one per phone+purpose.
type Repository interface {
	// Upsert stores the record, replacing any prior record for the same
	// phone+countryCode+purpose.
	Upsert(ctx context.Context, record *Record) error

	// GetLatest returns the most recent record for the key, terminal or
	// not, so callers can report why verification failed. Returns
	// ErrNoActiveOTP when no record exists.
	GetLatest(ctx context.Context, phone, countryCode string, purpose Purpose) (*Record, error)

	// Update persists attempt and verification state changes.
	Update(ctx context.Context, record *Record) error

	// DeleteExpired removes long-expired records.
	DeleteExpired(ctx context.Context) error
}

// RateLimiter counts sends per key within a rolling window. Hit must
// increment and read atomically at the storage layer: two concurrent
// requests must not both observe a count just under the cap.
type RateLimiter interface {
	// Hit increments the counter for key and returns the new count and
	// the time the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

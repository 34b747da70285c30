package comms

import (
	"context"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
)

// RetryOptions drives caller-level retry orchestration. Adapters never loop;
// this layer owns attempt counting and backoff.
type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryOptions returns the standard retry policy.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

// WithSleep overrides the backoff sleeper. Tests only.
func (o RetryOptions) WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryOptions {
	o.sleep = sleep
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SendWithRetry sends through the channel, retrying with exponential backoff
// while the classifier marks the failure retryable. The final result carries
// RetryCount (retries performed) and TotalAttempts.
func SendWithRetry(ctx context.Context, ch Channel, msg Message, opts RetryOptions) *Result {
	if opts.sleep == nil {
		opts.sleep = sleepCtx
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var result *Result
	attempts := 0

	for {
		result = ch.Send(ctx, msg)
		attempts++

		if result.Success || !result.Retryable || attempts > opts.MaxRetries {
			break
		}

		logx.WithFields(logx.Fields{
			"service":    ch.Service().String(),
			"error_type": result.ErrorType.String(),
			"attempt":    attempts,
			"backoff":    backoff.String(),
		}).Warn("delivery failed, retrying")

		if err := opts.sleep(ctx, backoff); err != nil {
			break
		}
		backoff *= 2
	}

	result.RetryCount = attempts - 1
	result.TotalAttempts = attempts
	return result
}

// Dispatcher applies caller-level delivery policy: retry on the primary
// channel and, when it fails terminally, one attempt on the fallback
// channel. Fallback is policy here, never inside an adapter.
type Dispatcher struct {
	primary  Channel
	fallback Channel
	opts     RetryOptions
}

// NewDispatcher creates a dispatcher. fallback may be nil to disable it.
func NewDispatcher(primary, fallback Channel, opts RetryOptions) *Dispatcher {
	return &Dispatcher{primary: primary, fallback: fallback, opts: opts}
}

// Service reports the primary channel's service, so a Dispatcher can be
// used anywhere a plain Channel is expected.
func (d *Dispatcher) Service() Service {
	return d.primary.Service()
}

// Send delivers the message per the dispatcher policy.
func (d *Dispatcher) Send(ctx context.Context, msg Message) *Result {
	result := SendWithRetry(ctx, d.primary, msg, d.opts)
	if result.Success || d.fallback == nil {
		return result
	}

	logx.WithFields(logx.Fields{
		"primary":  d.primary.Service().String(),
		"fallback": d.fallback.Service().String(),
	}).Warn("primary channel failed, trying fallback")

	fbResult := d.fallback.Send(ctx, msg)
	fbResult.RetryCount = result.RetryCount
	fbResult.TotalAttempts = result.TotalAttempts + 1
	fbResult.WithMeta(MetaFallbackUsed, true).
		WithMeta(MetaFallbackChannel, d.fallback.Service().String())
	return fbResult
}

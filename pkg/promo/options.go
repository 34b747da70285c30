package promo

import "time"

// Options configures the dispatcher worker pool.
type Options struct {
	Concurrency     int
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	DequeueTimeout  time.Duration
	RetryDelay      time.Duration
	MaxRetries      int
}

func defaultOptions() Options {
	return Options{
		Concurrency:     4,
		PollInterval:    time.Second,
		ShutdownTimeout: 30 * time.Second,
		DequeueTimeout:  5 * time.Second,
		RetryDelay:      30 * time.Second,
		MaxRetries:      3,
	}
}

// Option is a functional option for configuring the dispatcher.
type Option func(*Options)

// WithConcurrency sets the number of delivery workers.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPollInterval sets the promoter tick and idle backoff interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = d
	}
}

// WithShutdownTimeout sets the maximum drain time on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ShutdownTimeout = d
	}
}

// WithDequeueTimeout sets the timeout for the blocking dequeue call.
func WithDequeueTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.DequeueTimeout = d
	}
}

// WithRetryDelay sets the delay before a retryable failure runs again.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) {
		o.RetryDelay = d
	}
}

// WithMaxRetries sets the default retry budget per delivery.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

package comms

import "time"

// Metadata keys shared across channels. Channel-specific keys (message SID,
// template name) are set ad hoc by the adapter that knows about them.
const (
	MetaMessageID          = "message_id"
	MetaExpiresIn          = "expires_in"
	MetaAttemptsUsed       = "attempts_used"
	MetaMaxAttempts        = "max_attempts"
	MetaRateLimited        = "rate_limited"
	MetaExpired            = "expired"
	MetaFallbackUsed       = "fallback_used"
	MetaFallbackChannel    = "fallback_channel"
	MetaCircuitBreakerOpen = "circuit_breaker_open"
	MetaDeliveryFailed     = "delivery_failed"
	MetaSessionToken       = "session_token"
)

// Result is the uniform outcome envelope produced by every channel adapter
// and by the OTP engine. On failure, Message is always non-empty and
// ErrorType/Retryable carry the classifier verdict.
//
// The flat RateLimited/Expired/ExpiresIn/AttemptsLeft fields mirror their
// metadata counterparts for older API consumers. The Set* helpers are the
// only write path for both, which keeps the two views consistent.
type Result struct {
	Success       bool                   `json:"success"`
	Message       string                 `json:"message"`
	Service       Service                `json:"service"`
	ErrorType     ErrorType              `json:"errorType,omitempty"`
	ErrorCode     string                 `json:"errorCode,omitempty"`
	Retryable     bool                   `json:"retryable"`
	RetryCount    int                    `json:"retryCount,omitempty"`
	TotalAttempts int                    `json:"totalAttempts,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`

	// Deprecated: read Metadata instead. Kept for backward compatibility
	// with the flat response shape.
	RateLimited  bool `json:"rateLimited,omitempty"`
	Expired      bool `json:"expired,omitempty"`
	ExpiresIn    int  `json:"expiresIn,omitempty"`
	AttemptsLeft int  `json:"attemptsLeft,omitempty"`
}

// Succeed builds a success result for the given service.
func Succeed(service Service, message string) *Result {
	return &Result{
		Success:   true,
		Message:   message,
		Service:   service,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// Fail builds a failure result, deriving the error type and retryability
// from the raw provider code and message via the classifier.
func Fail(service Service, message, errorCode string) *Result {
	errType := CategorizeError(errorCode, message)
	return &Result{
		Success:   false,
		Message:   message,
		Service:   service,
		ErrorType: errType,
		ErrorCode: errorCode,
		Retryable: IsErrorRetryable(errType, errorCode),
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// FailWithType builds a failure result with an explicit error type, for
// conditions detected locally rather than reported by a provider.
func FailWithType(service Service, message string, errType ErrorType) *Result {
	return &Result{
		Success:   false,
		Message:   message,
		Service:   service,
		ErrorType: errType,
		Retryable: IsErrorRetryable(errType, ""),
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// WithMeta sets a metadata entry (chainable).
func (r *Result) WithMeta(key string, value interface{}) *Result {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	r.Metadata[key] = value
	return r
}

// SetRateLimited marks the result as throttled in both views.
func (r *Result) SetRateLimited() *Result {
	r.RateLimited = true
	return r.WithMeta(MetaRateLimited, true)
}

// SetExpired marks the result as expired in both views.
func (r *Result) SetExpired() *Result {
	r.Expired = true
	return r.WithMeta(MetaExpired, true)
}

// SetExpiresIn records the validity window in seconds in both views.
func (r *Result) SetExpiresIn(seconds int) *Result {
	r.ExpiresIn = seconds
	return r.WithMeta(MetaExpiresIn, seconds)
}

// SetAttempts records attempt budget usage in both views.
func (r *Result) SetAttempts(used, max int) *Result {
	if left := max - used; left > 0 {
		r.AttemptsLeft = left
	}
	return r.WithMeta(MetaAttemptsUsed, used).WithMeta(MetaMaxAttempts, max)
}

// SetCircuitOpen marks the result as short-circuited by an open breaker.
func (r *Result) SetCircuitOpen() *Result {
	return r.WithMeta(MetaCircuitBreakerOpen, true)
}

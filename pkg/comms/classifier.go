package comms

import "strings"

// ErrorType is the normalized taxonomy every channel failure is mapped into.
// Callers branch on this (and on Retryable), never on raw provider codes.
type ErrorType string

const (
	ErrorValidation         ErrorType = "validation"
	ErrorAuthentication     ErrorType = "authentication"
	ErrorRateLimit          ErrorType = "rate_limit"
	ErrorServiceUnavailable ErrorType = "service_unavailable"
	ErrorPolicyViolation    ErrorType = "policy_violation"
	ErrorNetwork            ErrorType = "network"
	ErrorUnknown            ErrorType = "unknown"
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return string(t)
}

// providerCodes maps exact provider error codes to their category. The table
// is consulted before any heuristic so known codes classify deterministically.
// Twilio codes per https://www.twilio.com/docs/api/errors.
var providerCodes = map[string]ErrorType{
	// Authentication
	"401":   ErrorAuthentication,
	"20003": ErrorAuthentication, // authentication error
	"20005": ErrorAuthentication, // account suspended

	// Rate limiting
	"429":   ErrorRateLimit,
	"63021": ErrorRateLimit, // WhatsApp rate limit hit

	// Policy violations
	"403":   ErrorPolicyViolation,
	"63018": ErrorPolicyViolation, // recipient outside allowed window
	"63032": ErrorPolicyViolation, // business policy violation

	// Validation
	"400":   ErrorValidation,
	"21211": ErrorValidation, // invalid 'To' number
	"21408": ErrorValidation, // permission not enabled for region
	"21610": ErrorValidation, // recipient opted out
	"21614": ErrorValidation, // not a valid mobile number

	// Service availability
	"500": ErrorServiceUnavailable,
	"503": ErrorServiceUnavailable,
}

// classifierRule is one heuristic applied to unmapped codes and raw messages.
// Rules are evaluated in order; the first match wins.
type classifierRule struct {
	errType      ErrorType
	codeContains []string
	codePrefixes []string
	msgContains  []string
}

var classifierRules = []classifierRule{
	{
		errType:      ErrorAuthentication,
		codeContains: []string{"401", "20003"},
		msgContains:  []string{"authentication", "unauthorized"},
	},
	{
		errType:      ErrorRateLimit,
		codeContains: []string{"429", "63021"},
		msgContains:  []string{"rate limit", "too many"},
	},
	{
		errType:      ErrorValidation,
		codePrefixes: []string{"400", "21"},
		msgContains:  []string{"invalid", "validation"},
	},
	{
		errType:      ErrorPolicyViolation,
		codeContains: []string{"403", "63018", "63032"},
		msgContains:  []string{"policy", "violation"},
	},
	{
		errType:      ErrorServiceUnavailable,
		codeContains: []string{"500", "503"},
		msgContains:  []string{"unavailable", "timeout"},
	},
	{
		errType:     ErrorNetwork,
		msgContains: []string{"network", "connection", "dns"},
	},
}

func (r classifierRule) matches(code, msg string) bool {
	for _, sub := range r.codeContains {
		if code != "" && strings.Contains(code, sub) {
			return true
		}
	}
	for _, prefix := range r.codePrefixes {
		if code != "" && strings.HasPrefix(code, prefix) {
			return true
		}
	}
	for _, sub := range r.msgContains {
		if msg != "" && strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

// CategorizeError maps a raw provider error code and/or message to the
// normalized taxonomy. Pure function; the exact-code table wins over the
// substring heuristics, and heuristic precedence is authentication >
// rate_limit > validation > policy_violation > service_unavailable > network.
func CategorizeError(errorCode, errorMessage string) ErrorType {
	code := strings.ToLower(strings.TrimSpace(errorCode))
	msg := strings.ToLower(errorMessage)

	if code == "" && msg == "" {
		return ErrorUnknown
	}

	if t, ok := providerCodes[code]; ok {
		return t
	}

	for _, rule := range classifierRules {
		if rule.matches(code, msg) {
			return rule.errType
		}
	}

	return ErrorUnknown
}

// permanentCodes are provider codes known to never succeed on retry even
// though they classify as unknown: dead numbers, opt-outs, closed accounts.
var permanentCodes = map[string]struct{}{
	"21211": {}, // invalid 'To' number
	"21610": {}, // recipient opted out
	"21614": {}, // not a mobile number
	"20005": {}, // account suspended
	"30003": {}, // unreachable handset
	"30005": {}, // unknown destination
	"30006": {}, // landline or unreachable carrier
}

// IsErrorRetryable decides whether a failure of the given type is worth
// retrying. Validation, authentication and policy failures never are;
// throttling, availability and network failures always are. Unknown
// failures default to retryable unless the code is known-permanent.
func IsErrorRetryable(errType ErrorType, errorCode string) bool {
	switch errType {
	case ErrorValidation, ErrorAuthentication, ErrorPolicyViolation:
		return false
	case ErrorRateLimit, ErrorServiceUnavailable, ErrorNetwork:
		return true
	default:
		code := strings.ToLower(strings.TrimSpace(errorCode))
		if code == "" {
			return true
		}
		_, permanent := permanentCodes[code]
		return !permanent
	}
}

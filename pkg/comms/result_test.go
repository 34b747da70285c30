package comms_test

import (
	"testing"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
)

// The flat fields and their metadata counterparts must always agree: the
// Set* helpers are the only write path for both.
func TestResult_FlatFieldsMirrorMetadata(t *testing.T) {
	r := comms.FailWithType(comms.ServiceOTP, "too many requests", comms.ErrorRateLimit).
		SetRateLimited().
		SetExpiresIn(300)

	if !r.RateLimited {
		t.Fatal("flat RateLimited not set")
	}
	if v, _ := r.Metadata[comms.MetaRateLimited].(bool); !v {
		t.Fatal("metadata rate_limited not set")
	}
	if r.ExpiresIn != 300 {
		t.Fatalf("flat ExpiresIn = %d, want 300", r.ExpiresIn)
	}
	if v, _ := r.Metadata[comms.MetaExpiresIn].(int); v != 300 {
		t.Fatalf("metadata expires_in = %v, want 300", r.Metadata[comms.MetaExpiresIn])
	}
}

func TestResult_SetAttempts(t *testing.T) {
	r := comms.FailWithType(comms.ServiceOTP, "wrong code", comms.ErrorValidation).
		SetAttempts(1, 3)

	if r.AttemptsLeft != 2 {
		t.Fatalf("AttemptsLeft = %d, want 2", r.AttemptsLeft)
	}
	if used, _ := r.Metadata[comms.MetaAttemptsUsed].(int); used != 1 {
		t.Fatalf("metadata attempts_used = %v, want 1", r.Metadata[comms.MetaAttemptsUsed])
	}
	if max, _ := r.Metadata[comms.MetaMaxAttempts].(int); max != 3 {
		t.Fatalf("metadata max_attempts = %v, want 3", r.Metadata[comms.MetaMaxAttempts])
	}

	// At the ceiling nothing is left; the flat field stays zero.
	r = comms.FailWithType(comms.ServiceOTP, "exhausted", comms.ErrorValidation).
		SetAttempts(3, 3)
	if r.AttemptsLeft != 0 {
		t.Fatalf("AttemptsLeft = %d, want 0", r.AttemptsLeft)
	}
}

func TestResult_SetExpired(t *testing.T) {
	r := comms.FailWithType(comms.ServiceOTP, "expired", comms.ErrorValidation).SetExpired()

	if !r.Expired {
		t.Fatal("flat Expired not set")
	}
	if v, _ := r.Metadata[comms.MetaExpired].(bool); !v {
		t.Fatal("metadata expired not set")
	}
}

func TestFail_ClassifiesFromCode(t *testing.T) {
	r := comms.Fail(comms.ServiceWhatsApp, "something failed", "429")

	if r.ErrorType != comms.ErrorRateLimit {
		t.Fatalf("ErrorType = %q, want rate_limit", r.ErrorType)
	}
	if !r.Retryable {
		t.Fatal("rate_limit failures must be retryable")
	}
	if r.ErrorCode != "429" {
		t.Fatalf("ErrorCode = %q, want 429", r.ErrorCode)
	}
}

package comms_test

import (
	"context"
	"testing"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
)

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	ctx := context.Background()
	cb := comms.NewCircuitBreaker(comms.NewMemoryBreakerStore(), 5, 5*time.Minute)

	for i := 0; i < 4; i++ {
		open, err := cb.OnFailure(ctx, comms.ServiceWhatsApp)
		if err != nil {
			t.Fatalf("OnFailure %d: unexpected error %v", i, err)
		}
		if open {
			t.Fatalf("breaker open after %d failures, threshold is 5", i+1)
		}
	}

	open, err := cb.OnFailure(ctx, comms.ServiceWhatsApp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !open {
		t.Fatal("breaker should open on the 5th consecutive failure")
	}

	allowed, _ := cb.Allow(ctx, comms.ServiceWhatsApp)
	if allowed {
		t.Fatal("open breaker must short-circuit sends")
	}
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	ctx := context.Background()
	cb := comms.NewCircuitBreaker(comms.NewMemoryBreakerStore(), 5, 5*time.Minute)

	for i := 0; i < 4; i++ {
		_, _ = cb.OnFailure(ctx, comms.ServiceWhatsApp)
	}
	if err := cb.OnSuccess(ctx, comms.ServiceWhatsApp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The counter restarted; four more failures must not trip it.
	for i := 0; i < 4; i++ {
		open, _ := cb.OnFailure(ctx, comms.ServiceWhatsApp)
		if open {
			t.Fatalf("breaker open after reset + %d failures", i+1)
		}
	}
}

func TestCircuitBreaker_CooldownReopens(t *testing.T) {
	ctx := context.Background()
	cb := comms.NewCircuitBreaker(comms.NewMemoryBreakerStore(), 5, 5*time.Minute)

	now := time.Now()
	cb.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		_, _ = cb.OnFailure(ctx, comms.ServiceWhatsApp)
	}
	if allowed, _ := cb.Allow(ctx, comms.ServiceWhatsApp); allowed {
		t.Fatal("breaker should be open")
	}

	// Just before the cooldown elapses: still open.
	now = now.Add(5*time.Minute - time.Second)
	if allowed, _ := cb.Allow(ctx, comms.ServiceWhatsApp); allowed {
		t.Fatal("breaker should still be open before cooldown elapses")
	}

	// Cooldown elapsed: the breaker closes and allows the attempt.
	now = now.Add(2 * time.Second)
	if allowed, _ := cb.Allow(ctx, comms.ServiceWhatsApp); !allowed {
		t.Fatal("breaker should close after cooldown")
	}

	// And the failure count started over.
	open, _ := cb.OnFailure(ctx, comms.ServiceWhatsApp)
	if open {
		t.Fatal("single failure after cooldown reset must not reopen breaker")
	}
}

func TestCircuitBreaker_PerChannelState(t *testing.T) {
	ctx := context.Background()
	cb := comms.NewCircuitBreaker(comms.NewMemoryBreakerStore(), 5, 5*time.Minute)

	for i := 0; i < 5; i++ {
		_, _ = cb.OnFailure(ctx, comms.ServiceWhatsApp)
	}

	if allowed, _ := cb.Allow(ctx, comms.ServiceWhatsApp); allowed {
		t.Fatal("whatsapp breaker should be open")
	}
	if allowed, _ := cb.Allow(ctx, comms.ServiceSMS); !allowed {
		t.Fatal("sms breaker must be independent of whatsapp")
	}
}

package comms_test

import (
	"context"
	"testing"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
)

// scriptedChannel returns canned results in order, then repeats the last.
type scriptedChannel struct {
	service comms.Service
	results []*comms.Result
	calls   int
}

func (c *scriptedChannel) Service() comms.Service { return c.service }

func (c *scriptedChannel) Send(_ context.Context, _ comms.Message) *comms.Result {
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	r := *c.results[i]
	r.Metadata = map[string]interface{}{}
	return &r
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestSendWithRetry_RetriesTransientFailures(t *testing.T) {
	ch := &scriptedChannel{
		service: comms.ServiceWhatsApp,
		results: []*comms.Result{
			comms.FailWithType(comms.ServiceWhatsApp, "unavailable", comms.ErrorServiceUnavailable),
			comms.FailWithType(comms.ServiceWhatsApp, "unavailable", comms.ErrorServiceUnavailable),
			comms.Succeed(comms.ServiceWhatsApp, "sent"),
		},
	}

	opts := comms.RetryOptions{MaxRetries: 3, Backoff: time.Millisecond}.WithSleep(noSleep)
	result := comms.SendWithRetry(context.Background(), ch, comms.Message{To: "+10000000000", Body: "hi"}, opts)

	if !result.Success {
		t.Fatalf("expected eventual success, got %+v", result)
	}
	if ch.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", ch.calls)
	}
	if result.RetryCount != 2 || result.TotalAttempts != 3 {
		t.Fatalf("expected retryCount=2 totalAttempts=3, got %d/%d",
			result.RetryCount, result.TotalAttempts)
	}
}

func TestSendWithRetry_NoRetryOnTerminalFailure(t *testing.T) {
	ch := &scriptedChannel{
		service: comms.ServiceWhatsApp,
		results: []*comms.Result{
			comms.FailWithType(comms.ServiceWhatsApp, "invalid phone", comms.ErrorValidation),
		},
	}

	opts := comms.RetryOptions{MaxRetries: 3, Backoff: time.Millisecond}.WithSleep(noSleep)
	result := comms.SendWithRetry(context.Background(), ch, comms.Message{To: "bad", Body: "hi"}, opts)

	if result.Success {
		t.Fatal("expected failure")
	}
	if ch.calls != 1 {
		t.Fatalf("validation failure must not retry, got %d attempts", ch.calls)
	}
	if result.RetryCount != 0 || result.TotalAttempts != 1 {
		t.Fatalf("expected retryCount=0 totalAttempts=1, got %d/%d",
			result.RetryCount, result.TotalAttempts)
	}
}

func TestSendWithRetry_ExhaustsBudget(t *testing.T) {
	ch := &scriptedChannel{
		service: comms.ServiceWhatsApp,
		results: []*comms.Result{
			comms.FailWithType(comms.ServiceWhatsApp, "down", comms.ErrorServiceUnavailable),
		},
	}

	opts := comms.RetryOptions{MaxRetries: 2, Backoff: time.Millisecond}.WithSleep(noSleep)
	result := comms.SendWithRetry(context.Background(), ch, comms.Message{To: "+10000000000", Body: "hi"}, opts)

	if result.Success {
		t.Fatal("expected failure after budget exhausted")
	}
	// Initial attempt plus two retries.
	if ch.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", ch.calls)
	}
}

func TestDispatcher_FallbackOnTerminalFailure(t *testing.T) {
	primary := &scriptedChannel{
		service: comms.ServiceWhatsApp,
		results: []*comms.Result{
			comms.FailWithType(comms.ServiceWhatsApp, "opted out", comms.ErrorPolicyViolation),
		},
	}
	fallback := &scriptedChannel{
		service: comms.ServiceSMS,
		results: []*comms.Result{
			comms.Succeed(comms.ServiceSMS, "sent"),
		},
	}

	opts := comms.RetryOptions{MaxRetries: 2, Backoff: time.Millisecond}.WithSleep(noSleep)
	d := comms.NewDispatcher(primary, fallback, opts)

	result := d.Send(context.Background(), comms.Message{To: "+10000000000", Body: "hi"})

	if !result.Success {
		t.Fatalf("expected fallback success, got %+v", result)
	}
	if primary.calls != 1 {
		t.Fatalf("policy failure should not retry primary, got %d calls", primary.calls)
	}
	if fallback.calls != 1 {
		t.Fatalf("expected a single fallback attempt, got %d", fallback.calls)
	}
	if used, _ := result.Metadata[comms.MetaFallbackUsed].(bool); !used {
		t.Fatal("result must carry fallback_used metadata")
	}
	if ch, _ := result.Metadata[comms.MetaFallbackChannel].(string); ch != "sms" {
		t.Fatalf("expected fallback_channel=sms, got %q", ch)
	}
	if result.TotalAttempts != 2 {
		t.Fatalf("expected totalAttempts=2 (primary + fallback), got %d", result.TotalAttempts)
	}
}

func TestDispatcher_NoFallbackWhenPrimarySucceeds(t *testing.T) {
	primary := &scriptedChannel{
		service: comms.ServiceWhatsApp,
		results: []*comms.Result{comms.Succeed(comms.ServiceWhatsApp, "sent")},
	}
	fallback := &scriptedChannel{
		service: comms.ServiceSMS,
		results: []*comms.Result{comms.Succeed(comms.ServiceSMS, "sent")},
	}

	d := comms.NewDispatcher(primary, fallback, comms.DefaultRetryOptions().WithSleep(noSleep))
	result := d.Send(context.Background(), comms.Message{To: "+10000000000", Body: "hi"})

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if fallback.calls != 0 {
		t.Fatal("fallback must not run when primary succeeds")
	}
	if _, present := result.Metadata[comms.MetaFallbackUsed]; present {
		t.Fatal("fallback_used must not be set on a primary success")
	}
}

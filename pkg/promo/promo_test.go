package promo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/promo"
	"github.com/google/uuid"
)

// memoryQueue is an in-process promo.Queue for tests.
type memoryQueue struct {
	mu         sync.Mutex
	deliveries map[string]*promo.Delivery
	ready      []string
	retried    []string
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{deliveries: make(map[string]*promo.Delivery)}
}

func (q *memoryQueue) Enqueue(_ context.Context, d promo.Delivery) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d.ID = uuid.NewString()
	d.Status = promo.StatusPending
	q.deliveries[d.ID] = &d
	q.ready = append(q.ready, d.ID)
	return d.ID, nil
}

func (q *memoryQueue) EnqueueDelayed(ctx context.Context, d promo.Delivery, _ time.Duration) (string, error) {
	return q.Enqueue(ctx, d)
}

func (q *memoryQueue) GetDelivery(_ context.Context, id string) (*promo.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.deliveries[id]
	if !ok {
		return nil, promo.ErrDeliveryNotFound()
	}
	clone := *d
	return &clone, nil
}

func (q *memoryQueue) Dequeue(_ context.Context, _ time.Duration) (*promo.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return nil, nil
	}
	id := q.ready[0]
	q.ready = q.ready[1:]
	d := q.deliveries[id]
	d.Status = promo.StatusActive
	d.Attempts++
	clone := *d
	return &clone, nil
}

func (q *memoryQueue) Complete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deliveries[id].Status = promo.StatusSent
	return nil
}

func (q *memoryQueue) Fail(_ context.Context, id, errMsg, errType string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d := q.deliveries[id]
	budgetLeft := d.Attempts < d.MaxRetries
	if budgetLeft {
		d.Status = promo.StatusRetrying
	} else {
		d.Status = promo.StatusFailed
	}
	d.Error = errMsg
	d.ErrorType = errType
	return budgetLeft, nil
}

func (q *memoryQueue) Retry(_ context.Context, id string, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried = append(q.retried, id)
	q.ready = append(q.ready, id)
	return nil
}

func (q *memoryQueue) PromoteDue(_ context.Context) error { return nil }

// recordingChannel counts sends per recipient and fails per script.
type recordingChannel struct {
	mu      sync.Mutex
	sends   []string
	outcome func(to string) *comms.Result
}

func (c *recordingChannel) Service() comms.Service { return comms.ServiceWhatsApp }

func (c *recordingChannel) Send(_ context.Context, msg comms.Message) *comms.Result {
	c.mu.Lock()
	c.sends = append(c.sends, msg.To)
	c.mu.Unlock()
	if c.outcome != nil {
		return c.outcome(msg.To)
	}
	return comms.Succeed(comms.ServiceWhatsApp, "sent")
}

func drain(t *testing.T, d *promo.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		// Give the workers a moment to empty the queue, then stop them.
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("dispatcher failed to start: %v", err)
	}
}

func TestEnqueueCampaign_FansOutPerRecipient(t *testing.T) {
	q := newMemoryQueue()
	d := promo.NewDispatcher(q, &recordingChannel{})

	recipients := []string{"+15550000001", "+15550000002", "+15550000003"}
	ids, err := d.EnqueueCampaign(context.Background(), promo.Campaign{
		ID:         "spring-service",
		Body:       "Book your spring service check now",
		Recipients: recipients,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(ids))
	}

	// IDs come back in recipient order.
	for i, id := range ids {
		dv, err := d.GetDelivery(context.Background(), id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dv.To != recipients[i] {
			t.Fatalf("delivery %d addressed to %q, want %q", i, dv.To, recipients[i])
		}
		if dv.CampaignID != "spring-service" {
			t.Fatalf("delivery %d campaign %q", i, dv.CampaignID)
		}
	}
}

func TestEnqueueCampaign_RejectsEmpty(t *testing.T) {
	d := promo.NewDispatcher(newMemoryQueue(), &recordingChannel{})

	if _, err := d.EnqueueCampaign(context.Background(), promo.Campaign{Body: "hi"}); err == nil {
		t.Fatal("campaign without recipients must be rejected")
	}
	if _, err := d.EnqueueCampaign(context.Background(), promo.Campaign{Recipients: []string{"+15550000001"}}); err == nil {
		t.Fatal("campaign without body must be rejected")
	}
}

func TestDispatcher_DeliversAndCompletes(t *testing.T) {
	q := newMemoryQueue()
	ch := &recordingChannel{}
	d := promo.NewDispatcher(q, ch, promo.WithConcurrency(2), promo.WithDequeueTimeout(10*time.Millisecond))

	ids, err := d.EnqueueCampaign(context.Background(), promo.Campaign{
		ID:         "c1",
		Body:       "hello",
		Recipients: []string{"+15550000001", "+15550000002"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	drain(t, d)

	for _, id := range ids {
		dv, _ := d.GetDelivery(context.Background(), id)
		if dv.Status != promo.StatusSent {
			t.Fatalf("delivery %s status %q, want sent", id, dv.Status)
		}
	}
}

func TestDispatcher_RetryableFailureGoesBackOnQueue(t *testing.T) {
	q := newMemoryQueue()
	var mu sync.Mutex
	failures := 0
	ch := &recordingChannel{
		outcome: func(string) *comms.Result {
			mu.Lock()
			defer mu.Unlock()
			failures++
			if failures == 1 {
				return comms.FailWithType(comms.ServiceWhatsApp, "provider down", comms.ErrorServiceUnavailable)
			}
			return comms.Succeed(comms.ServiceWhatsApp, "sent")
		},
	}
	d := promo.NewDispatcher(q, ch,
		promo.WithConcurrency(1),
		promo.WithDequeueTimeout(10*time.Millisecond),
		promo.WithRetryDelay(time.Millisecond))

	ids, err := d.EnqueueCampaign(context.Background(), promo.Campaign{
		ID:         "c2",
		Body:       "hello",
		Recipients: []string{"+15550000001"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	drain(t, d)

	if len(q.retried) != 1 {
		t.Fatalf("expected one retry, got %d", len(q.retried))
	}
	dv, _ := d.GetDelivery(context.Background(), ids[0])
	if dv.Status != promo.StatusSent {
		t.Fatalf("delivery status %q, want sent after retry", dv.Status)
	}
}

func TestDispatcher_TerminalFailureDoesNotRetry(t *testing.T) {
	q := newMemoryQueue()
	ch := &recordingChannel{
		outcome: func(string) *comms.Result {
			return comms.FailWithType(comms.ServiceWhatsApp, "recipient opted out", comms.ErrorPolicyViolation)
		},
	}
	d := promo.NewDispatcher(q, ch,
		promo.WithConcurrency(1),
		promo.WithDequeueTimeout(10*time.Millisecond))

	ids, err := d.EnqueueCampaign(context.Background(), promo.Campaign{
		ID:         "c3",
		Body:       "hello",
		Recipients: []string{"+15550000001"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	drain(t, d)

	if len(q.retried) != 0 {
		t.Fatalf("policy violation must not retry, got %d retries", len(q.retried))
	}
	dv, _ := d.GetDelivery(context.Background(), ids[0])
	if dv.ErrorType != comms.ErrorPolicyViolation.String() {
		t.Fatalf("delivery errorType %q, want policy_violation", dv.ErrorType)
	}
}

// Package promo dispatches promotional campaigns: service reminders,
// offers and announcements fanned out to many recipients. Each recipient
// becomes one queued Delivery, processed by a worker pool that sends
// through a comms channel and retries only failures the classifier
// marks retryable.
package promo

import (
	"context"
	"sync"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/asyncx"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
)

// DeliveryStatus is the lifecycle state of one queued delivery.
type DeliveryStatus string

const (
	StatusPending  DeliveryStatus = "pending"
	StatusActive   DeliveryStatus = "active"
	StatusSent     DeliveryStatus = "sent"
	StatusFailed   DeliveryStatus = "failed"
	StatusRetrying DeliveryStatus = "retrying"
)

// Delivery is one campaign message to one recipient.
type Delivery struct {
	ID         string         `json:"id"`
	CampaignID string         `json:"campaign_id"`
	To         string         `json:"to"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body"`
	Status     DeliveryStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	ErrorType  string         `json:"error_type,omitempty"`
	MaxRetries int            `json:"max_retries"`
	Attempts   int            `json:"attempts"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Campaign is a fan-out request: one message for many recipients.
type Campaign struct {
	ID         string
	Subject    string
	Body       string
	Recipients []string
	MaxRetries int
}

// Queue is the storage backend for campaign deliveries.
type Queue interface {
	// Enqueue stores a delivery and makes it ready for dispatch.
	Enqueue(ctx context.Context, d Delivery) (string, error)
	// EnqueueDelayed stores a delivery that becomes ready after delay.
	EnqueueDelayed(ctx context.Context, d Delivery, delay time.Duration) (string, error)
	// GetDelivery reads delivery state by ID.
	GetDelivery(ctx context.Context, id string) (*Delivery, error)
	// Dequeue blocks until a delivery is ready or the timeout expires,
	// marking it active. Returns nil on timeout.
	Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error)
	// Complete marks a delivery sent.
	Complete(ctx context.Context, id string) error
	// Fail records a failure verdict. Returns true when the delivery has
	// retry budget left.
	Fail(ctx context.Context, id, errMsg, errType string) (retry bool, err error)
	// Retry schedules a failed delivery to run again after delay.
	Retry(ctx context.Context, id string, delay time.Duration) error
	// PromoteDue moves deliveries whose scheduled time has passed onto
	// the ready queue.
	PromoteDue(ctx context.Context) error
}

// Dispatcher fans campaigns out to the queue and runs the worker pool
// that drains it.
type Dispatcher struct {
	queue   Queue
	channel comms.Channel
	opts    Options

	mu      sync.Mutex
	running bool
}

// NewDispatcher creates a campaign dispatcher sending through channel.
func NewDispatcher(queue Queue, channel comms.Channel, options ...Option) *Dispatcher {
	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Dispatcher{queue: queue, channel: channel, opts: opts}
}

// enqueueWorkers caps the fan-out concurrency so a large recipient list
// does not saturate the Redis connection pool.
const enqueueWorkers = 8

// EnqueueCampaign queues one delivery per recipient and returns the
// delivery IDs in recipient order.
func (d *Dispatcher) EnqueueCampaign(ctx context.Context, campaign Campaign) ([]string, error) {
	if campaign.Body == "" || len(campaign.Recipients) == 0 {
		return nil, ErrInvalidCampaign()
	}

	maxRetries := campaign.MaxRetries
	if maxRetries <= 0 {
		maxRetries = d.opts.MaxRetries
	}

	ids, err := asyncx.Pool(ctx, enqueueWorkers, campaign.Recipients,
		func(ctx context.Context, to string) (string, error) {
			return d.queue.Enqueue(ctx, Delivery{
				CampaignID: campaign.ID,
				To:         to,
				Subject:    campaign.Subject,
				Body:       campaign.Body,
				MaxRetries: maxRetries,
			})
		})
	if err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"campaign":   campaign.ID,
		"recipients": len(campaign.Recipients),
	}).Info("promo: campaign enqueued")
	return ids, nil
}

// GetDelivery reads delivery state by ID.
func (d *Dispatcher) GetDelivery(ctx context.Context, id string) (*Delivery, error) {
	return d.queue.GetDelivery(ctx, id)
}

// Start runs the promoter and worker goroutines until ctx is cancelled,
// then drains within the shutdown timeout.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning()
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	logx.Infof("promo: starting %d delivery workers", d.opts.Concurrency)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.promoteLoop(ctx)
	}()

	for i := range d.opts.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("promo: shutting down delivery workers...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("promo: all delivery workers stopped")
	case <-time.After(d.opts.ShutdownTimeout):
		logx.Warn("promo: shutdown timed out, some deliveries may not have completed")
	}

	return nil
}

func (d *Dispatcher) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.queue.PromoteDue(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("promo: failed to promote due deliveries")
			}
		}
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delivery, err := d.queue.Dequeue(ctx, d.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("promo: worker %d dequeue error", id)
			time.Sleep(d.opts.PollInterval)
			continue
		}
		if delivery == nil {
			continue
		}

		d.deliver(ctx, delivery)
	}
}

// deliver sends one delivery and records the verdict. Retry scheduling
// follows the classifier: only retryable failures go back on the queue.
func (d *Dispatcher) deliver(ctx context.Context, delivery *Delivery) {
	result := d.channel.Send(ctx, comms.Message{
		To:      delivery.To,
		Subject: delivery.Subject,
		Body:    delivery.Body,
	})

	if result.Success {
		if err := d.queue.Complete(ctx, delivery.ID); err != nil {
			logx.WithError(err).Errorf("promo: failed to complete delivery %s", delivery.ID)
		}
		return
	}

	logx.WithFields(logx.Fields{
		"delivery":   delivery.ID,
		"campaign":   delivery.CampaignID,
		"error_type": result.ErrorType.String(),
		"retryable":  result.Retryable,
	}).Warn("promo: delivery failed")

	budgetLeft, err := d.queue.Fail(ctx, delivery.ID, result.Message, result.ErrorType.String())
	if err != nil {
		logx.WithError(err).Errorf("promo: failed to record failure for delivery %s", delivery.ID)
		return
	}

	if result.Retryable && budgetLeft {
		if err := d.queue.Retry(ctx, delivery.ID, d.opts.RetryDelay); err != nil {
			logx.WithError(err).Errorf("promo: failed to schedule retry for delivery %s", delivery.ID)
		}
	}
}

// Package promoredis implements the promo delivery queue on Redis.
package promoredis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/promo"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	readyKey     = "promo:ready"
	scheduledKey = "promo:scheduled"
	deliveryKey  = "promo:delivery:"

	// Sent and terminally failed deliveries expire so the keyspace does
	// not grow with campaign history.
	terminalTTL = 24 * time.Hour
)

// RedisQueue implements promo.Queue backed by Redis.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue creates a new Redis-backed delivery queue.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Enqueue(ctx context.Context, d promo.Delivery) (string, error) {
	return q.enqueue(ctx, d, 0)
}

func (q *RedisQueue) EnqueueDelayed(ctx context.Context, d promo.Delivery, delay time.Duration) (string, error) {
	return q.enqueue(ctx, d, delay)
}

func (q *RedisQueue) enqueue(ctx context.Context, d promo.Delivery, delay time.Duration) (string, error) {
	now := time.Now().UTC()
	d.ID = uuid.NewString()
	d.Status = promo.StatusPending
	d.Attempts = 0
	d.CreatedAt = now
	d.UpdatedAt = now

	data, err := json.Marshal(d)
	if err != nil {
		return "", queueErrors.NewWithCause(CodeMarshal, err)
	}

	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, deliveryKey+d.ID, data, 0)
	if delay > 0 {
		score := float64(now.Add(delay).Unix())
		pipe.ZAdd(ctx, scheduledKey, redis.Z{Score: score, Member: d.ID})
	} else {
		pipe.LPush(ctx, readyKey, d.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", queueErrors.NewWithCause(CodeEnqueue, err).WithDetail("campaign", d.CampaignID)
	}

	return d.ID, nil
}

func (q *RedisQueue) GetDelivery(ctx context.Context, id string) (*promo.Delivery, error) {
	data, err := q.rdb.Get(ctx, deliveryKey+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, promo.ErrDeliveryNotFound().WithDetail("delivery_id", id)
		}
		return nil, queueErrors.NewWithCause(CodeRead, err).WithDetail("delivery_id", id)
	}

	var d promo.Delivery
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, queueErrors.NewWithCause(CodeUnmarshal, err).WithDetail("delivery_id", id)
	}
	return &d, nil
}

// Dequeue blocks on the ready list and marks the popped delivery active.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*promo.Delivery, error) {
	result, err := q.rdb.BRPop(ctx, timeout, readyKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // timeout, nothing ready
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, queueErrors.NewWithCause(CodeDequeue, err)
	}

	// result[0] = key, result[1] = delivery ID
	d, err := q.GetDelivery(ctx, result[1])
	if err != nil {
		return nil, err
	}

	d.Status = promo.StatusActive
	d.Attempts++
	d.UpdatedAt = time.Now().UTC()
	if err := q.store(ctx, d, 0); err != nil {
		return nil, err
	}
	return d, nil
}

func (q *RedisQueue) Complete(ctx context.Context, id string) error {
	d, err := q.GetDelivery(ctx, id)
	if err != nil {
		return err
	}

	d.Status = promo.StatusSent
	d.UpdatedAt = time.Now().UTC()
	return q.store(ctx, d, terminalTTL)
}

func (q *RedisQueue) Fail(ctx context.Context, id, errMsg, errType string) (bool, error) {
	d, err := q.GetDelivery(ctx, id)
	if err != nil {
		return false, err
	}

	budgetLeft := d.Attempts < d.MaxRetries

	ttl := time.Duration(0)
	if budgetLeft {
		d.Status = promo.StatusRetrying
	} else {
		d.Status = promo.StatusFailed
		ttl = terminalTTL
	}
	d.Error = errMsg
	d.ErrorType = errType
	d.UpdatedAt = time.Now().UTC()

	if err := q.store(ctx, d, ttl); err != nil {
		return false, err
	}
	return budgetLeft, nil
}

func (q *RedisQueue) Retry(ctx context.Context, id string, delay time.Duration) error {
	score := float64(time.Now().UTC().Add(delay).Unix())
	if err := q.rdb.ZAdd(ctx, scheduledKey, redis.Z{Score: score, Member: id}).Err(); err != nil {
		return queueErrors.NewWithCause(CodeRetry, err).WithDetail("delivery_id", id)
	}
	return nil
}

// promoteScript atomically moves due IDs from the scheduled set to the
// ready list.
var promoteScript = redis.NewScript(`
local scheduled_key = KEYS[1]
local ready_key = KEYS[2]
local now = tonumber(ARGV[1])
local ids = redis.call('ZRANGEBYSCORE', scheduled_key, '-inf', now)
if #ids > 0 then
    for _, id in ipairs(ids) do
        redis.call('LPUSH', ready_key, id)
    end
    redis.call('ZREMRANGEBYSCORE', scheduled_key, '-inf', now)
end
return #ids
`)

func (q *RedisQueue) PromoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)

	err := promoteScript.Run(ctx, q.rdb, []string{scheduledKey, readyKey}, now).Err()
	if err != nil && err != redis.Nil {
		return queueErrors.NewWithCause(CodePromote, err)
	}
	return nil
}

func (q *RedisQueue) store(ctx context.Context, d *promo.Delivery, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return queueErrors.NewWithCause(CodeMarshal, err).WithDetail("delivery_id", d.ID)
	}
	if err := q.rdb.Set(ctx, deliveryKey+d.ID, data, ttl).Err(); err != nil {
		return queueErrors.NewWithCause(CodeWrite, err).WithDetail("delivery_id", d.ID)
	}
	return nil
}

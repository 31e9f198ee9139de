package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const handoverQueueName = "handover"

type sortedSetStore interface {
	ZAdd(ctx context.Context, key string, members ...redis.Z) error
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) ([]string, error)
	ZRem(ctx context.Context, key string, members ...any) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)
	DelayedQueueKey(name string) string
}

// Queue is the durable delayed queue behind the handed_over to in_transit
// auto-transition. Members are order ids scored by their fire time, so
// entries survive process restarts; the fire-time status re-check in the
// order ledger makes duplicate fires harmless.
type Queue struct {
	store sortedSetStore
}

// NewQueue binds the delayed queue to a redis-backed sorted set.
func NewQueue(store sortedSetStore) (*Queue, error) {
	if store == nil {
		return nil, fmt.Errorf("sorted set store required")
	}
	return &Queue{store: store}, nil
}

// ScheduleHandover enqueues the automatic advance for an order, firing after
// delay. Re-scheduling the same order overwrites its fire time.
func (q *Queue) ScheduleHandover(ctx context.Context, orderID uuid.UUID, delay time.Duration) error {
	fireAt := time.Now().UTC().Add(delay)
	return q.store.ZAdd(ctx, q.key(), redis.Z{
		Score:  float64(fireAt.Unix()),
		Member: orderID.String(),
	})
}

// Due returns up to limit order ids whose fire time has passed. Members are
// not removed; callers ack with Remove after handling so a crash mid-batch
// re-delivers.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	opt := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UTC().Unix(), 10),
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}
	members, err := q.store.ZRangeByScore(ctx, q.key(), opt)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			// Unparseable members are dropped so one bad entry cannot wedge
			// the queue.
			_, _ = q.store.ZRem(ctx, q.key(), member)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remove acknowledges a handled entry.
func (q *Queue) Remove(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.store.ZRem(ctx, q.key(), orderID.String())
	return err
}

// Depth reports how many entries are waiting, fired or not.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.store.ZCard(ctx, q.key())
}

func (q *Queue) key() string {
	return q.store.DelayedQueueKey(handoverQueueName)
}

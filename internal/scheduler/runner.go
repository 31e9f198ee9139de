package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/logger"
	"github.com/skyserve/skyserve-backend/pkg/metrics"
)

const handoverTransition = "handover"

type orderAdvancer interface {
	AdvanceToInTransit(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type delayedQueue interface {
	Due(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	Remove(ctx context.Context, orderID uuid.UUID) error
	Depth(ctx context.Context) (int64, error)
}

// Runner polls the delayed queue and advances due orders. It lives in the
// cron-worker binary, not the API process, so a stuck API pod never stalls
// auto-transitions.
type Runner struct {
	queue     delayedQueue
	orders    orderAdvancer
	metrics   *metrics.DispatchMetrics
	logg      *logger.Logger
	pollEvery time.Duration
	batchSize int
}

type RunnerParams struct {
	Queue   delayedQueue
	Orders  orderAdvancer
	Metrics *metrics.DispatchMetrics
	Logger  *logger.Logger
	Cfg     config.DispatchConfig
}

// NewRunner builds the scheduler poll loop.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Queue == nil {
		return nil, fmt.Errorf("delayed queue required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order advancer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	pollEvery := params.Cfg.SchedulerPollEvery
	if pollEvery <= 0 {
		pollEvery = time.Second
	}
	batchSize := params.Cfg.SchedulerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Runner{
		queue:     params.Queue,
		orders:    params.Orders,
		metrics:   params.Metrics,
		logg:      params.Logger,
		pollEvery: pollEvery,
		batchSize: batchSize,
	}, nil
}

// Run polls until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.tick(ctx)
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "handover scheduler context canceled")
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick drains one batch of due entries. All failures are logged and left in
// the queue for the next poll; the repair sweep covers anything that keeps
// failing past its window.
func (r *Runner) tick(ctx context.Context) {
	due, err := r.queue.Due(ctx, time.Now().UTC(), r.batchSize)
	if err != nil {
		r.logg.Error(ctx, "failed to read handover queue", err)
		return
	}

	for _, orderID := range due {
		advanced, err := r.orders.AdvanceToInTransit(ctx, orderID)
		if err != nil {
			logCtx := r.logg.WithField(ctx, "order_id", orderID.String())
			r.logg.Error(logCtx, "failed to advance handed over order", err)
			continue
		}
		if err := r.queue.Remove(ctx, orderID); err != nil {
			logCtx := r.logg.WithField(ctx, "order_id", orderID.String())
			r.logg.Error(logCtx, "failed to ack handover queue entry", err)
		}
		if r.metrics != nil {
			if advanced {
				r.metrics.IncTransitionFired(handoverTransition)
			} else {
				r.metrics.IncTransitionStale(handoverTransition)
			}
		}
	}

	if r.metrics != nil {
		if depth, err := r.queue.Depth(ctx); err == nil {
			r.metrics.SetQueueDepth(int(depth))
		}
	}
}

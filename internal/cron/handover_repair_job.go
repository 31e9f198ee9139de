package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/db/models"
	"github.com/skyserve/skyserve-backend/pkg/logger"
	"github.com/skyserve/skyserve-backend/pkg/metrics"
)

const handoverRepairBatchSize = 200

type stuckOrderReader interface {
	FindStuckHandedOver(ctx context.Context, cutoff time.Time, limit int) ([]models.ShopOrder, error)
}

type orderAdvancer interface {
	AdvanceToInTransit(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// HandoverRepairJobParams configure the stuck-handover sweep.
type HandoverRepairJobParams struct {
	Logger  *logger.Logger
	Reader  stuckOrderReader
	Orders  orderAdvancer
	Metrics *metrics.DispatchMetrics
	Cfg     config.DispatchConfig
}

// NewHandoverRepairJob builds the sweep that force-advances orders whose
// scheduled handed_over to in_transit timer never fired. The sweep is the
// compensating control for the best-effort delayed queue.
func NewHandoverRepairJob(params HandoverRepairJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stuck order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order advancer required")
	}
	stuckAfter := params.Cfg.HandoverDelay + params.Cfg.RepairGrace
	if stuckAfter <= 0 {
		return nil, fmt.Errorf("handover delay and repair grace must be positive")
	}
	return &handoverRepairJob{
		logg:       params.Logger,
		reader:     params.Reader,
		orders:     params.Orders,
		metrics:    params.Metrics,
		stuckAfter: stuckAfter,
		now:        time.Now,
	}, nil
}

type handoverRepairJob struct {
	logg       *logger.Logger
	reader     stuckOrderReader
	orders     orderAdvancer
	metrics    *metrics.DispatchMetrics
	stuckAfter time.Duration
	now        func() time.Time
}

func (j *handoverRepairJob) Name() string {
	return "handover_repair"
}

// Run force-advances every order stuck past its expected auto-transition.
// Each order repairs independently; one failure does not stop the sweep.
func (j *handoverRepairJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.stuckAfter)
	stuck, err := j.reader.FindStuckHandedOver(ctx, cutoff, handoverRepairBatchSize)
	if err != nil {
		return fmt.Errorf("find stuck orders: %w", err)
	}
	if len(stuck) == 0 {
		return nil
	}

	var errs error
	repaired := 0
	for _, order := range stuck {
		advanced, err := j.orders.AdvanceToInTransit(ctx, order.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("advance order %s: %w", order.ID, err))
			continue
		}
		if advanced {
			repaired++
			if j.metrics != nil {
				j.metrics.IncRepairedOrders()
			}
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stuck":    len(stuck),
		"repaired": repaired,
	})
	j.logg.Info(logCtx, "handover repair sweep finished")
	return errs
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/queue"
)

// SweepName is the schedule entry name of the sweeper.
const SweepName = "sales.sweep"

const sweepBatch = 100

// Sweeper finds sales whose workflow stopped short of notified and queues a
// ResumeSaleJob for each.
type Sweeper struct {
	sales *repositories.SaleRepository
	queue *queue.Manager
	cfg   config.SalesConfig
	now   func() time.Time
}

func NewSweeper(sales *repositories.SaleRepository, q *queue.Manager, cfg config.SalesConfig) *Sweeper {
	return &Sweeper{sales: sales, queue: q, cfg: cfg, now: time.Now}
}

// Sweep queues every stalled sale under the attempt budget and returns how
// many were queued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	before := now.Add(-s.cfg.StallAfter)
	stalled, err := s.sales.Stalled(ctx, before, s.cfg.MaxAttempts, sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("jobs: sweep: %w", err)
	}

	log := logger.WithCtx(ctx)
	queued := 0
	for _, sale := range stalled {
		claimed, err := s.sales.Claim(ctx, sale.ID, before, now)
		if err != nil {
			return queued, fmt.Errorf("jobs: sweep: claim sale %d: %w", sale.ID, err)
		}
		if !claimed {
			continue
		}
		if err := s.queue.Dispatch(ctx, ResumeSaleName, &ResumeSaleJob{SaleID: sale.ID}); err != nil {
			return queued, fmt.Errorf("jobs: sweep: dispatch sale %d: %w", sale.ID, err)
		}
		log.Info("jobs: queued stalled sale", "sale_id", sale.ID, "status", sale.Status, "attempts", sale.Attempts)
		queued++
	}
	if queued > 0 {
		log.Info("jobs: sweep finished", "queued", queued)
	}
	return queued, nil
}

// Run adapts Sweep to schedule.Task.
func (s *Sweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

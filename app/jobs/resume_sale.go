// Package jobs holds the background work of the storefront: resuming sales
// whose receipt workflow stalled, and the sweep that finds them.
package jobs

import (
	"context"

	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/queue"
)

// ResumeSaleName is the queue name of ResumeSaleJob.
const ResumeSaleName = "sales.resume"

// ResumeSaleJob continues one sale from its persisted status.
type ResumeSaleJob struct {
	SaleID uint `json:"saleId"`

	sales *services.SaleService
}

func (j *ResumeSaleJob) Handle(ctx context.Context) error {
	sale, err := j.sales.Resume(ctx, j.SaleID)
	if err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("jobs: sale resumed", "sale_id", sale.ID, "status", sale.Status)
	return nil
}

// Register makes the queue able to run every job in this package.
func Register(q *queue.Manager, sales *services.SaleService) {
	q.Register(ResumeSaleName, func() queue.Job { return &ResumeSaleJob{sales: sales} })
}

package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/queue"
	"github.com/storefront-go/storefront/pkg/testkit"
)

func TestSweepResumesStalledSale(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := testkit.DB(t)
	disk := testkit.NewMemoryDisk()
	mailer := testkit.NewMailer()
	cfg := &config.Config{
		Receipt: config.ReceiptConfig{StoreName: "Storefront", Prefix: "receipts"},
		Sales: config.SalesConfig{
			PricePolicy: config.PriceTrustClient,
			StallAfter:  time.Minute,
			MaxAttempts: 3,
		},
	}
	saleRepo := repositories.NewSaleRepository(db)
	sales := services.NewSaleService(cfg, saleRepo, repositories.NewProductRepository(db), disk, mailer)

	disk.FailPut = errors.New("bucket unavailable")
	sale, err := sales.Register(ctx, services.RegisterSaleInput{
		UserID: 7,
		Cart:   []services.CartLine{{Name: "Widget", Price: decimal.RequireFromString("9.99"), Quantity: 2}},
		Total:  decimal.RequireFromString("19.98"),
		Email:  "a@b.com",
	})
	require.Error(t, err)
	disk.FailPut = nil

	q := queue.NewManager(queue.NewMemoryDriver(), queue.WithMaxRetry(1))
	Register(q, sales)
	require.NoError(t, q.Start(ctx, 1))
	t.Cleanup(func() { cancel(); q.Wait() })

	sweeper := NewSweeper(saleRepo, q, cfg.Sales)

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a fresh failure is not stalled yet")

	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Eventually(t, func() bool {
		got, err := sales.Get(ctx, sale.ID)
		return err == nil && got.Status == models.SaleNotified
	}, 3*time.Second, 20*time.Millisecond)

	got, err := sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PdfURL)
	assert.Len(t, mailer.Sent(), 1)
}

func TestSweepClaimsOnce(t *testing.T) {
	ctx := context.Background()
	db := testkit.DB(t)
	repo := repositories.NewSaleRepository(db)

	sale := &models.Sale{UserID: 1, Snapshot: "[]", Total: decimal.RequireFromString("1"), Email: "a@b.com"}
	require.NoError(t, repo.Create(ctx, sale))

	q := queue.NewManager(queue.NewMemoryDriver())
	q.Register(ResumeSaleName, func() queue.Job { return &ResumeSaleJob{} })

	s := NewSweeper(repo, q, config.SalesConfig{StallAfter: time.Minute, MaxAttempts: 3})
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "the claim moved updated_at past the cutoff")
}

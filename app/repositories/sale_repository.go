package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/storefront-go/storefront/app/models"
)

// SaleRepository persists sales and moves them through the receipt
// workflow. Business columns are written once, on Create; every later write
// touches bookkeeping columns only.
type SaleRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSaleRepository(db *gorm.DB) *SaleRepository {
	return &SaleRepository{db: db, now: time.Now}
}

// Create inserts the sale with no receipt URL and status created.
func (r *SaleRepository) Create(ctx context.Context, sale *models.Sale) error {
	sale.PdfURL = nil
	sale.Status = models.SaleCreated
	return translate(r.db.WithContext(ctx).Create(sale).Error, "Sale")
}

func (r *SaleRepository) Find(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, id).Error; err != nil {
		return nil, translate(err, "Sale")
	}
	return &sale, nil
}

// All returns every sale, newest first.
func (r *SaleRepository) All(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&sales).Error; err != nil {
		return nil, translate(err, "Sale")
	}
	return sales, nil
}

// ByUser returns the sales of one buyer, newest first.
func (r *SaleRepository) ByUser(ctx context.Context, userID uint) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&sales).Error; err != nil {
		return nil, translate(err, "Sale")
	}
	return sales, nil
}

// Advance moves sale forward to next, optionally writing extra bookkeeping
// columns in the same statement. Backward or repeated moves are ignored.
// When another worker already moved the row, sale is refreshed instead.
func (r *SaleRepository) Advance(ctx context.Context, sale *models.Sale, next models.SaleStatus, extra map[string]any) error {
	if !sale.Status.CanAdvanceTo(next) {
		return nil
	}

	now := r.now()
	cols := map[string]any{"status": next, "updated_at": now}
	for k, v := range extra {
		cols[k] = v
	}

	res := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND status = ?", sale.ID, sale.Status).
		Updates(cols)
	if res.Error != nil {
		return translate(res.Error, "Sale")
	}
	if res.RowsAffected == 0 {
		return r.refresh(ctx, sale)
	}

	sale.Status = next
	sale.UpdatedAt = now
	if key, ok := extra["receipt_key"].(string); ok {
		sale.ReceiptKey = key
	}
	return nil
}

// LinkReceipt sets pdf_url exactly once and marks the sale linked. A sale
// that already carries a URL keeps it; sale is refreshed so the caller sees
// the stored value.
func (r *SaleRepository) LinkReceipt(ctx context.Context, sale *models.Sale, url string) error {
	now := r.now()
	res := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND pdf_url IS NULL", sale.ID).
		Updates(map[string]any{"pdf_url": url, "status": models.SaleLinked, "updated_at": now})
	if res.Error != nil {
		return translate(res.Error, "Sale")
	}
	if res.RowsAffected == 0 {
		return r.refresh(ctx, sale)
	}

	sale.PdfURL = &url
	sale.Status = models.SaleLinked
	sale.UpdatedAt = now
	return nil
}

// RecordFailure bumps the attempt counter and stores the last error.
func (r *SaleRepository) RecordFailure(ctx context.Context, sale *models.Sale, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	now := r.now()
	err := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
			"updated_at": now,
		}).Error
	if err != nil {
		return translate(err, "Sale")
	}
	sale.Attempts++
	sale.LastError = msg
	sale.UpdatedAt = now
	return nil
}

// Stalled returns unfinished sales untouched since before and still under
// the attempt budget, oldest first.
func (r *SaleRepository) Stalled(ctx context.Context, before time.Time, maxAttempts, limit int) ([]models.Sale, error) {
	q := r.db.WithContext(ctx).
		Where("status <> ? AND updated_at < ? AND attempts < ?", models.SaleNotified, before, maxAttempts).
		Order("updated_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var sales []models.Sale
	if err := q.Find(&sales).Error; err != nil {
		return nil, translate(err, "Sale")
	}
	return sales, nil
}

func (r *SaleRepository) refresh(ctx context.Context, sale *models.Sale) error {
	fresh, err := r.Find(ctx, sale.ID)
	if err != nil {
		return err
	}
	*sale = *fresh
	return nil
}

// Claim moves updated_at to at on a sale still untouched since before. Only
// one caller wins a given sale, so a sweep never enqueues it twice.
func (r *SaleRepository) Claim(ctx context.Context, id uint, before, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND updated_at < ?", id, before).
		Update("updated_at", at)
	if res.Error != nil {
		return false, translate(res.Error, "Sale")
	}
	return res.RowsAffected == 1, nil
}

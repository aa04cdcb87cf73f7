package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as JSON numbers (19.98), not strings ("19.98").
	decimal.MarshalJSONWithoutQuotes = true
}

// SaleStatus is the persisted progress of the receipt workflow. It only ever
// moves forward: created → rendered → uploaded → linked → notified.
type SaleStatus string

const (
	SaleCreated  SaleStatus = "created"
	SaleRendered SaleStatus = "rendered"
	SaleUploaded SaleStatus = "uploaded"
	SaleLinked   SaleStatus = "linked"
	SaleNotified SaleStatus = "notified"
)

var saleStatusRank = map[SaleStatus]int{
	SaleCreated:  0,
	SaleRendered: 1,
	SaleUploaded: 2,
	SaleLinked:   3,
	SaleNotified: 4,
}

// Valid reports whether s is one of the known statuses.
func (s SaleStatus) Valid() bool {
	_, ok := saleStatusRank[s]
	return ok
}

// Reached reports whether s is target or a later status.
func (s SaleStatus) Reached(target SaleStatus) bool {
	return saleStatusRank[s] >= saleStatusRank[target]
}

// CanAdvanceTo reports whether moving from s to next is a forward step.
func (s SaleStatus) CanAdvanceTo(next SaleStatus) bool {
	return next.Valid() && saleStatusRank[next] > saleStatusRank[s]
}

// Terminal reports whether no workflow step remains.
func (s SaleStatus) Terminal() bool { return s == SaleNotified }

// CartItem is one line of a submitted cart. ProductID is optional and only
// consulted when prices are revalidated against the catalog.
type CartItem struct {
	ProductID *uint           `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is price × quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// Sale is a completed checkout. Snapshot and Total never change after insert;
// PdfURL is set exactly once. Status, Attempts and LastError track the
// receipt workflow.
type Sale struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"userId"`
	Snapshot   string          `gorm:"type:text;not null" json:"snapshot"`
	Total      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	PdfURL     *string         `gorm:"column:pdf_url;size:1024" json:"pdfUrl"`
	Email      string          `gorm:"size:255;not null" json:"email"`
	Status     SaleStatus      `gorm:"size:20;not null;default:created;index" json:"status"`
	ReceiptKey string          `gorm:"size:255" json:"receiptKey,omitempty"`
	Attempts   int             `gorm:"not null;default:0" json:"attempts"`
	LastError  string          `gorm:"type:text" json:"-"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"index" json:"updatedAt"`
}

func (Sale) TableName() string { return "sales" }

// Items decodes the stored cart snapshot.
func (s *Sale) Items() ([]CartItem, error) {
	var items []CartItem
	if err := json.Unmarshal([]byte(s.Snapshot), &items); err != nil {
		return nil, fmt.Errorf("models: decode snapshot of sale %d: %w", s.ID, err)
	}
	return items, nil
}

// EncodeSnapshot serialises a cart the way it is stored on a Sale.
func EncodeSnapshot(items []CartItem) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("models: encode snapshot: %w", err)
	}
	return string(b), nil
}

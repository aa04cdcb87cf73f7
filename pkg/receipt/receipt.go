// Package receipt renders a sale receipt as a PDF document.
//
// Render is a pure function of its input: compression is off and the PDF
// creation and modification dates are pinned to the sale date, so the same
// Receipt always yields the same bytes.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Line is one cart entry as printed on the receipt.
type Line struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Receipt is everything printed on the document.
type Receipt struct {
	StoreName string
	LogoPath  string // optional PNG/JPEG, skipped when missing
	SaleID    uint
	UserID    uint
	Date      time.Time
	Lines     []Line
	Total     decimal.Decimal
}

// ErrEmpty is returned for a receipt without lines.
var ErrEmpty = errors.New("receipt: no lines to render")

const (
	colItem  = 90.0
	colQty   = 20.0
	colPrice = 35.0
	colTotal = 35.0
	rowH     = 8.0
)

// Render lays out the receipt on A4. Long carts continue on further pages
// through fpdf's automatic page break.
func Render(r Receipt) ([]byte, error) {
	if len(r.Lines) == 0 {
		return nil, ErrEmpty
	}

	date := r.Date.UTC()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCreationDate(date)
	pdf.SetModificationDate(date)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Receipt", true)
	pdf.SetAuthor(r.StoreName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	if r.LogoPath != "" {
		if _, err := os.Stat(r.LogoPath); err == nil {
			pdf.ImageOptions(r.LogoPath, 160, 10, 30, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, tr(r.StoreName))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Receipt #"+strconv.FormatUint(uint64(r.SaleID), 10))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Customer ID: "+strconv.FormatUint(uint64(r.UserID), 10))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+date.Format("2006-01-02 15:04 MST"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colItem, rowH, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colQty, rowH, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colPrice, rowH, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colTotal, rowH, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, l := range r.Lines {
		sub := l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		pdf.CellFormat(colItem, rowH, tr(l.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, rowH, strconv.Itoa(l.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colPrice, rowH, "$"+l.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, rowH, "$"+sub.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(colItem+colQty+colPrice+colTotal, 10, "Total: $"+r.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 5, tr("Thank you for shopping with "+r.StoreName+"."))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: render sale %d: %w", r.SaleID, err)
	}
	return buf.Bytes(), nil
}

// FileName is the attachment name used in the buyer email.
func FileName(saleID uint) string {
	return fmt.Sprintf("receipt-%d.pdf", saleID)
}

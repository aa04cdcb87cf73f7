package receipt_test

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/pkg/receipt"
)

func sample() receipt.Receipt {
	return receipt.Receipt{
		StoreName: "Storefront",
		SaleID:    42,
		UserID:    7,
		Date:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Lines: []receipt.Line{
			{Name: "Widget", Price: decimal.RequireFromString("9.75"), Quantity: 2},
		},
		Total: decimal.RequireFromString("19.5"),
	}
}

func TestRenderContainsTotal(t *testing.T) {
	pdf, err := receipt.Render(sample())
	require.NoError(t, err)
	require.NotEmpty(t, pdf)

	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Contains(t, string(pdf), "19.50")
	assert.Contains(t, string(pdf), "Widget")
}

func TestRenderIsDeterministic(t *testing.T) {
	a, err := receipt.Render(sample())
	require.NoError(t, err)
	b, err := receipt.Render(sample())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderEmpty(t *testing.T) {
	r := sample()
	r.Lines = nil
	_, err := receipt.Render(r)
	assert.ErrorIs(t, err, receipt.ErrEmpty)
}

func TestRenderLongCartSpansPages(t *testing.T) {
	r := sample()
	r.Lines = nil
	for i := 1; i <= 60; i++ {
		r.Lines = append(r.Lines, receipt.Line{Name: fmt.Sprintf("Item %02d", i), Price: decimal.NewFromInt(1), Quantity: 1})
	}
	r.Total = decimal.NewFromInt(60)

	pdf, err := receipt.Render(r)
	require.NoError(t, err)

	m := regexp.MustCompile(`/Count (\d+)`).FindSubmatch(pdf)
	require.NotNil(t, m)
	pages, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pages, 2)
	assert.Contains(t, string(pdf), "Item 60")
	assert.Contains(t, string(pdf), "60.00")
}

func TestRenderSkipsMissingLogo(t *testing.T) {
	r := sample()
	r.LogoPath = "does/not/exist.png"
	pdf, err := receipt.Render(r)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "receipt-42.pdf", receipt.FileName(42))
}

package models_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/app/models"
)

func TestSaleStatusOrdering(t *testing.T) {
	assert.True(t, models.SaleLinked.Reached(models.SaleUploaded))
	assert.True(t, models.SaleLinked.Reached(models.SaleLinked))
	assert.False(t, models.SaleRendered.Reached(models.SaleUploaded))

	assert.True(t, models.SaleCreated.CanAdvanceTo(models.SaleRendered))
	assert.True(t, models.SaleCreated.CanAdvanceTo(models.SaleNotified))
	assert.False(t, models.SaleUploaded.CanAdvanceTo(models.SaleRendered))
	assert.False(t, models.SaleUploaded.CanAdvanceTo(models.SaleUploaded))
	assert.False(t, models.SaleCreated.CanAdvanceTo("shipped"))

	assert.True(t, models.SaleNotified.Terminal())
}

func TestSnapshotRoundTrip(t *testing.T) {
	pid := uint(3)
	cart := []models.CartItem{
		{Name: "Widget", Price: decimal.RequireFromString("9.99"), Quantity: 2},
		{ProductID: &pid, Name: "Gadget", Price: decimal.RequireFromString("0.50"), Quantity: 1},
	}

	snap, err := models.EncodeSnapshot(cart)
	require.NoError(t, err)
	assert.Contains(t, snap, `"price":9.99`)

	sale := models.Sale{Snapshot: snap}
	items, err := sale.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Widget", items[0].Name)
	assert.True(t, items[0].Price.Equal(cart[0].Price))
	assert.Equal(t, 2, items[0].Quantity)
	require.NotNil(t, items[1].ProductID)
	assert.Equal(t, uint(3), *items[1].ProductID)
	assert.Equal(t, "19.98", items[0].LineTotal().StringFixed(2))
}

func TestSaleJSONOmitsFailureCause(t *testing.T) {
	sale := models.Sale{ID: 1, Status: models.SaleRendered, LastError: "s3: AccessDenied arn:aws:iam::123:role"}
	b, err := json.Marshal(sale)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "AccessDenied")
	assert.NotContains(t, string(b), "lastError")
	assert.Contains(t, string(b), `"status":"rendered"`)
}

package seeders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/logger"
)

func init() {
	Register("catalog", SeedCatalog)
}

type demoCategory struct {
	name     string
	products []services.ProductInput
}

var demoCatalog = []demoCategory{
	{name: "Tools", products: []services.ProductInput{
		{Name: "Claw Hammer", Price: decimal.RequireFromString("12.50"), Stock: 40},
		{Name: "Screwdriver Set", Price: decimal.RequireFromString("19.99"), Stock: 25},
	}},
	{name: "Garden", products: []services.ProductInput{
		{Name: "Watering Can", Price: decimal.RequireFromString("9.99"), Stock: 60},
	}},
}

// SeedCatalog loads a small demo catalog into an empty database. It does
// nothing in production or when categories already exist.
func SeedCatalog(ctx context.Context, d Deps) error {
	if d.Config.App.IsProduction() {
		logger.Info("seed: skipping demo catalog in production")
		return nil
	}

	catalog := services.NewCatalogService(
		repositories.NewCategoryRepository(d.DB),
		repositories.NewProductRepository(d.DB),
		nil,
	)
	existing, err := catalog.Categories(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, dc := range demoCatalog {
		cat, err := catalog.CreateCategory(ctx, services.CategoryInput{Name: dc.name})
		if err != nil {
			return err
		}
		for _, p := range dc.products {
			p.CategoryID = cat.ID
			if _, err := catalog.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

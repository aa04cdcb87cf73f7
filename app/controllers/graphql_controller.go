package controllers

import (
	"errors"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/apperr"
	gqlserver "github.com/storefront-go/storefront/pkg/graphql"
)

// CatalogGraphQL serves a read-only view of the catalog:
//
//	{ categories { id name } products(categoryId: 1, minPrice: "10") { name price } }
func CatalogGraphQL(catalog *services.CatalogService) (http.HandlerFunc, error) {
	schema, err := gqlserver.NewSchema(catalogQuery(catalog))
	if err != nil {
		return nil, err
	}
	return gqlserver.Handler(schema), nil
}

var categoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Category",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"createdAt":   &graphql.Field{Type: graphql.DateTime},
		"updatedAt":   &graphql.Field{Type: graphql.DateTime},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		// Money is exposed as its exact decimal string.
		"price": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return productOf(p.Source).Price.StringFixed(2), nil
			},
		},
		"imagePath":  &graphql.Field{Type: graphql.String},
		"categoryId": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"stock":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"createdAt":  &graphql.Field{Type: graphql.DateTime},
		"updatedAt":  &graphql.Field{Type: graphql.DateTime},
	},
})

func productOf(src any) models.Product {
	switch p := src.(type) {
	case *models.Product:
		return *p
	case models.Product:
		return p
	}
	return models.Product{}
}

func catalogQuery(catalog *services.CatalogService) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.Categories(p.Context)
				},
			},
			"category": &graphql.Field{
				Type: categoryType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					cat, err := catalog.Category(p.Context, uint(p.Args["id"].(int)))
					return orNil(cat, err)
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					prod, err := catalog.Product(p.Context, uint(p.Args["id"].(int)))
					return orNil(prod, err)
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"categoryId": &graphql.ArgumentConfig{Type: graphql.Int},
					"minPrice":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return products(p, catalog)
				},
			},
		},
	})
}

func products(p graphql.ResolveParams, catalog *services.CatalogService) ([]models.Product, error) {
	var (
		list []models.Product
		err  error
	)
	if id, ok := p.Args["categoryId"].(int); ok {
		list, err = catalog.ProductsInCategory(p.Context, uint(id))
	} else {
		list, err = catalog.Products(p.Context)
	}
	if apperr.KindOf(err) == apperr.KindNotFound {
		return []models.Product{}, nil
	}
	if err != nil {
		return nil, publicError(err)
	}

	raw, ok := p.Args["minPrice"].(string)
	if !ok {
		return list, nil
	}
	min, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.New("minPrice must be a decimal number")
	}
	kept := make([]models.Product, 0, len(list))
	for _, prod := range list {
		if prod.Price.GreaterThanOrEqual(min) {
			kept = append(kept, prod)
		}
	}
	return kept, nil
}

// orNil turns NotFound into a null field.
func orNil[T any](v *T, err error) (any, error) {
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, publicError(err)
	}
	return v, nil
}

// publicError keeps causes out of the GraphQL errors array.
func publicError(err error) error {
	return errors.New(apperr.From(err).Message)
}

package controllers

import (
	"github.com/shopspring/decimal"

	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/ctx"
)

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

func (h *ProductController) Index(c *ctx.Context) {
	products, err := h.catalog.Products(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(products)
}

func (h *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	p, err := h.catalog.Product(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

// ShowByName GET /products/name/{name}
func (h *ProductController) ShowByName(c *ctx.Context) {
	p, err := h.catalog.ProductByName(c.Context(), c.Param("name"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

// ByCategory GET /products/category/{category}
func (h *ProductController) ByCategory(c *ctx.Context) {
	id, ok := c.ParamUint("category")
	if !ok {
		return
	}
	products, err := h.catalog.ProductsInCategory(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(products)
}

// ByPrice GET /products/price/{price} lists products priced at or above
// the given amount.
func (h *ProductController) ByPrice(c *ctx.Context) {
	min, err := decimal.NewFromString(c.Param("price"))
	if err != nil || min.IsNegative() {
		c.Fail(apperr.Invalid("Invalid price", map[string]string{"price": "The price must be a non-negative number."}))
		return
	}
	products, err := h.catalog.ProductsFrom(c.Context(), min)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(products)
}

func (h *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.catalog.CreateProduct(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Product created successfully", p)
}

// Update PATCH /products/{id}
func (h *ProductController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.ProductPatch
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.catalog.UpdateProduct(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *ProductController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Product deleted successfully")
}

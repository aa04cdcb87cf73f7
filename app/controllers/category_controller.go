package controllers

import (
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/ctx"
)

type CategoryController struct {
	catalog *services.CatalogService
}

func NewCategoryController(catalog *services.CatalogService) *CategoryController {
	return &CategoryController{catalog: catalog}
}

func (h *CategoryController) Index(c *ctx.Context) {
	cats, err := h.catalog.Categories(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cats)
}

func (h *CategoryController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	cat, err := h.catalog.Category(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cat)
}

func (h *CategoryController) Store(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := h.catalog.CreateCategory(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Category created successfully", cat)
}

func (h *CategoryController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := h.catalog.UpdateCategory(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cat)
}

func (h *CategoryController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Category deleted successfully")
}

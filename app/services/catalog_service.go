package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/cache"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/validate"
)

// catalogPrefix namespaces every cached catalog read so a write can drop
// them all at once.
const catalogPrefix = "catalog:"

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	ImagePath   string          `json:"imagePath" validate:"max=255"`
	CategoryID  uint            `json:"categoryId" validate:"required"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// ProductPatch is a partial product update; nil fields are left alone.
type ProductPatch struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gt=0"`
	ImagePath   *string          `json:"imagePath" validate:"omitempty,max=255"`
	CategoryID  *uint            `json:"categoryId" validate:"omitempty,gt=0"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}

// CatalogService owns categories and products. Reads go through the cache
// when one is configured.
type CatalogService struct {
	categories *repositories.CategoryRepository
	products   *repositories.ProductRepository
	cache      *cache.Store
}

// NewCatalogService wires the catalog. store may be nil.
func NewCatalogService(categories *repositories.CategoryRepository, products *repositories.ProductRepository, store *cache.Store) *CatalogService {
	return &CatalogService{categories: categories, products: products, cache: store}
}

// ─── Categories ───────────────────────────────────────────────────────────────

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return cache.Remember(ctx, s.cache, catalogPrefix+"categories", s.cache.TTL(), func() ([]models.Category, error) {
		return s.categories.All(ctx)
	})
}

func (s *CatalogService) Category(ctx context.Context, id uint) (*models.Category, error) {
	key := fmt.Sprintf("%scategory:%d", catalogPrefix, id)
	return cache.Remember(ctx, s.cache, key, s.cache.TTL(), func() (*models.Category, error) {
		return s.categories.Find(ctx, id)
	})
}

// CreateCategory rejects a duplicate name before anything is written.
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}
	if err := s.uniqueCategory(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	c := &models.Category{Name: in.Name, Description: in.Description}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}
	c, err := s.categories.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.uniqueCategory(ctx, in.Name, id); err != nil {
		return nil, err
	}

	c.Name, c.Description = in.Name, in.Description
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// DeleteCategory refuses while products still reference the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.categories.Find(ctx, id); err != nil {
		return err
	}
	inUse, err := s.products.ByCategory(ctx, id)
	if err != nil {
		return err
	}
	if len(inUse) > 0 {
		return apperr.Conflict("Category still has products")
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) uniqueCategory(ctx context.Context, name string, exceptID uint) error {
	taken, err := s.categories.NameTaken(ctx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("Category name already exists")
	}
	return nil
}

// ─── Products ─────────────────────────────────────────────────────────────────

func (s *CatalogService) Products(ctx context.Context) ([]models.Product, error) {
	return cache.Remember(ctx, s.cache, catalogPrefix+"products", s.cache.TTL(), func() ([]models.Product, error) {
		return s.products.All(ctx)
	})
}

func (s *CatalogService) Product(ctx context.Context, id uint) (*models.Product, error) {
	key := fmt.Sprintf("%sproduct:%d", catalogPrefix, id)
	return cache.Remember(ctx, s.cache, key, s.cache.TTL(), func() (*models.Product, error) {
		return s.products.Find(ctx, id)
	})
}

func (s *CatalogService) ProductByName(ctx context.Context, name string) (*models.Product, error) {
	return s.products.FindByName(ctx, name)
}

// ProductsInCategory answers NotFound when the category has no products.
func (s *CatalogService) ProductsInCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	key := fmt.Sprintf("%sproducts:category:%d", catalogPrefix, categoryID)
	out, err := cache.Remember(ctx, s.cache, key, s.cache.TTL(), func() ([]models.Product, error) {
		return s.products.ByCategory(ctx, categoryID)
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("No products found for this category")
	}
	return out, nil
}

// ProductsFrom lists products priced at or above min; NotFound when none are.
func (s *CatalogService) ProductsFrom(ctx context.Context, min decimal.Decimal) ([]models.Product, error) {
	key := catalogPrefix + "products:price:" + min.String()
	out, err := cache.Remember(ctx, s.cache, key, s.cache.TTL(), func() ([]models.Product, error) {
		return s.products.AtLeast(ctx, min)
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("No products found for this price")
	}
	return out, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}
	if err := s.categoryExists(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	if err := s.uniqueProduct(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImagePath:   in.ImagePath,
		CategoryID:  in.CategoryID,
		Stock:       in.Stock,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductPatch) (*models.Product, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}
	p, err := s.products.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && *in.Name != p.Name {
		if err := s.uniqueProduct(ctx, *in.Name, id); err != nil {
			return nil, err
		}
		p.Name = *in.Name
	}
	if in.CategoryID != nil && *in.CategoryID != p.CategoryID {
		if err := s.categoryExists(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		p.CategoryID = *in.CategoryID
	}
	assign(&p.Description, in.Description)
	assign(&p.Price, in.Price)
	assign(&p.ImagePath, in.ImagePath)
	assign(&p.Stock, in.Stock)

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) categoryExists(ctx context.Context, id uint) error {
	if _, err := s.categories.Find(ctx, id); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Invalid("Validation failed", map[string]string{
				"categoryId": "The selected categoryId is invalid.",
			})
		}
		return err
	}
	return nil
}

func (s *CatalogService) uniqueProduct(ctx context.Context, name string, exceptID uint) error {
	taken, err := s.products.NameTaken(ctx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("Product name already exists")
	}
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.ForgetPrefix(ctx, catalogPrefix); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
}

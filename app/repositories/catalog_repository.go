package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/pkg/apperr"
)

// ─── Categories ───────────────────────────────────────────────────────────────

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) All(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, translate(err, "Category")
	}
	return out, nil
}

func (r *CategoryRepository) Find(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, "Category")
	}
	return &c, nil
}

// NameTaken reports whether another category already uses name.
func (r *CategoryRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, translate(err, "Category")
	}
	return n > 0, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return translate(r.db.WithContext(ctx).Create(c).Error, "Category")
}

func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	return translate(r.db.WithContext(ctx).Save(c).Error, "Category")
}

func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return translate(res.Error, "Category")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Category not found")
	}
	return nil
}

// ─── Products ─────────────────────────────────────────────────────────────────

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, translate(err, "Product")
	}
	return out, nil
}

func (r *ProductRepository) Find(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "Product")
	}
	return &p, nil
}

func (r *ProductRepository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		return nil, translate(err, "Product")
	}
	return &p, nil
}

func (r *ProductRepository) ByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	var out []models.Product
	err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).Order("id").Find(&out).Error
	if err != nil {
		return nil, translate(err, "Product")
	}
	return out, nil
}

// AtLeast returns products priced at or above min.
func (r *ProductRepository) AtLeast(ctx context.Context, min decimal.Decimal) ([]models.Product, error) {
	var out []models.Product
	err := r.db.WithContext(ctx).Where("price >= ?", min).Order("price, id").Find(&out).Error
	if err != nil {
		return nil, translate(err, "Product")
	}
	return out, nil
}

func (r *ProductRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, translate(err, "Product")
	}
	return n > 0, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "Product")
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	return translate(r.db.WithContext(ctx).Save(p).Error, "Product")
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return translate(res.Error, "Product")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

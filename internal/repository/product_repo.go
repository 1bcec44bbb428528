package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"storefront/internal/model"
)

// ProductRepository product repository interface
type ProductRepository interface {
	// Create product
	Create(ctx context.Context, product *model.Product) error

	// Get product by ID
	GetByID(ctx context.Context, id uint64) (*model.Product, error)

	// Update product
	Update(ctx context.Context, product *model.Product) error

	// List products with their category preloaded
	List(ctx context.Context, page, pageSize int, categoryID uint64) ([]*model.Product, int64, error)

	// Set the discount fields on one product row
	UpdateDiscount(ctx context.Context, id uint64, percent float64, start, end *time.Time) error

	// Clear the discount fields on one product row
	ClearDiscount(ctx context.Context, id uint64) error

	// Set the discount fields on every variant of a product
	UpdateVariantDiscounts(ctx context.Context, productID uint64, percent float64, start, end *time.Time) error

	// Clear the discount fields on every variant of a product
	ClearVariantDiscounts(ctx context.Context, productID uint64) error
}

// productRepository product repository implementation
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a product
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID gets a product by ID
func (r *productRepository) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, err
	}
	return &product, nil
}

// Update updates a product
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// List lists products
func (r *productRepository) List(ctx context.Context, page, pageSize int, categoryID uint64) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("status = ?", model.ProductStatusActive)

	if categoryID > 0 {
		db = db.Where("category_id = ?", categoryID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Category").
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&products).Error

	return products, total, err
}

// UpdateDiscount sets the discount fields on one product row
func (r *productRepository) UpdateDiscount(ctx context.Context, id uint64, percent float64, start, end *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"discount_percent":    percent,
			"discount_start_date": start,
			"discount_end_date":   end,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("product not found")
	}
	return nil
}

// ClearDiscount clears the discount fields on one product row
func (r *productRepository) ClearDiscount(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"discount_percent":    0,
			"discount_start_date": nil,
			"discount_end_date":   nil,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("product not found")
	}
	return nil
}

// UpdateVariantDiscounts sets the discount fields on every variant
func (r *productRepository) UpdateVariantDiscounts(ctx context.Context, productID uint64, percent float64, start, end *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"discount_percent":    percent,
			"discount_start_date": start,
			"discount_end_date":   end,
		}).Error
}

// ClearVariantDiscounts clears the discount fields on every variant
func (r *productRepository) ClearVariantDiscounts(ctx context.Context, productID uint64) error {
	return r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"discount_percent":    0,
			"discount_start_date": nil,
			"discount_end_date":   nil,
		}).Error
}

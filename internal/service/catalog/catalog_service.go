// Package catalog serves priced product listings and the admin bulk discount
// operations.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/model"
	"storefront/internal/monitor"
	"storefront/internal/pricing"
	"storefront/internal/redis"
	"storefront/internal/repository"
	"storefront/pkg/log"
	"storefront/pkg/utils"
)

// bulkWorkers caps concurrent per-product updates during a bulk apply.
const bulkWorkers = 8

// BulkDiscountRequest is an admin bulk apply request.
type BulkDiscountRequest struct {
	ProductIDs []uint64   `json:"product_ids" binding:"required,min=1"`
	// An explicit 0 is a valid request (it clears the discount), so the
	// range validation decides, not required's zero-value check.
	Percent    float64    `json:"discount_percentage" binding:"gte=0,lte=100"`
	StartDate  *time.Time `json:"discount_start_date"`
	EndDate    *time.Time `json:"discount_end_date"`
}

// BulkFailure records one product that could not be updated.
type BulkFailure struct {
	ProductID uint64 `json:"product_id"`
	Reason    string `json:"reason"`
}

// BulkResult reports the outcome of a bulk operation. Updates are independent
// per product: a failure leaves earlier successes in place, there is no
// rollback.
type BulkResult struct {
	Succeeded []uint64      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// CatalogService catalog service interface
type CatalogService interface {
	// GetProduct returns one product with resolved pricing.
	GetProduct(ctx context.Context, id uint64) (*pricing.PricedProduct, error)

	// ListProducts returns a priced product page.
	ListProducts(ctx context.Context, page, pageSize int, categoryID uint64) ([]pricing.PricedProduct, int64, error)

	// BulkApplyDiscount sets a discount on every selected product and its
	// variants. Percent must lie in [0, 100].
	BulkApplyDiscount(ctx context.Context, req *BulkDiscountRequest) (*BulkResult, error)

	// BulkRemoveDiscount clears the discount on every selected product and
	// its variants.
	BulkRemoveDiscount(ctx context.Context, productIDs []uint64) (*BulkResult, error)

	// ListCategories returns all categories.
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

// catalogService catalog service implementation
type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cacheTTL     time.Duration
	metrics      *monitor.MetricsCollector
}

// NewCatalogService creates a catalog service
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	cacheTTL time.Duration,
	metrics *monitor.MetricsCollector,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cacheTTL:     cacheTTL,
		metrics:      metrics,
	}
}

// GetProduct returns one product with resolved pricing
func (s *catalogService) GetProduct(ctx context.Context, id uint64) (*pricing.PricedProduct, error) {
	cacheKey := fmt.Sprintf("product:%d", id)

	var product model.Product
	if err := redis.GetJSON(ctx, cacheKey, &product); err != nil {
		loaded, err := s.productRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		product = *loaded
		if err := redis.SetJSON(ctx, cacheKey, product, s.cacheTTL); err != nil {
			log.Warnf("Failed to cache product %d: %v", id, err)
		}
	}

	priced := pricing.PriceProduct(&product, product.Category, time.Now())
	return &priced, nil
}

// ListProducts returns a priced product page
func (s *catalogService) ListProducts(ctx context.Context, page, pageSize int, categoryID uint64) ([]pricing.PricedProduct, int64, error) {
	products, total, err := s.productRepo.List(ctx, page, pageSize, categoryID)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	priced := make([]pricing.PricedProduct, 0, len(products))
	for _, p := range products {
		priced = append(priced, pricing.PriceProduct(p, p.Category, now))
	}
	return priced, total, nil
}

// BulkApplyDiscount sets a discount on every selected product
func (s *catalogService) BulkApplyDiscount(ctx context.Context, req *BulkDiscountRequest) (*BulkResult, error) {
	if !utils.IsValidPercent(req.Percent) {
		return nil, utils.ErrInvalidDiscount
	}

	result := s.forEachProduct(ctx, req.ProductIDs, func(ctx context.Context, id uint64) error {
		if err := s.productRepo.UpdateDiscount(ctx, id, req.Percent, req.StartDate, req.EndDate); err != nil {
			return err
		}
		return s.productRepo.UpdateVariantDiscounts(ctx, id, req.Percent, req.StartDate, req.EndDate)
	})

	if s.metrics != nil {
		outcome := "success"
		if len(result.Failed) > 0 {
			outcome = "partial"
		}
		s.metrics.CountDiscountApply(outcome)
	}

	log.WithFields(map[string]interface{}{
		"requested": len(req.ProductIDs),
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
		"percent":   req.Percent,
	}).Info("Bulk discount apply finished")

	return result, nil
}

// BulkRemoveDiscount clears the discount on every selected product
func (s *catalogService) BulkRemoveDiscount(ctx context.Context, productIDs []uint64) (*BulkResult, error) {
	result := s.forEachProduct(ctx, productIDs, func(ctx context.Context, id uint64) error {
		if err := s.productRepo.ClearDiscount(ctx, id); err != nil {
			return err
		}
		return s.productRepo.ClearVariantDiscounts(ctx, id)
	})

	if s.metrics != nil {
		outcome := "success"
		if len(result.Failed) > 0 {
			outcome = "partial"
		}
		s.metrics.CountDiscountRemove(outcome)
	}

	return result, nil
}

// ListCategories returns all categories
func (s *catalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.categoryRepo.List(ctx)
}

// forEachProduct applies fn to every product concurrently. Each update stands
// alone; a failed product never rolls back the others.
func (s *catalogService) forEachProduct(ctx context.Context, productIDs []uint64, fn func(ctx context.Context, id uint64) error) *BulkResult {
	var mu sync.Mutex
	result := &BulkResult{
		Succeeded: make([]uint64, 0, len(productIDs)),
		Failed:    make([]BulkFailure, 0),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkWorkers)

	for _, id := range productIDs {
		id := id
		g.Go(func() error {
			err := fn(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, BulkFailure{ProductID: id, Reason: err.Error()})
				if s.metrics != nil {
					s.metrics.CountBulkFailure()
				}
			} else {
				result.Succeeded = append(result.Succeeded, id)
				s.invalidateProduct(id)
			}
			// Always nil: one bad product must not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Succeeded, func(i, j int) bool { return result.Succeeded[i] < result.Succeeded[j] })
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].ProductID < result.Failed[j].ProductID })
	return result
}

func (s *catalogService) invalidateProduct(id uint64) {
	if err := redis.Delete(context.Background(), fmt.Sprintf("product:%d", id)); err != nil {
		log.Warnf("Failed to invalidate product cache %d: %v", id, err)
	}
}

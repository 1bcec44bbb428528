package catalog

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

// fakeProductRepo is an in-memory ProductRepository. failIDs simulates
// per-product update failures during bulk operations.
type fakeProductRepo struct {
	mu       sync.Mutex
	products map[uint64]*model.Product
	failIDs  map[uint64]bool
}

func newFakeProductRepo(products ...*model.Product) *fakeProductRepo {
	repo := &fakeProductRepo{
		products: make(map[uint64]*model.Product),
		failIDs:  make(map[uint64]bool),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeProductRepo) Create(ctx context.Context, product *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, errors.New("product not found")
	}
	return p, nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *model.Product) error {
	return r.Create(ctx, product)
}

func (r *fakeProductRepo) List(ctx context.Context, page, pageSize int, categoryID uint64) ([]*model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Product
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) UpdateDiscount(ctx context.Context, id uint64, percent float64, start, end *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[id] {
		return errors.New("simulated update failure")
	}
	p, ok := r.products[id]
	if !ok {
		return errors.New("product not found")
	}
	p.DiscountPercent = percent
	p.DiscountStartDate = start
	p.DiscountEndDate = end
	return nil
}

func (r *fakeProductRepo) ClearDiscount(ctx context.Context, id uint64) error {
	return r.UpdateDiscount(ctx, id, 0, nil, nil)
}

func (r *fakeProductRepo) UpdateVariantDiscounts(ctx context.Context, productID uint64, percent float64, start, end *time.Time) error {
	return nil
}

func (r *fakeProductRepo) ClearVariantDiscounts(ctx context.Context, productID uint64) error {
	return nil
}

type fakeCategoryRepo struct {
	categories []*model.Category
}

func (r *fakeCategoryRepo) Create(ctx context.Context, category *model.Category) error { return nil }
func (r *fakeCategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	for _, c := range r.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, errors.New("category not found")
}
func (r *fakeCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	return r.categories, nil
}
func (r *fakeCategoryRepo) Update(ctx context.Context, category *model.Category) error { return nil }

func testProduct(id uint64, price int64) *model.Product {
	return &model.Product{
		ID:     id,
		Name:   "Phone",
		Price:  price,
		Status: model.ProductStatusActive,
	}
}

func TestBulkApplyDiscount_AllSucceed(t *testing.T) {
	repo := newFakeProductRepo(testProduct(1, 10000), testProduct(2, 20000), testProduct(3, 30000))
	svc := NewCatalogService(repo, &fakeCategoryRepo{}, time.Minute, nil)

	result, err := svc.BulkApplyDiscount(context.Background(), &BulkDiscountRequest{
		ProductIDs: []uint64{1, 2, 3},
		Percent:    25,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, result.Succeeded)
	assert.Empty(t, result.Failed)

	for _, id := range []uint64{1, 2, 3} {
		p, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 25.0, p.DiscountPercent)
	}
}

func TestBulkApplyDiscount_PartialFailureKeepsSuccesses(t *testing.T) {
	repo := newFakeProductRepo(testProduct(1, 10000), testProduct(2, 20000), testProduct(3, 30000))
	repo.failIDs[2] = true
	svc := NewCatalogService(repo, &fakeCategoryRepo{}, time.Minute, nil)

	result, err := svc.BulkApplyDiscount(context.Background(), &BulkDiscountRequest{
		ProductIDs: []uint64{1, 2, 3},
		Percent:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, uint64(2), result.Failed[0].ProductID)

	// No rollback: the updated products keep their discount.
	p1, _ := repo.GetByID(context.Background(), 1)
	p3, _ := repo.GetByID(context.Background(), 3)
	assert.Equal(t, 10.0, p1.DiscountPercent)
	assert.Equal(t, 10.0, p3.DiscountPercent)

	p2, _ := repo.GetByID(context.Background(), 2)
	assert.Equal(t, 0.0, p2.DiscountPercent)
}

func TestBulkApplyDiscount_RejectsOutOfRangePercent(t *testing.T) {
	repo := newFakeProductRepo(testProduct(1, 10000))
	svc := NewCatalogService(repo, &fakeCategoryRepo{}, time.Minute, nil)

	tests := []float64{-5, 101, math.NaN()}
	for _, percent := range tests {
		_, err := svc.BulkApplyDiscount(context.Background(), &BulkDiscountRequest{
			ProductIDs: []uint64{1},
			Percent:    percent,
		})
		assert.Error(t, err, "percent %v should be rejected", percent)
	}

	// The product was never touched.
	p, _ := repo.GetByID(context.Background(), 1)
	assert.Equal(t, 0.0, p.DiscountPercent)
}

func TestBulkRemoveDiscount_PartialFailure(t *testing.T) {
	p1 := testProduct(1, 10000)
	p1.DiscountPercent = 30
	p2 := testProduct(2, 20000)
	p2.DiscountPercent = 30
	repo := newFakeProductRepo(p1, p2)
	repo.failIDs[2] = true
	svc := NewCatalogService(repo, &fakeCategoryRepo{}, time.Minute, nil)

	result, err := svc.BulkRemoveDiscount(context.Background(), []uint64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, result.Succeeded)
	require.Len(t, result.Failed, 1)

	// The cleared product stays cleared despite the other one failing.
	got1, _ := repo.GetByID(context.Background(), 1)
	assert.Equal(t, 0.0, got1.DiscountPercent)
	got2, _ := repo.GetByID(context.Background(), 2)
	assert.Equal(t, 30.0, got2.DiscountPercent)
}

func TestListProducts_ResolvesEffectiveDiscount(t *testing.T) {
	p := testProduct(1, 10000)
	p.DiscountPercent = 10
	p.Category = &model.Category{ID: 7, Name: "Phones", DiscountPercent: 25}
	categoryID := uint64(7)
	p.CategoryID = &categoryID

	repo := newFakeProductRepo(p)
	svc := NewCatalogService(repo, &fakeCategoryRepo{}, time.Minute, nil)

	priced, total, err := svc.ListProducts(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, priced, 1)

	// Category 25% beats product 10%; discounts never stack.
	assert.Equal(t, 25.0, priced[0].EffectivePct)
	assert.Equal(t, int64(7500), priced[0].FinalPrice)
}

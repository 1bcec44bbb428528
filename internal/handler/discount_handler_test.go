package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/service/catalog"
	"storefront/pkg/utils"
)

// MockCatalogService mock catalog service
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uint64) (*pricing.PricedProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.PricedProduct), args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, page, pageSize int, categoryID uint64) ([]pricing.PricedProduct, int64, error) {
	args := m.Called(ctx, page, pageSize, categoryID)
	return args.Get(0).([]pricing.PricedProduct), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogService) BulkApplyDiscount(ctx context.Context, req *catalog.BulkDiscountRequest) (*catalog.BulkResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.BulkResult), args.Error(1)
}

func (m *MockCatalogService) BulkRemoveDiscount(ctx context.Context, productIDs []uint64) (*catalog.BulkResult, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.BulkResult), args.Error(1)
}

func (m *MockCatalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.Category), args.Error(1)
}

func TestDiscountHandler_BulkApply(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("partial failure is reported per product", func(t *testing.T) {
		mockService := new(MockCatalogService)
		handler := NewDiscountHandler(mockService)

		router := gin.New()
		router.POST("/admin/discounts/apply", handler.BulkApply)

		mockService.On("BulkApplyDiscount", mock.Anything, mock.Anything).Return(&catalog.BulkResult{
			Succeeded: []uint64{1, 3},
			Failed:    []catalog.BulkFailure{{ProductID: 2, Reason: "product not found"}},
		}, nil)

		body, _ := json.Marshal(map[string]interface{}{
			"product_ids":         []uint64{1, 2, 3},
			"discount_percentage": 25,
		})
		req, _ := http.NewRequest("POST", "/admin/discounts/apply", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Len(t, data["succeeded"], 2)
		assert.Len(t, data["failed"], 1)

		mockService.AssertExpectations(t)
	})

	t.Run("out of range percent is rejected", func(t *testing.T) {
		mockService := new(MockCatalogService)
		handler := NewDiscountHandler(mockService)

		router := gin.New()
		router.POST("/admin/discounts/apply", handler.BulkApply)

		mockService.On("BulkApplyDiscount", mock.Anything, mock.Anything).
			Return(nil, utils.ErrInvalidDiscount)

		body, _ := json.Marshal(map[string]interface{}{
			"product_ids":         []uint64{1},
			"discount_percentage": 150,
		})
		req, _ := http.NewRequest("POST", "/admin/discounts/apply", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("explicit zero percent reaches the service", func(t *testing.T) {
		mockService := new(MockCatalogService)
		handler := NewDiscountHandler(mockService)

		router := gin.New()
		router.POST("/admin/discounts/apply", handler.BulkApply)

		mockService.On("BulkApplyDiscount", mock.Anything, mock.Anything).Return(&catalog.BulkResult{
			Succeeded: []uint64{1},
			Failed:    []catalog.BulkFailure{},
		}, nil)

		// 0 clears the discount, it is not a missing field.
		body, _ := json.Marshal(map[string]interface{}{
			"product_ids":         []uint64{1},
			"discount_percentage": 0,
		})
		req, _ := http.NewRequest("POST", "/admin/discounts/apply", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("missing product ids is rejected before the service is called", func(t *testing.T) {
		mockService := new(MockCatalogService)
		handler := NewDiscountHandler(mockService)

		router := gin.New()
		router.POST("/admin/discounts/apply", handler.BulkApply)

		body, _ := json.Marshal(map[string]interface{}{
			"discount_percentage": 25,
		})
		req, _ := http.NewRequest("POST", "/admin/discounts/apply", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "BulkApplyDiscount")
	})
}

func TestDiscountHandler_BulkRemove(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockCatalogService)
	handler := NewDiscountHandler(mockService)

	router := gin.New()
	router.POST("/admin/discounts/remove", handler.BulkRemove)

	mockService.On("BulkRemoveDiscount", mock.Anything, []uint64{1, 2}).Return(&catalog.BulkResult{
		Succeeded: []uint64{1, 2},
		Failed:    []catalog.BulkFailure{},
	}, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"product_ids": []uint64{1, 2},
	})
	req, _ := http.NewRequest("POST", "/admin/discounts/remove", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Len(t, data["succeeded"], 2)

	mockService.AssertExpectations(t)
}

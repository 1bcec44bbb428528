package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service/catalog"
	"storefront/pkg/utils"
)

// DiscountHandler admin bulk discount handler
type DiscountHandler struct {
	catalogService catalog.CatalogService
}

// NewDiscountHandler creates a discount handler
func NewDiscountHandler(catalogService catalog.CatalogService) *DiscountHandler {
	return &DiscountHandler{
		catalogService: catalogService,
	}
}

// BulkApply sets a discount on the selected products. Partial failures are
// reported per product; successful updates are never rolled back.
func (h *DiscountHandler) BulkApply(c *gin.Context) {
	var req catalog.BulkDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	result, err := h.catalogService.BulkApplyDiscount(c.Request.Context(), &req)
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			utils.Error(c, appErr.Code, appErr.Message)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "bulk discount apply failed")
		return
	}

	utils.SuccessResponse(c, result)
}

// BulkRemove clears the discount on the selected products
func (h *DiscountHandler) BulkRemove(c *gin.Context) {
	var req struct {
		ProductIDs []uint64 `json:"product_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	result, err := h.catalogService.BulkRemoveDiscount(c.Request.Context(), req.ProductIDs)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "bulk discount removal failed")
		return
	}

	utils.SuccessResponse(c, result)
}

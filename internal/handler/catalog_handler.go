package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/service/catalog"
	"storefront/pkg/utils"
)

// CatalogHandler product catalog handler
type CatalogHandler struct {
	catalogService catalog.CatalogService
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(catalogService catalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// ListProducts lists products with resolved pricing
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	categoryID, _ := strconv.ParseUint(c.DefaultQuery("category_id", "0"), 10, 64)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	products, total, err := h.catalogService.ListProducts(c.Request.Context(), page, pageSize, categoryID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to list products")
		return
	}

	utils.SuccessPageResponse(c, products, total, page, pageSize)
}

// GetProduct returns one product with resolved pricing
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "product not found")
		return
	}

	utils.SuccessResponse(c, product)
}

// ListCategories lists all categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to list categories")
		return
	}

	utils.SuccessResponse(c, categories)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/middleware"
	"storefront/internal/service/checkout"
	"storefront/internal/shipping"
	"storefront/pkg/utils"
)

// CheckoutHandler cart and order handler
type CheckoutHandler struct {
	checkoutService checkout.CheckoutService
	shipper         shipping.Client
}

// NewCheckoutHandler creates a checkout handler
func NewCheckoutHandler(checkoutService checkout.CheckoutService, shipper shipping.Client) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		shipper:         shipper,
	}
}

// Quote prices the cart without creating an order
func (h *CheckoutHandler) Quote(c *gin.Context) {
	var req struct {
		Lines []checkout.CartLine `json:"lines" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	quote, err := h.checkoutService.QuoteCart(c.Request.Context(), req.Lines)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	utils.SuccessResponse(c, quote)
}

// CreateOrder creates an order and opens a payment intent
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Lines []checkout.CartLine `json:"lines" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	result, err := h.checkoutService.CreateOrder(c.Request.Context(), uint64(userID), req.Lines)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, err.Error())
		return
	}

	utils.SuccessResponse(c, result)
}

// ConfirmPayment marks the order paid after client-side confirmation
func (h *CheckoutHandler) ConfirmPayment(c *gin.Context) {
	orderNo := c.Param("order_no")
	if err := h.checkoutService.ConfirmPayment(c.Request.Context(), orderNo); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.SuccessResponse(c, nil)
}

// ListOrders pages the caller's orders
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	orders, total, err := h.checkoutService.ListOrders(c.Request.Context(), uint64(userID), page, pageSize)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to list orders")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
	})
}

// GetOrder returns one order. Customers only see their own; admins see any.
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	order, err := h.checkoutService.GetOrder(c.Request.Context(), uint64(userID), c.Param("order_no"), middleware.IsAdmin(c))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "order not found")
		return
	}
	utils.SuccessResponse(c, order)
}

// Refund refunds a paid order. Customers may refund their own orders; admins
// any order.
func (h *CheckoutHandler) Refund(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
		return
	}
	orderNo := c.Param("order_no")

	var req struct {
		Reason string `json:"reason" binding:"required,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	if _, err := h.checkoutService.GetOrder(c.Request.Context(), uint64(userID), orderNo, middleware.IsAdmin(c)); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "order not found")
		return
	}

	if err := h.checkoutService.RefundOrder(c.Request.Context(), orderNo, req.Reason); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	utils.SuccessResponse(c, nil)
}

// BookShipment books a carrier shipment for a paid order
func (h *CheckoutHandler) BookShipment(c *gin.Context) {
	orderNo := c.Param("order_no")

	var req struct {
		To       shipping.Address `json:"to" binding:"required"`
		WeightKg float64          `json:"weight_kg" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	shipment, err := h.checkoutService.BookShipment(c.Request.Context(), orderNo, req.To, req.WeightKg)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, err.Error())
		return
	}
	utils.SuccessResponse(c, shipment)
}

// Track returns the carrier scan history for a tracking number
func (h *CheckoutHandler) Track(c *gin.Context) {
	trackingNumber := c.Param("tracking_number")
	if trackingNumber == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "tracking number required")
		return
	}

	events, err := h.shipper.Track(c.Request.Context(), trackingNumber)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, err.Error())
		return
	}
	utils.SuccessResponse(c, events)
}

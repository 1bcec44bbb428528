package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service/newsletter"
	"storefront/pkg/utils"
)

// NewsletterHandler newsletter subscription handler
type NewsletterHandler struct {
	newsletterService newsletter.NewsletterService
}

// NewNewsletterHandler creates a newsletter handler
func NewNewsletterHandler(newsletterService newsletter.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{
		newsletterService: newsletterService,
	}
}

// Subscribe adds an email to the list
func (h *NewsletterHandler) Subscribe(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.newsletterService.Subscribe(c.Request.Context(), req.Email); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "subscription failed")
		return
	}
	utils.SuccessResponse(c, nil)
}

// Unsubscribe removes an email from the list
func (h *NewsletterHandler) Unsubscribe(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.newsletterService.Unsubscribe(c.Request.Context(), req.Email); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "unsubscribe failed")
		return
	}
	utils.SuccessResponse(c, nil)
}

// SendCampaign enqueues a newsletter for all subscribers. Admin only.
func (h *NewsletterHandler) SendCampaign(c *gin.Context) {
	var req newsletter.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	enqueued, err := h.newsletterService.SendCampaign(c.Request.Context(), &req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "campaign dispatch failed")
		return
	}

	utils.SuccessResponse(c, gin.H{"enqueued": enqueued})
}

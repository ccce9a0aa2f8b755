package handlers

import (
	"net/http"

	"github.com/amanora/mall-navigator-backend/internal/middleware"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// OfferHandler handles offer catalogue and redemption requests
type OfferHandler struct {
	offerService services.OfferService
}

// NewOfferHandler creates a new OfferHandler
func NewOfferHandler(offerService services.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

// ListActive handles GET /offers
func (h *OfferHandler) ListActive(c *gin.Context) {
	offers, err := h.offerService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

// Create handles POST /offers (admin)
func (h *OfferHandler) Create(c *gin.Context) {
	var req models.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offer, err := h.offerService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

// Redeem handles POST /offers/redeem
func (h *OfferHandler) Redeem(c *gin.Context) {
	var req models.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
		return
	}

	resp, err := h.offerService.Redeem(c.Request.Context(), req.OfferID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

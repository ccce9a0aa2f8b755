package handlers

import (
	"net/http"

	"github.com/amanora/mall-navigator-backend/internal/middleware"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProximityHandler serves the proximity check polled by the mobile client
type ProximityHandler struct {
	proximityService services.ProximityService
}

// NewProximityHandler creates a new ProximityHandler
func NewProximityHandler(proximityService services.ProximityService) *ProximityHandler {
	return &ProximityHandler{proximityService: proximityService}
}

// Check handles POST /proximity/check. Authentication is optional and only
// attributes analytics.
func (h *ProximityHandler) Check(c *gin.Context) {
	var sample models.ProximitySample
	if err := c.ShouldBindJSON(&sample); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *primitive.ObjectID
	if id, ok := middleware.UserID(c); ok {
		userID = &id
	}

	result, err := h.proximityService.Resolve(c.Request.Context(), sample, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

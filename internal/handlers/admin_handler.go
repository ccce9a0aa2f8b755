package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/amanora/mall-navigator-backend/internal/middleware"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminHandler handles the dashboard and tracking endpoints
type AdminHandler struct {
	adminService services.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TrackQRScan handles POST /qr/scan
func (h *AdminHandler) TrackQRScan(c *gin.Context) {
	var req models.QRScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *primitive.ObjectID
	if id, ok := middleware.UserID(c); ok {
		userID = &id
	}
	if err := h.adminService.TrackQRScan(c.Request.Context(), req.Source, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

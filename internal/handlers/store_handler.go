package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/amanora/mall-navigator-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// StoreHandler handles store directory requests
type StoreHandler struct {
	storeService services.StoreService
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(storeService services.StoreService) *StoreHandler {
	return &StoreHandler{storeService: storeService}
}

// List handles GET /stores
func (h *StoreHandler) List(c *gin.Context) {
	stores, err := h.storeService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

// Create handles POST /stores (admin)
func (h *StoreHandler) Create(c *gin.Context) {
	var store models.Store
	if err := c.ShouldBindJSON(&store); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.storeService.Create(c.Request.Context(), &store)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Nearby handles GET /stores/nearby?lat=&lng=
func (h *StoreHandler) Nearby(c *gin.Context) {
	lat, ok := queryCoordinate(c, "lat")
	if !ok {
		return
	}
	lng, ok := queryCoordinate(c, "lng")
	if !ok {
		return
	}

	stores, err := h.storeService.Nearby(c.Request.Context(), lat, lng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

// queryCoordinate reads an optional float query parameter. It writes a 400 and
// reports false when the value is present but not a number.
func queryCoordinate(c *gin.Context, name string) (models.Coordinate, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return models.Coordinate{}, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a number"})
		return models.Coordinate{}, false
	}
	return models.Coord(v), true
}

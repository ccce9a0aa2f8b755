package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/handlers"
	"github.com/amanora/mall-navigator-backend/internal/middleware"
	"github.com/amanora/mall-navigator-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// HandlerDependencies holds all handlers needed by the router
type HandlerDependencies struct {
	AuthHandler      *handlers.AuthHandler
	StoreHandler     *handlers.StoreHandler
	OfferHandler     *handlers.OfferHandler
	ProximityHandler *handlers.ProximityHandler
	AdminHandler     *handlers.AdminHandler
}

// RouterConfig holds the router's non-handler dependencies
type RouterConfig struct {
	AllowedOrigins []string
	Tokens         *jwt.TokenService
	// Ready reports whether storage is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

// SetupRouter sets up the router
func SetupRouter(cfg RouterConfig, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				log.Warn().Err(err).Msg("readiness check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "storage unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.JWTAuthMiddleware(cfg.Tokens)
	optionalAuth := middleware.OptionalAuth(cfg.Tokens)
	adminOnly := middleware.AdminOnly()

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", deps.AuthHandler.Signup)
			auth.POST("/login", deps.AuthHandler.Login)
			auth.GET("/me", requireAuth, deps.AuthHandler.Me)
		}

		stores := api.Group("/stores")
		{
			stores.GET("", deps.StoreHandler.List)
			stores.GET("/nearby", deps.StoreHandler.Nearby)
			stores.POST("", requireAuth, adminOnly, deps.StoreHandler.Create)
		}

		offers := api.Group("/offers")
		{
			offers.GET("", deps.OfferHandler.ListActive)
			offers.POST("", requireAuth, adminOnly, deps.OfferHandler.Create)
			offers.POST("/redeem", requireAuth, deps.OfferHandler.Redeem)
		}

		api.POST("/proximity/check", optionalAuth, deps.ProximityHandler.Check)
		api.POST("/qr/scan", optionalAuth, deps.AdminHandler.TrackQRScan)
		api.GET("/admin/stats", requireAuth, adminOnly, deps.AdminHandler.Stats)
	}

	return router
}

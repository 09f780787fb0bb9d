package api

import (
	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/middleware"
	"github.com/payperplay/hosting/pkg/config"
)

// SetupRouter wires every handler onto its route, matching the HTTP surface table. One
// Handler instance backs nearly all routes since its resource dependencies (stores,
// provider, scheduler) are shared across endpoints.
func SetupRouter(handler *Handler, authMiddleware gin.HandlerFunc, cfg *config.Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimiter))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/health", Health)
	router.HEAD("/health", Health)
	router.GET("/metrics", Metrics)

	// POST /api/seed-complete authenticates with the per-deployment seedCompleteSecret
	// bearer token, not a candidate JWT, so it sits outside the authMiddleware group.
	router.POST("/api/seed-complete", handler.SeedComplete)

	api := router.Group("/api")
	api.Use(authMiddleware)
	api.Use(middleware.RateLimitMiddleware(middleware.APIRateLimiter))
	{
		api.GET("/auth/me", handler.Me)
		api.GET("/gpu-types", handler.ListGPUTypes)

		expensive := middleware.RateLimitMiddleware(middleware.ExpensiveRateLimiter)

		api.GET("/vms", handler.ListVMs)
		api.POST("/vms/launch", expensive, handler.LaunchVM)
		api.POST("/vms/terminate", expensive, handler.TerminateVM)
		api.POST("/vms/restart", handler.RestartVM)

		api.GET("/filesystems", handler.ListFilesystems)

		api.GET("/launch-requests", handler.ListLaunchRequests)
		api.POST("/launch-requests", expensive, handler.SubmitLaunchRequest)
		api.POST("/launch-requests/cancel", handler.CancelLaunchRequest)

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/candidates", handler.ListCandidates)
			admin.POST("/candidates", handler.AddCandidate)
			admin.DELETE("/candidates", handler.DeactivateCandidate)
			admin.GET("/candidates/:email/vms", handler.CandidateVMHistory)
			admin.POST("/quota", handler.SetQuota)
			admin.GET("/settings", handler.GetSettings)
			admin.PUT("/settings", handler.UpdateSettings)
			admin.GET("/audit", handler.ListAudit)
			admin.DELETE("/filesystems", handler.DeleteFilesystem)
		}
	}

	return router
}

// Package router wires the HTTP routes onto the gin engine.
package router

import (
	"pvz-sync/internal/handler"
	"pvz-sync/internal/middleware"
	"pvz-sync/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all middleware and routes.
func NewRouter(serverHandler *handler.Server, configManager types.ConfigManager) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(configManager.GetLogConfig()))
	router.Use(middleware.CORS(configManager.GetCORSConfig()))

	registerSystemRoutes(router, serverHandler)
	registerAPIRoutes(router, serverHandler, configManager)

	return router
}

// registerSystemRoutes registers system-level routes
func registerSystemRoutes(router *gin.Engine, serverHandler *handler.Server) {
	router.GET("/health", serverHandler.Health)
}

// registerAPIRoutes registers API routes
func registerAPIRoutes(router *gin.Engine, serverHandler *handler.Server, configManager types.ConfigManager) {
	api := router.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(middleware.Auth(configManager.GetAuthConfig()))

	sync := api.Group("/sync")
	{
		sync.POST("/run", serverHandler.RunSync)
		sync.POST("/start", serverHandler.StartScheduler)
		sync.POST("/stop", serverHandler.StopScheduler)
		sync.GET("/status", serverHandler.SyncStatus)
		sync.PUT("/frequency", serverHandler.UpdateFrequency)
		sync.GET("/logs", serverHandler.ListSyncLogs)
	}

	sites := api.Group("/sites")
	{
		sites.GET("", serverHandler.ListSites)
		sites.GET("/:id", serverHandler.GetSite)
		sites.PUT("/:id/problems", serverHandler.UpdateSiteProblems)
	}

	organizations := api.Group("/organizations")
	{
		organizations.GET("", serverHandler.ListOrganizations)
		organizations.DELETE("/:id", serverHandler.DeleteOrganization)
	}

	settings := api.Group("/settings")
	{
		settings.GET("", serverHandler.GetSettings)
		settings.PUT("", serverHandler.UpdateSettings)
	}
}

// Package handler implements the management API endpoints.
package handler

import (
	"net/http"
	"time"

	"pvz-sync/internal/config"
	"pvz-sync/internal/syncer"
	"pvz-sync/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

// Server aggregates the dependencies of all API handlers.
type Server struct {
	DB              *gorm.DB
	ConfigManager   types.ConfigManager
	SettingsManager *config.SystemSettingsManager
	SyncService     *syncer.SyncService
	Scheduler       *syncer.Scheduler
}

// ServerParams defines the dependencies for the Server.
type ServerParams struct {
	dig.In
	DB              *gorm.DB
	ConfigManager   types.ConfigManager
	SettingsManager *config.SystemSettingsManager
	SyncService     *syncer.SyncService
	Scheduler       *syncer.Scheduler
}

// NewServer creates a new server handler.
func NewServer(params ServerParams) *Server {
	return &Server{
		DB:              params.DB,
		ConfigManager:   params.ConfigManager,
		SettingsManager: params.SettingsManager,
		SyncService:     params.SyncService,
		Scheduler:       params.Scheduler,
	}
}

// Health handles the liveness probe.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

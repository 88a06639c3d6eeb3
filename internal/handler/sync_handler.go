package handler

import (
	"errors"

	app_errors "pvz-sync/internal/errors"
	"pvz-sync/internal/models"
	"pvz-sync/internal/response"
	"pvz-sync/internal/syncer"

	"github.com/gin-gonic/gin"
)

// RunSync handles POST /api/sync/run: one synchronization run, now.
// A run already in flight yields 409 rather than a second concurrent run.
func (s *Server) RunSync(c *gin.Context) {
	summary, err := s.SyncService.TryRunOnce(c.Request.Context(), models.RunTypeManual)
	if err != nil {
		if errors.Is(err, syncer.ErrRunInProgress) {
			response.Error(c, app_errors.ErrTaskInProgress)
			return
		}
		// The run is already logged; surface the failure to the caller too.
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, err.Error()))
		return
	}

	response.Success(c, gin.H{
		"processed": summary.Processed,
		"created":   summary.Created,
		"updated":   summary.Updated,
		"skipped":   summary.Skipped,
		"duration":  summary.Duration.Milliseconds(),
	})
}

// StartScheduler handles POST /api/sync/start.
func (s *Server) StartScheduler(c *gin.Context) {
	if err := s.Scheduler.Start(); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, err.Error()))
		return
	}
	response.Success(c, s.Scheduler.Status())
}

// StopScheduler handles POST /api/sync/stop.
func (s *Server) StopScheduler(c *gin.Context) {
	if err := s.Scheduler.Stop(); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, err.Error()))
		return
	}
	response.Success(c, s.Scheduler.Status())
}

// SyncStatus handles GET /api/sync/status.
func (s *Server) SyncStatus(c *gin.Context) {
	response.Success(c, s.Scheduler.Status())
}

// UpdateFrequency handles PUT /api/sync/frequency.
func (s *Server) UpdateFrequency(c *gin.Context) {
	var req struct {
		Minutes int `json:"minutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	if err := s.Scheduler.Reconfigure(req.Minutes); err != nil {
		response.Error(c, app_errors.NewValidationError(err.Error()))
		return
	}
	response.Success(c, s.Scheduler.Status())
}

package handler

import (
	"time"

	app_errors "pvz-sync/internal/errors"
	"pvz-sync/internal/models"
	"pvz-sync/internal/response"

	"github.com/gin-gonic/gin"
)

// ListSyncLogs handles GET /api/sync/logs: the append-only run audit,
// newest first, filterable by status and date range.
func (s *Server) ListSyncLogs(c *gin.Context) {
	query := s.DB.Model(&models.SyncLog{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if runType := c.Query("run_type"); runType != "" {
		query = query.Where("run_type = ?", runType)
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			query = query.Where("timestamp >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			query = query.Where("timestamp <= ?", t)
		}
	}
	query = query.Order("timestamp DESC")

	var logs []models.SyncLog
	result, err := response.Paginate(c, query, &logs)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, result)
}

package handler

import (
	app_errors "pvz-sync/internal/errors"
	"pvz-sync/internal/models"
	"pvz-sync/internal/response"

	"github.com/gin-gonic/gin"
)

// ListSites handles GET /api/sites with optional region/status/organization
// filters.
func (s *Server) ListSites(c *gin.Context) {
	query := s.DB.Model(&models.Site{})

	if region := c.Query("region"); region != "" {
		query = query.Where("region = ?", region)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status_name = ?", status)
	}
	if orgID := c.Query("organization_id"); orgID != "" {
		query = query.Where("organization_id = ?", orgID)
	}
	query = query.Order("external_id")

	var sites []models.Site
	result, err := response.Paginate(c, query, &sites)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, result)
}

// GetSite handles GET /api/sites/:id, looked up by external identifier.
func (s *Server) GetSite(c *gin.Context) {
	var site models.Site
	if err := s.DB.Where("external_id = ?", c.Param("id")).First(&site).Error; err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, site)
}

// UpdateSiteProblems handles PUT /api/sites/:id/problems. Problems is the
// single site column other subsystems may write; the synchronized columns
// stay untouched.
func (s *Server) UpdateSiteProblems(c *gin.Context) {
	var req struct {
		Problems string `json:"problems"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	result := s.DB.Model(&models.Site{}).
		Where("external_id = ?", c.Param("id")).
		Update("problems", req.Problems)
	if result.Error != nil {
		response.Error(c, app_errors.ParseDBError(result.Error))
		return
	}
	if result.RowsAffected == 0 {
		response.Error(c, app_errors.NewNotFoundError("site not found"))
		return
	}
	response.Success(c, nil)
}

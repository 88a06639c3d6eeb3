package handler

import (
	app_errors "pvz-sync/internal/errors"
	"pvz-sync/internal/models"
	"pvz-sync/internal/response"

	"github.com/gin-gonic/gin"
)

// ListOrganizations handles GET /api/organizations.
func (s *Server) ListOrganizations(c *gin.Context) {
	query := s.DB.Model(&models.Organization{}).Order("id")

	var orgs []models.Organization
	result, err := response.Paginate(c, query, &orgs)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, result)
}

// DeleteOrganization handles DELETE /api/organizations/:id. This is an
// administrative action outside the sync engine and is refused while any
// site still references the organization.
func (s *Server) DeleteOrganization(c *gin.Context) {
	id := c.Param("id")

	var dependents int64
	if err := s.DB.Model(&models.Site{}).Where("organization_id = ?", id).Count(&dependents).Error; err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	if dependents > 0 {
		response.Error(c, app_errors.NewValidationError("organization still has dependent sites"))
		return
	}

	result := s.DB.Delete(&models.Organization{}, "id = ?", id)
	if result.Error != nil {
		response.Error(c, app_errors.ParseDBError(result.Error))
		return
	}
	if result.RowsAffected == 0 {
		response.Error(c, app_errors.NewNotFoundError("organization not found"))
		return
	}
	response.Success(c, nil)
}

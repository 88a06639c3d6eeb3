package handler

import (
	"pvz-sync/internal/config"
	app_errors "pvz-sync/internal/errors"
	"pvz-sync/internal/response"

	"github.com/gin-gonic/gin"
)

// updatableSettings names the keys writable through the API. lastUpdate and
// scheduler_running are engine-owned and only change through the engine.
var updatableSettings = map[string]struct{}{
	config.SettingKeyTableID:   {},
	config.SettingKeySheetName: {},
}

// GetSettings handles GET /api/settings.
func (s *Server) GetSettings(c *gin.Context) {
	response.Success(c, s.SettingsManager.GetSyncSettings())
}

// UpdateSettings handles PUT /api/settings.
func (s *Server) UpdateSettings(c *gin.Context) {
	var settingsMap map[string]string
	if err := c.ShouldBindJSON(&settingsMap); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	for key := range settingsMap {
		if _, ok := updatableSettings[key]; !ok {
			response.Error(c, app_errors.NewValidationError("unknown or read-only setting: "+key))
			return
		}
	}

	for key, value := range settingsMap {
		if err := s.SettingsManager.SetValue(key, value); err != nil {
			response.Error(c, app_errors.NewAPIError(app_errors.ErrDatabase, err.Error()))
			return
		}
	}

	response.Success(c, s.SettingsManager.GetSyncSettings())
}

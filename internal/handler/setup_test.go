package handler

import (
	"context"
	"testing"
	"time"

	"pvz-sync/internal/config"
	"pvz-sync/internal/models"
	"pvz-sync/internal/sheets"
	"pvz-sync/internal/store"
	"pvz-sync/internal/syncer"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeReader is a canned SourceReader for handler tests.
type fakeReader struct {
	rows []sheets.Row
	err  error
}

func (f *fakeReader) FetchRows(_ context.Context, _, _ string) ([]sheets.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

// setupTestServer wires a Server over an in-memory database and registers
// the API routes on a bare engine, without auth or logging middleware.
func setupTestServer(t *testing.T, reader syncer.SourceReader) (*Server, *gin.Engine, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SystemSetting{},
		&models.Organization{},
		&models.Site{},
		&models.SyncLog{},
	))

	memStore := store.NewMemoryStore()
	t.Cleanup(func() { memStore.Close() })

	settingsManager := config.NewSystemSettingsManager(db, memStore)
	require.NoError(t, settingsManager.EnsureSettingsInitialized())
	require.NoError(t, settingsManager.SetValue(config.SettingKeyTableID, "test-table"))

	syncService := syncer.NewSyncService(db, settingsManager, reader)
	scheduler := syncer.NewScheduler(settingsManager, syncService)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		scheduler.Shutdown(ctx)
	})

	server := &Server{
		DB:              db,
		SettingsManager: settingsManager,
		SyncService:     syncService,
		Scheduler:       scheduler,
	}

	engine := gin.New()
	engine.GET("/health", server.Health)
	api := engine.Group("/api")
	{
		api.POST("/sync/run", server.RunSync)
		api.POST("/sync/start", server.StartScheduler)
		api.POST("/sync/stop", server.StopScheduler)
		api.GET("/sync/status", server.SyncStatus)
		api.PUT("/sync/frequency", server.UpdateFrequency)
		api.GET("/sync/logs", server.ListSyncLogs)

		api.GET("/sites", server.ListSites)
		api.GET("/sites/:id", server.GetSite)
		api.PUT("/sites/:id/problems", server.UpdateSiteProblems)

		api.GET("/organizations", server.ListOrganizations)
		api.DELETE("/organizations/:id", server.DeleteOrganization)

		api.GET("/settings", server.GetSettings)
		api.PUT("/settings", server.UpdateSettings)
	}

	return server, engine, db
}

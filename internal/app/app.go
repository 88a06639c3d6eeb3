// Package app provides the main application logic and lifecycle management.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pvz-sync/internal/config"
	"pvz-sync/internal/models"
	"pvz-sync/internal/store"
	"pvz-sync/internal/syncer"
	"pvz-sync/internal/types"
	"pvz-sync/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

// App holds all services and manages the application lifecycle.
type App struct {
	engine          *gin.Engine
	configManager   types.ConfigManager
	settingsManager *config.SystemSettingsManager
	scheduler       *syncer.Scheduler
	storage         store.Store
	db              *gorm.DB
	httpServer      *http.Server
}

// AppParams defines the dependencies for the App.
type AppParams struct {
	dig.In
	Engine          *gin.Engine
	ConfigManager   types.ConfigManager
	SettingsManager *config.SystemSettingsManager
	Scheduler       *syncer.Scheduler
	Storage         store.Store
	DB              *gorm.DB
}

// NewApp is the constructor for App, with dependencies injected by dig.
func NewApp(params AppParams) *App {
	return &App{
		engine:          params.Engine,
		configManager:   params.ConfigManager,
		settingsManager: params.SettingsManager,
		scheduler:       params.Scheduler,
		storage:         params.Storage,
		db:              params.DB,
	}
}

// Start runs the application, it is a non-blocking call.
func (a *App) Start() error {
	if err := a.db.AutoMigrate(
		&models.SystemSetting{},
		&models.Organization{},
		&models.Site{},
		&models.SyncLog{},
	); err != nil {
		return fmt.Errorf("database auto-migration failed: %w", err)
	}
	logrus.Info("Database auto-migration completed.")

	if err := a.settingsManager.EnsureSettingsInitialized(); err != nil {
		return fmt.Errorf("failed to initialize system settings: %w", err)
	}
	logrus.Info("System settings initialized in DB.")

	// Resume the sync timer if it was running before the last shutdown.
	a.scheduler.Restore()

	a.configManager.DisplayServerConfig()

	serverConfig := a.configManager.GetEffectiveServerConfig()
	a.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:        a.engine,
		ReadTimeout:    time.Duration(serverConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(serverConfig.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(serverConfig.IdleTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Infof("PVZ-Sync server started successfully on Version: %s", version.Version)
		logrus.Infof("Server address: http://%s:%d", serverConfig.Host, serverConfig.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the application.
func (a *App) Stop(ctx context.Context) {
	logrus.Info("Shutting down server...")

	httpShutdownStart := time.Now()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logrus.Debug("HTTP server graceful shutdown timed out, forcing remaining connections to close.")
		if closeErr := a.httpServer.Close(); closeErr != nil {
			logrus.Errorf("Error forcing HTTP server to close: %v", closeErr)
		}
	}
	logrus.Infof("HTTP server has been shut down. (took %v)", time.Since(httpShutdownStart))

	// Halts the timer loop without clearing the persisted scheduler flag, so
	// the next start resumes where this one left off.
	a.scheduler.Shutdown(ctx)

	if a.storage != nil {
		a.storage.Close()
	}

	closeDBConnection(a.db)
	logrus.Info("Server exited gracefully")
}

// closeDBConnection closes the GORM connection pool with a timeout to avoid
// hanging on stuck connections during shutdown.
func closeDBConnection(gormDB *gorm.DB) {
	if gormDB == nil {
		return
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		logrus.Errorf("Error getting sql.DB: %v", err)
		return
	}

	sqlDB.SetMaxIdleConns(0)
	sqlDB.SetConnMaxIdleTime(0)
	sqlDB.SetConnMaxLifetime(0)

	done := make(chan error, 1)
	go func() {
		done <- sqlDB.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			logrus.Errorf("Error closing database connection: %v", err)
		} else {
			logrus.Debug("Database connection closed.")
		}
	case <-time.After(1 * time.Second):
		logrus.Warn("Database connection close timed out after 1s, proceeding anyway")
	}
}

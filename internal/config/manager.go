// Package config provides configuration management for the application.
//
// Two layers exist: process-level configuration read once from the
// environment (this file), and runtime-tunable synchronization settings
// stored in the system_settings table (system_settings.go).
package config

import (
	"fmt"
	"sync"

	"pvz-sync/internal/types"
	"pvz-sync/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Constants holds configuration validation boundaries.
type Constants struct {
	MinPort    int
	MaxPort    int
	MinTimeout int
}

// DefaultConstants defines the valid ranges for configuration values.
var DefaultConstants = Constants{
	MinPort:    1,
	MaxPort:    65535,
	MinTimeout: 1,
}

// Manager implements types.ConfigManager backed by environment variables.
type Manager struct {
	mu       sync.RWMutex
	server   types.ServerConfig
	auth     types.AuthConfig
	cors     types.CORSConfig
	log      types.LogConfig
	database types.DatabaseConfig
	sheets   types.SheetsConfig
}

// NewManager creates a configuration manager and loads the configuration.
func NewManager() (types.ConfigManager, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	m := &Manager{}
	if err := m.ReloadConfig(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReloadConfig re-reads all configuration from the environment.
func (m *Manager) ReloadConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.server = types.ServerConfig{
		Port:                    utils.ParseInteger(utils.GetEnvOrDefault("PORT", "3001"), 3001),
		Host:                    utils.GetEnvOrDefault("HOST", "0.0.0.0"),
		ReadTimeout:             utils.ParseInteger(utils.GetEnvOrDefault("SERVER_READ_TIMEOUT", "60"), 60),
		WriteTimeout:            utils.ParseInteger(utils.GetEnvOrDefault("SERVER_WRITE_TIMEOUT", "60"), 60),
		IdleTimeout:             utils.ParseInteger(utils.GetEnvOrDefault("SERVER_IDLE_TIMEOUT", "120"), 120),
		GracefulShutdownTimeout: utils.ParseInteger(utils.GetEnvOrDefault("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", "30"), 30),
	}

	m.auth = types.AuthConfig{
		Key: utils.GetEnvOrDefault("AUTH_KEY", ""),
	}

	m.cors = types.CORSConfig{
		Enabled:          utils.ParseBoolean(utils.GetEnvOrDefault("ENABLE_CORS", "true"), true),
		AllowedOrigins:   utils.SplitAndTrim(utils.GetEnvOrDefault("ALLOWED_ORIGINS", "*"), ","),
		AllowedMethods:   utils.SplitAndTrim(utils.GetEnvOrDefault("ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"), ","),
		AllowedHeaders:   utils.SplitAndTrim(utils.GetEnvOrDefault("ALLOWED_HEADERS", "*"), ","),
		AllowCredentials: utils.ParseBoolean(utils.GetEnvOrDefault("ALLOW_CREDENTIALS", "false"), false),
	}

	m.log = types.LogConfig{
		Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
		Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
		EnableFile: utils.ParseBoolean(utils.GetEnvOrDefault("LOG_ENABLE_FILE", "false"), false),
		FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
	}

	m.database = types.DatabaseConfig{
		DSN: utils.GetEnvOrDefault("DATABASE_DSN", "./data/pvz-sync.db"),
	}

	m.sheets = types.SheetsConfig{
		CredentialsFile: utils.GetEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "./credentials.json"),
		TimeoutSeconds:  utils.ParseInteger(utils.GetEnvOrDefault("SHEETS_TIMEOUT_SECONDS", "60"), 60),
	}

	return m.validate()
}

// Validate checks the current configuration for errors.
func (m *Manager) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validate()
}

func (m *Manager) validate() error {
	if m.server.Port < DefaultConstants.MinPort || m.server.Port > DefaultConstants.MaxPort {
		return fmt.Errorf("invalid port: %d (must be %d-%d)", m.server.Port, DefaultConstants.MinPort, DefaultConstants.MaxPort)
	}
	if m.server.ReadTimeout < DefaultConstants.MinTimeout {
		return fmt.Errorf("invalid read timeout: %d", m.server.ReadTimeout)
	}
	if m.server.WriteTimeout < DefaultConstants.MinTimeout {
		return fmt.Errorf("invalid write timeout: %d", m.server.WriteTimeout)
	}
	if m.sheets.TimeoutSeconds < DefaultConstants.MinTimeout {
		return fmt.Errorf("invalid sheets timeout: %d", m.sheets.TimeoutSeconds)
	}
	return nil
}

// GetEffectiveServerConfig returns the server configuration.
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.server
}

// GetAuthConfig returns the authentication configuration.
func (m *Manager) GetAuthConfig() types.AuthConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auth
}

// GetCORSConfig returns the CORS configuration.
func (m *Manager) GetCORSConfig() types.CORSConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cors
}

// GetLogConfig returns the logging configuration.
func (m *Manager) GetLogConfig() types.LogConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log
}

// GetDatabaseConfig returns the database configuration.
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.database
}

// GetSheetsConfig returns the Google Sheets client configuration.
func (m *Manager) GetSheetsConfig() types.SheetsConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sheets
}

// DisplayServerConfig logs the effective configuration at startup.
func (m *Manager) DisplayServerConfig() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logrus.Info("Server configuration:")
	logrus.Infof("  Listen: %s:%d", m.server.Host, m.server.Port)
	logrus.Infof("  Database DSN: %s", m.database.DSN)
	logrus.Infof("  Log level: %s, format: %s", m.log.Level, m.log.Format)
	if m.auth.Key == "" {
		logrus.Warn("  AUTH_KEY is not set, the management API is unprotected")
	}
}

package types

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetAuthConfig() AuthConfig
	GetCORSConfig() CORSConfig
	GetLogConfig() LogConfig
	GetDatabaseConfig() DatabaseConfig
	GetSheetsConfig() SheetsConfig
	GetEffectiveServerConfig() ServerConfig
	Validate() error
	DisplayServerConfig()
	ReloadConfig() error
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port                    int    `json:"port"`
	Host                    string `json:"host"`
	ReadTimeout             int    `json:"read_timeout"`
	WriteTimeout            int    `json:"write_timeout"`
	IdleTimeout             int    `json:"idle_timeout"`
	GracefulShutdownTimeout int    `json:"graceful_shutdown_timeout"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Key string `json:"key"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	EnableFile bool   `json:"enable_file"`
	FilePath   string `json:"file_path"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// SheetsConfig represents the Google Sheets API client configuration.
// Timeouts on the remote fetch live here, in the reader's transport,
// not in the sync engine itself.
type SheetsConfig struct {
	CredentialsFile string `json:"credentials_file"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// SyncSettings holds the runtime-tunable synchronization parameters that are
// stored in the system_settings table rather than the environment.
type SyncSettings struct {
	TableID                string `json:"pvzTableId"`
	SheetName              string `json:"pvzSheetName"`
	UpdateFrequencyMinutes int    `json:"updateFrequency"`
	SchedulerRunning       bool   `json:"scheduler_running"`
	LastUpdate             string `json:"lastUpdate"`
}

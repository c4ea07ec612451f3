package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StorageConfig holds Azure Blob Storage configuration for report exports
type StorageConfig struct {
	AccountName     string
	AccountKey      string
	ReportContainer string
}

// SecurityConfig holds encryption configuration
type SecurityConfig struct {
	// EncryptionKey is the 32-byte AES-256 key used for feedback comments
	EncryptionKey string
}

// SchedulerConfig holds the background analysis sweep configuration
type SchedulerConfig struct {
	Enabled bool
	// CronSpec is the standard 5-field cron expression for the sweep
	CronSpec string
	// Lookback bounds which patients are swept: only those with signal
	// activity inside this window
	Lookback time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	// Storage defaults
	v.SetDefault("storage.reportcontainer", "analysis-reports")

	// Scheduler defaults: hourly sweep over the last day of activity
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cronspec", "0 * * * *")
	v.SetDefault("scheduler.lookback", 24*time.Hour)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Storage
	v.BindEnv("storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("storage.reportcontainer", "AZURE_STORAGE_REPORT_CONTAINER")

	// Security
	v.BindEnv("security.encryptionkey", "ENCRYPTION_KEY")

	// Scheduler
	v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	v.BindEnv("scheduler.cronspec", "SCHEDULER_CRON")
	v.BindEnv("scheduler.lookback", "SCHEDULER_LOOKBACK")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Storage.AccountName == "" || c.Storage.AccountKey == "" {
		return fmt.Errorf("azure storage credentials are required (account name + key)")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("security.encryptionkey must be exactly 32 bytes, got %d", len(c.Security.EncryptionKey))
	}

	if c.Scheduler.Enabled && c.Scheduler.CronSpec == "" {
		return fmt.Errorf("scheduler.cronspec is required when the scheduler is enabled")
	}

	return nil
}

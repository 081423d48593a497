package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Sync     SyncConfig     `mapstructure:"sync"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// RedisConfig contains the cache backend settings. An empty Addr disables
// Redis; the service then runs on the degraded single-key cache.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// SyncConfig contains the external task source settings for the populate
// endpoint.
type SyncConfig struct {
	// Endpoint is the remote URL returning the JSON array of todo records.
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`

	// APIKey is the pre-shared secret compared against the X-API-KEY header.
	APIKey string `mapstructure:"api_key" validate:"required"`

	// RetryCount is the maximum number of fetch attempts before giving up.
	RetryCount int `mapstructure:"retry_count" validate:"required,gt=0"`

	// RetryBackoffMillis is the fixed delay between fetch attempts.
	RetryBackoffMillis int `mapstructure:"retry_backoff_millis" validate:"gte=0"`
}

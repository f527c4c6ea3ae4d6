package config

import "time"

// Config holds server configuration values.
type Config struct {
	ListenAddr        string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	MaxClients        int           `mapstructure:"max_clients" yaml:"max_clients"`
	Storage           string        `mapstructure:"storage" yaml:"storage"`
	CredentialsPath   string        `mapstructure:"credentials_path" yaml:"credentials_path"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	ActivityLogPath   string        `mapstructure:"activity_log_path" yaml:"activity_log_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ListenAddr:        ":4000",
		HTTPAddr:          ":8080",
		MaxClients:        64,
		Storage:           StorageFile,
		CredentialsPath:   "users.txt",
		DatabasePath:      "netchat.db",
		ActivityLogPath:   "activity.log",
		LogLevel:          "info",
		JWTSecret:         "change-me-in-production",
		JWTIssuer:         "netchat",
		JWTAudience:       "netchat-clients",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ListenAddr != "" {
		c.ListenAddr = other.ListenAddr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.MaxClients != 0 {
		c.MaxClients = other.MaxClients
	}
	if other.Storage != "" {
		c.Storage = other.Storage
	}
	if other.CredentialsPath != "" {
		c.CredentialsPath = other.CredentialsPath
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.ActivityLogPath != "" {
		c.ActivityLogPath = other.ActivityLogPath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Package config loads the server configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Sweep         SweepConfig        `mapstructure:"sweep"`
	Dashboard     DashboardConfig    `mapstructure:"dashboard"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	GRPC          GRPCConfig         `mapstructure:"grpc"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig selects the persistence backend: "postgres" or "memory"
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	Migrate        bool   `mapstructure:"migrate"`
}

// DSN returns the lib/pq connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SweepConfig drives the reconciliation sweep runner
type SweepConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// DashboardConfig controls the snapshot cache. CacheBackend is "redis" or "memory".
type DashboardConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CacheBackend string        `mapstructure:"cache_backend"`
}

type NotificationConfig struct {
	Inbox struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"inbox"`
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type GRPCConfig struct {
	Address  string `mapstructure:"address"`
	APIToken string `mapstructure:"api_token"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

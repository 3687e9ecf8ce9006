package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FINFLOW_DATABASE_POSTGRES_HOST
const EnvPrefix = "FINFLOW"

// Load reads configuration from an optional yaml file, .env and the environment.
// An empty path searches ./configs and the working directory for config.yaml.
func Load(path string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "finflow")
	v.SetDefault("app.environment", "development")

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "finflow")
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "postgres")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_connections", 20)
	v.SetDefault("database.postgres.max_idle", 5)
	v.SetDefault("database.postgres.migrate", true)

	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval", 5*time.Minute)
	v.SetDefault("sweep.run_on_start", true)

	v.SetDefault("dashboard.cache_ttl", 60*time.Second)
	v.SetDefault("dashboard.cache_backend", "redis")

	v.SetDefault("notifications.inbox.enabled", true)
	v.SetDefault("notifications.email.enabled", false)
	v.SetDefault("notifications.email.from_email", "")
	v.SetDefault("notifications.sms.enabled", false)
	v.SetDefault("notifications.sms.sender_id", "")
	v.SetDefault("notifications.aws.region", "us-east-1")

	v.SetDefault("grpc.address", ":8080")
	v.SetDefault("grpc.api_token", "dev-token")
	v.SetDefault("metrics.address", ":9090")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver must be postgres or memory, got %q", cfg.Storage.Driver)
	}

	switch cfg.Dashboard.CacheBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("dashboard.cache_backend must be redis or memory, got %q", cfg.Dashboard.CacheBackend)
	}

	if cfg.Sweep.Enabled && cfg.Sweep.Interval <= 0 {
		return errors.New("sweep.interval must be positive")
	}
	if cfg.Dashboard.CacheTTL <= 0 {
		return errors.New("dashboard.cache_ttl must be positive")
	}
	if cfg.Notifications.Email.Enabled && cfg.Notifications.Email.FromEmail == "" {
		return errors.New("notifications.email.from_email is required when email is enabled")
	}
	if cfg.GRPC.APIToken == "" {
		return errors.New("grpc.api_token is required")
	}

	return nil
}

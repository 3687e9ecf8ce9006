package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: finflow\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Dashboard.CacheTTL)
	assert.Equal(t, "redis", cfg.Dashboard.CacheBackend)
	assert.True(t, cfg.Notifications.Inbox.Enabled)
	assert.False(t, cfg.Notifications.Email.Enabled)
	assert.Equal(t, ":8080", cfg.GRPC.Address)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=finflow sslmode=disable",
		cfg.Database.Postgres.DSN())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
dashboard:
  cache_backend: memory
  cache_ttl: 30s
sweep:
  interval: 1m
notifications:
  email:
    enabled: true
    from_email: credit@finflow.test
`)
	t.Setenv("FINFLOW_SWEEP_INTERVAL", "90s")
	t.Setenv("FINFLOW_GRPC_API_TOKEN", "prod-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Dashboard.CacheBackend)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.CacheTTL)
	assert.Equal(t, 90*time.Second, cfg.Sweep.Interval, "environment wins over the file")
	assert.Equal(t, "prod-token", cfg.GRPC.APIToken)
	assert.True(t, cfg.Notifications.Email.Enabled)
	assert.Equal(t, "credit@finflow.test", cfg.Notifications.Email.FromEmail)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "unknown storage driver",
			body:   "storage:\n  driver: sqlite\n",
			errMsg: "storage.driver",
		},
		{
			name:   "unknown cache backend",
			body:   "dashboard:\n  cache_backend: memcached\n",
			errMsg: "dashboard.cache_backend",
		},
		{
			name:   "non-positive sweep interval",
			body:   "sweep:\n  interval: 0s\n",
			errMsg: "sweep.interval",
		},
		{
			name:   "email without sender",
			body:   "notifications:\n  email:\n    enabled: true\n",
			errMsg: "from_email",
		},
		{
			name:   "empty api token",
			body:   "grpc:\n  api_token: \"\"\n",
			errMsg: "grpc.api_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "storage: [unclosed\n"))
	assert.ErrorContains(t, err, "read config")
}

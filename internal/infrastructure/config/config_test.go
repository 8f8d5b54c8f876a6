package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "logistics-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "logistics", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(5<<20), cfg.Import.MaxFileSize)
	assert.Equal(t, 5000, cfg.Import.MaxRows)
	assert.Contains(t, cfg.Import.Departments, "sales")
	assert.Equal(t, 1, cfg.Sync.Workers)
	assert.Equal(t, 0, cfg.Sync.Retries)
	assert.Equal(t, 10*time.Second, cfg.Sync.CallTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Sync.RunLockTTL)
	assert.Equal(t, 10*time.Second, cfg.Tracking.Timeout)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LOGIS_APP_PORT", "9090")
	t.Setenv("LOGIS_DATABASE_HOST", "db.internal")
	t.Setenv("LOGIS_SYNC_WORKERS", "4")
	t.Setenv("LOGIS_TRACKING_BASE_URL", "https://track.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, "https://track.example.com", cfg.Tracking.BaseURL)
}

func TestLoad_ProductionRequiresCredentials(t *testing.T) {
	t.Setenv("LOGIS_APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")
}

func TestLoad_ProductionRejectsWildcardCORS(t *testing.T) {
	t.Setenv("LOGIS_APP_ENV", "production")
	t.Setenv("LOGIS_DATABASE_PASSWORD", "secret")
	t.Setenv("LOGIS_DATABASE_SSLMODE", "require")
	t.Setenv("LOGIS_TRACKING_API_KEY", "key")
	t.Setenv("LOGIS_HTTP_CORS_ALLOW_ORIGINS", "*")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cors_allow_origins")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/word",
		DBName:   "logistics",
		SSLMode:  "disable",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "sslmode=disable")
	// special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}

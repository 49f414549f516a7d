package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_SOURCE", "")
	os.Unsetenv("DATA_SOURCE")
	t.Setenv("JWT_EXPIRY", "not-a-duration")

	cfg := Load()

	assert.Equal(t, DataSourcePostgres, cfg.App.DataSource)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 100, cfg.RateLimit.Points)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.AuthDuration)
	assert.False(t, cfg.App.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_SOURCE", "Memory")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("RATE_LIMIT_POINTS", "7")
	t.Setenv("SCHEDULER_INTERVAL", "30s")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg := Load()

	assert.Equal(t, DataSourceMemory, cfg.App.DataSource)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 7, cfg.RateLimit.Points)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.Origins)
}

func TestDBConfigURL(t *testing.T) {
	db := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable", TimeZone: "UTC"}

	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", db.URL())
	assert.Contains(t, db.DSN(), "TimeZone=UTC")
}

func TestAppLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{TimeZone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, time.UTC, AppConfig{TimeZone: "UTC"}.Location())
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "APP_ENV", "TIMEZONE", "LOG_LEVEL", "LOG_FILE", "CORS_ORIGIN"} {
		t.Setenv(k, "") // restored after the test
		os.Unsetenv(k)
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file:db.sqlite", cfg.DatabaseURL)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.False(t, cfg.Production())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "redis://localhost:6379/0")
	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.DatabaseURL)
	assert.True(t, cfg.Production())
}

func TestGetEnv(t *testing.T) {
	assert.Equal(t, "fallback", getEnv("VISIT_COUNTER_UNSET_FOR_TEST", "fallback"))
	t.Setenv("VISIT_COUNTER_SET_FOR_TEST", "value")
	assert.Equal(t, "value", getEnv("VISIT_COUNTER_SET_FOR_TEST", "fallback"))
}

func TestLocation(t *testing.T) {
	loc, err := (&Config{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = (&Config{Timezone: "UTC"}).Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = (&Config{Timezone: "Mars/Olympus_Mons"}).Location()
	assert.Error(t, err)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ResetCodeTTL)
	assert.Equal(t, 5, cfg.Auth.ResetCodeMaxAttempts)
	assert.False(t, cfg.Bulletins.FilterByYear)
	assert.False(t, cfg.Bulletins.ArchiveEnabled)
	assert.Equal(t, 24*time.Hour, cfg.Bulletins.ArchiveTTL)
	assert.Equal(t, int64(5*1024*1024), cfg.Imports.MaxFileSizeBytes)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.DashboardTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")
	t.Setenv("BULLETIN_FILTER_BY_YEAR", "true")
	t.Setenv("BULLETIN_ARCHIVE_TTL", "2h")
	t.Setenv("IMPORT_MAX_FILE_SIZE", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.True(t, cfg.Bulletins.FilterByYear)
	assert.Equal(t, 2*time.Hour, cfg.Bulletins.ArchiveTTL)
	assert.Equal(t, int64(1024), cfg.Imports.MaxFileSizeBytes)
}

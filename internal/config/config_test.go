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

	assert.Equal(t, ":8090", cfg.ServerAddr)
	assert.Equal(t, "sqlite://./rehbersync.db", cfg.DatabaseURL)
	assert.Equal(t, "https://mebbis.meb.gov.tr", cfg.PortalBaseURL)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 2*time.Minute, cfg.LoginTimeout)
	assert.Equal(t, 15*time.Second, cfg.StepTimeout)
	assert.Equal(t, time.Hour, cfg.JobRetention)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("REHBERSYNC_SERVER_ADDR", ":9999")
	t.Setenv("REHBERSYNC_PORTAL_BASE_URL", "https://test.mebbis.meb.gov.tr/")
	t.Setenv("REHBERSYNC_HEADLESS", "false")
	t.Setenv("REHBERSYNC_LOGIN_TIMEOUT", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, "https://test.mebbis.meb.gov.tr", cfg.PortalBaseURL, "trailing slash is trimmed")
	assert.False(t, cfg.Headless)
	assert.Equal(t, 5*time.Minute, cfg.LoginTimeout)
}

func TestLoadRejectsBadTimeouts(t *testing.T) {
	t.Setenv("REHBERSYNC_LOGIN_TIMEOUT", "0s")

	_, err := Load()
	assert.Error(t, err)
}

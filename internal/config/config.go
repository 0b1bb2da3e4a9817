package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunable settings. Values come from REHBERSYNC_* environment
// variables with sensible defaults for local development.
type Config struct {
	ServerAddr  string
	DatabaseURL string

	PortalBaseURL string
	Headless      bool

	// Named timeouts for every suspension point in the automation flow.
	LaunchTimeout  time.Duration
	LoginTimeout   time.Duration
	StepTimeout    time.Duration
	SubmitTimeout  time.Duration

	// Terminal jobs older than this are evicted from the in-memory registry.
	JobRetention time.Duration
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REHBERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_addr", ":8090")
	v.SetDefault("database_url", "sqlite://./rehbersync.db")
	v.SetDefault("portal_base_url", "https://mebbis.meb.gov.tr")
	v.SetDefault("headless", true)
	v.SetDefault("launch_timeout", "30s")
	v.SetDefault("login_timeout", "2m")
	v.SetDefault("step_timeout", "15s")
	v.SetDefault("submit_timeout", "20s")
	v.SetDefault("job_retention", "1h")

	cfg := &Config{
		ServerAddr:    v.GetString("server_addr"),
		DatabaseURL:   v.GetString("database_url"),
		PortalBaseURL: strings.TrimRight(v.GetString("portal_base_url"), "/"),
		Headless:      v.GetBool("headless"),
		LaunchTimeout: v.GetDuration("launch_timeout"),
		LoginTimeout:  v.GetDuration("login_timeout"),
		StepTimeout:   v.GetDuration("step_timeout"),
		SubmitTimeout: v.GetDuration("submit_timeout"),
		JobRetention:  v.GetDuration("job_retention"),
	}

	if cfg.PortalBaseURL == "" {
		return nil, fmt.Errorf("portal base URL must not be empty")
	}
	if cfg.LoginTimeout <= 0 || cfg.StepTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}

	return cfg, nil
}

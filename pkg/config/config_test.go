package config

import (
	"testing"
	"time"
)

func TestValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "server address must not be empty",
			mutate: func(c *Config) {
				c.Server.Address = ""
			},
		},
		{
			name: "read timeout must be > 0",
			mutate: func(c *Config) {
				c.Server.ReadTimeout = 0
			},
		},
		{
			name: "default tier must be a known tier",
			mutate: func(c *Config) {
				c.Capture.DefaultTier = "insane"
			},
		},
		{
			name: "output dir must not be empty",
			mutate: func(c *Config) {
				c.Capture.OutputDir = ""
			},
		},
		{
			name: "still scale factor must be > 0",
			mutate: func(c *Config) {
				c.Still.ScaleFactor = 0
			},
		},
		{
			name: "still dpi must be > 0",
			mutate: func(c *Config) {
				c.Still.DPI = -72
			},
		},
		{
			name: "history capacity must be > 0",
			mutate: func(c *Config) {
				c.Monitoring.HistoryCapacity = 0
			},
		},
		{
			name: "jaeger url required when tracing enabled",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.JaegerURL = ""
			},
		},
		{
			name: "sample rate must be within [0,1]",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 1.5
			},
		},
		{
			name: "rps must be > 0 when rate limiting enabled",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			// ensure timing fields are valid to isolate the mutated field
			cfg.Server.ReadTimeout = time.Second
			cfg.Server.WriteTimeout = time.Second
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.RateLimiting.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Capture struct {
		DefaultTier  string `yaml:"default_tier"`
		OutputDir    string `yaml:"output_dir"`
		FFmpegPath   string `yaml:"ffmpeg_path"`
		IncludeAudio bool   `yaml:"include_audio"`
	} `yaml:"capture"`

	Still struct {
		ScaleFactor float64 `yaml:"scale_factor"`
		DPI         float64 `yaml:"dpi"`
	} `yaml:"still"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		HistoryCapacity   int  `yaml:"history_capacity"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Capture
	switch c.Capture.DefaultTier {
	case "low", "medium", "high", "ultra":
	default:
		return fmt.Errorf("capture.default_tier must be one of low|medium|high|ultra")
	}
	if c.Capture.OutputDir == "" {
		return fmt.Errorf("capture.output_dir must not be empty")
	}
	if c.Capture.FFmpegPath == "" {
		return fmt.Errorf("capture.ffmpeg_path must not be empty")
	}

	// Still image
	if c.Still.ScaleFactor <= 0 {
		return fmt.Errorf("still.scale_factor must be > 0")
	}
	if c.Still.DPI <= 0 {
		return fmt.Errorf("still.dpi must be > 0")
	}

	// Monitoring
	if c.Monitoring.HistoryCapacity <= 0 {
		return fmt.Errorf("monitoring.history_capacity must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = "127.0.0.1:8246"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Capture.DefaultTier = "medium"
	cfg.Capture.OutputDir = defaultOutputDir()
	cfg.Capture.FFmpegPath = "ffmpeg"
	cfg.Capture.IncludeAudio = false

	cfg.Still.ScaleFactor = 2.0
	cfg.Still.DPI = 144

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.HistoryCapacity = 100

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	return cfg
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SCREENPIPE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("SCREENPIPE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("SCREENPIPE_OUTPUT_DIR"); dir != "" {
		c.Capture.OutputDir = dir
	}
	if path := os.Getenv("SCREENPIPE_FFMPEG_PATH"); path != "" {
		c.Capture.FFmpegPath = path
	}
	if tier := os.Getenv("SCREENPIPE_DEFAULT_TIER"); tier != "" {
		c.Capture.DefaultTier = tier
	}
	if dpi := os.Getenv("SCREENPIPE_STILL_DPI"); dpi != "" {
		if v, err := strconv.ParseFloat(dpi, 64); err == nil {
			c.Still.DPI = v
		}
	}
}

// Package config loads console settings from defaults, an optional YAML file,
// a .env file, the environment, and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/observability"
)

// Config contains console configuration.
type Config struct {
	Port     int      `yaml:"port"`
	RedisURL string   `yaml:"redisUrl"`
	API      API      `yaml:"api"`
	Map      Map      `yaml:"map"`
	Tracking Tracking `yaml:"tracking"`
	Zones    Zones    `yaml:"zones"`
	Log      Log      `yaml:"log"`
	Tracing  observability.TracingConfig `yaml:"tracing"`
}

// API configures the backend REST client.
type API struct {
	BaseURL   string        `yaml:"baseUrl"`
	TokenFile string        `yaml:"tokenFile"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	RateRPS   float64       `yaml:"rateRps"`
	RateBurst int           `yaml:"rateBurst"`
}

// Map configures the map provider behind the drawing surface.
type Map struct {
	APIKey string `yaml:"apiKey"`
}

// Tracking configures the live position poller.
type Tracking struct {
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Zones configures the zone record manager.
type Zones struct {
	// RefreshSchedule is a cron expression; empty disables scheduled refresh.
	RefreshSchedule string `yaml:"refreshSchedule"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port: 8090,
		API: API{
			BaseURL:   "http://localhost:8080",
			Timeout:   10 * time.Second,
			RateRPS:   10,
			RateBurst: 20,
		},
		Tracking: Tracking{PollInterval: 5 * time.Second},
		Zones:    Zones{RefreshSchedule: "@every 1m"},
		Log:      Log{Level: "info", Format: "text"},
		Tracing:  observability.TracingConfig{Exporter: "stdout", SampleRatio: 1},
	}
}

// Load builds the configuration for args (without the program name).
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (or CONSOLE_CONFIG)")
	port := fs.Int("p", 0, "Listen port")
	baseURL := fs.String("api", "", "Backend API base URL")
	poll := fs.Duration("poll", 0, "Live position poll interval")
	logLevel := fs.String("log-level", "", "Log level")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("CONSOLE_CONFIG")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Port = *port
		case "api":
			cfg.API.BaseURL = *baseURL
		case "poll":
			cfg.Tracking.PollInterval = *poll
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("API_BASE_URL", &cfg.API.BaseURL)
	str("API_TOKEN_FILE", &cfg.API.TokenFile)
	str("API_TOKEN", &cfg.API.Token)
	str("MAP_API_KEY", &cfg.Map.APIKey)
	str("REDIS_URL", &cfg.RedisURL)
	str("ZONES_REFRESH_SCHEDULE", &cfg.Zones.RefreshSchedule)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("TRACING_EXPORTER", &cfg.Tracing.Exporter)
	str("OTLP_ENDPOINT", &cfg.Tracing.Endpoint)

	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid PORT env variable")
		}
		cfg.Port = n
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		cfg.Tracking.PollInterval = d
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_RPS: %w", err)
		}
		cfg.API.RateRPS = f
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_BURST: %w", err)
		}
		cfg.API.RateBurst = n
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("TRACING_SAMPLE_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.Tracing.SampleRatio = f
		}
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API base URL required (use -api or API_BASE_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL %q", c.API.BaseURL)
	}
	if c.Tracking.PollInterval <= 0 {
		return errors.New("poll interval must be > 0")
	}
	if c.API.RateRPS < 0 || c.API.RateBurst < 0 {
		return errors.New("rate limits must be >= 0")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Stream    StreamConfig
	Bridge    BridgeConfig
	Janitor   JanitorConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"5000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// BrowserConfig holds browser engine configuration.
type BrowserConfig struct {
	Headless       bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	ViewportWidth  int           `envconfig:"VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int           `envconfig:"VIEWPORT_HEIGHT" default:"720"`
	NavTimeout     time.Duration `envconfig:"NAV_TIMEOUT" default:"30s"`
	CaptureTimeout time.Duration `envconfig:"CAPTURE_TIMEOUT" default:"5s"`
	ArtifactsDir   string        `envconfig:"ARTIFACTS_DIR" default:"/tmp/sentinelid-artifacts"`
}

// StreamConfig holds streaming pipeline configuration.
type StreamConfig struct {
	FPS     int    `envconfig:"STREAM_FPS" default:"15"`
	STUNURL string `envconfig:"STUN_URL" default:"stun:stun.l.google.com:19302"`
}

// BridgeConfig holds execution bridge configuration.
type BridgeConfig struct {
	CallTimeout time.Duration `envconfig:"BRIDGE_TIMEOUT" default:"30s"`
}

// JanitorConfig holds session reclamation configuration.
type JanitorConfig struct {
	Interval       time.Duration `envconfig:"JANITOR_INTERVAL" default:"60s"`
	SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"3600s"`
	IdleTimeout    time.Duration `envconfig:"IDLE_TIMEOUT" default:"1800s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// FrameInterval returns the target interval between streamed frames.
func (s StreamConfig) FrameInterval() time.Duration {
	fps := s.FPS
	if fps <= 0 {
		fps = 15
	}
	return time.Second / time.Duration(fps)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "5000",
			Host: "0.0.0.0",
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			NavTimeout:     30 * time.Second,
			CaptureTimeout: 5 * time.Second,
			ArtifactsDir:   "/tmp/sentinelid-artifacts",
		},
		Stream: StreamConfig{
			FPS:     15,
			STUNURL: "stun:stun.l.google.com:19302",
		},
		Bridge: BridgeConfig{
			CallTimeout: 30 * time.Second,
		},
		Janitor: JanitorConfig{
			Interval:       60 * time.Second,
			SessionTimeout: 3600 * time.Second,
			IdleTimeout:    1800 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

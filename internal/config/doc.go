// Package config provides 12-factor configuration for the session engine.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Browser: headless mode, viewport, navigation/capture timeouts
//   - Stream: target frame rate for outbound video tracks
//   - Bridge: engine worker call timeout
//   - Janitor: sweep interval and session age/idle thresholds
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Environment Variables:
//   - PORT, HOST
//   - BROWSER_HEADLESS, VIEWPORT_WIDTH, VIEWPORT_HEIGHT, NAV_TIMEOUT, CAPTURE_TIMEOUT
//   - STREAM_FPS, BRIDGE_TIMEOUT
//   - JANITOR_INTERVAL, SESSION_TIMEOUT, IDLE_TIMEOUT
//   - ARTIFACTS_DIR, STUN_URL
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config

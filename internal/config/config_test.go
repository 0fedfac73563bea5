package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 720, cfg.Browser.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavTimeout)
	assert.Equal(t, 5*time.Second, cfg.Browser.CaptureTimeout)
	assert.Equal(t, 15, cfg.Stream.FPS)
	assert.Equal(t, 30*time.Second, cfg.Bridge.CallTimeout)
	assert.Equal(t, time.Minute, cfg.Janitor.Interval)
	assert.Equal(t, time.Hour, cfg.Janitor.SessionTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Janitor.IdleTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STREAM_FPS", "30")
	t.Setenv("SESSION_TIMEOUT", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Stream.FPS)
	assert.Equal(t, 10*time.Minute, cfg.Janitor.SessionTimeout)
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, time.Second/15, StreamConfig{FPS: 15}.FrameInterval())
	assert.Equal(t, time.Second/30, StreamConfig{FPS: 30}.FrameInterval())

	// Zero falls back to the default rate rather than dividing by zero.
	assert.Equal(t, time.Second/15, StreamConfig{}.FrameInterval())
}

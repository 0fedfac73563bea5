// Package janitor reclaims expired browser sessions and dead peer
// connections on a fixed period.
package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelid/backend/internal/config"
	"github.com/sentinelid/backend/internal/logging"
	"github.com/sentinelid/backend/internal/monitoring"
	"github.com/sentinelid/backend/internal/session"
)

// SessionDestroyer tears down one session. Satisfied by the browser
// lifecycle manager.
type SessionDestroyer interface {
	Destroy(ctx context.Context, sessionID string) error
}

// PeerSweeper removes terminal peer connections. Satisfied by the rtc
// manager.
type PeerSweeper interface {
	ReapTerminal() int
}

// Janitor periodically sweeps the session registry and the peer
// connection table.
type Janitor struct {
	cfg       config.JanitorConfig
	registry  *session.Registry
	destroyer SessionDestroyer
	peers     PeerSweeper
	metrics   *monitoring.Metrics
	log       *logging.Logger
}

// New creates a janitor.
func New(cfg config.JanitorConfig, reg *session.Registry, destroyer SessionDestroyer, peers PeerSweeper, metrics *monitoring.Metrics, log *logging.Logger) *Janitor {
	return &Janitor{
		cfg:       cfg,
		registry:  reg,
		destroyer: destroyer,
		peers:     peers,
		metrics:   metrics,
		log:       log.Named("janitor"),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	j.log.Info("janitor started",
		zap.Duration("interval", j.cfg.Interval),
		zap.Duration("session_timeout", j.cfg.SessionTimeout),
		zap.Duration("idle_timeout", j.cfg.IdleTimeout))

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one reclamation pass. Expiry candidates are collected from
// a registry snapshot first; the slow teardown calls run afterwards so
// no lock is held across them, and a failure on one entry never aborts
// the rest of the sweep.
func (j *Janitor) Sweep(ctx context.Context) {
	now := time.Now()

	type expired struct {
		id     string
		reason string
	}
	var candidates []expired
	for _, sess := range j.registry.List() {
		switch {
		case sess.Age(now) > j.cfg.SessionTimeout:
			candidates = append(candidates, expired{sess.ID, "age"})
		case sess.Idle(now) > j.cfg.IdleTimeout:
			candidates = append(candidates, expired{sess.ID, "idle"})
		}
	}

	for _, c := range candidates {
		j.log.Info("reclaiming expired session",
			zap.String("session_id", c.id),
			zap.String("reason", c.reason))
		if err := j.destroyer.Destroy(ctx, c.id); err != nil {
			j.log.Warn("failed to reclaim session",
				zap.String("session_id", c.id),
				zap.Error(err))
			continue
		}
		j.metrics.RecordReclaim(c.reason)
	}

	if reaped := j.peers.ReapTerminal(); reaped > 0 {
		j.log.Info("reaped dead peer connections", zap.Int("count", reaped))
	}

	j.metrics.SetSessionsActive(j.registry.Len())
}

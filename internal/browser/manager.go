package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelid/backend/internal/bridge"
	"github.com/sentinelid/backend/internal/config"
	"github.com/sentinelid/backend/internal/logging"
	"github.com/sentinelid/backend/internal/session"
	"github.com/sentinelid/backend/internal/shared/id"
)

// ErrCreationFailed is returned when launching or navigating a new
// browser instance errors or times out. No session is registered when
// creation fails.
var ErrCreationFailed = errors.New("browser: session creation failed")

// DefaultURL is used when a create request omits the url.
const DefaultURL = "https://example.com"

// Info is the listing view of a live session. Title and thumbnail are
// fetched from the running instance at listing time.
type Info struct {
	SessionID    string    `json:"session_id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Screenshot   string    `json:"screenshot,omitempty"`
	IsIsolated   bool      `json:"is_isolated"`
	Status       string    `json:"status"`
}

// LaunchFunc allocates a fresh engine instance.
type LaunchFunc func(ctx context.Context, cfg config.BrowserConfig) (session.Page, error)

// Manager creates, saves, restores, and tears down browser sessions.
type Manager struct {
	cfg      config.BrowserConfig
	bridge   *bridge.Bridge
	registry *session.Registry
	saved    *session.SavedStore
	log      *logging.Logger
	launch   LaunchFunc
}

// NewManager creates a lifecycle manager around the shared registry and
// saved-session store.
func NewManager(cfg config.BrowserConfig, b *bridge.Bridge, reg *session.Registry, saved *session.SavedStore, log *logging.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		bridge:   b,
		registry: reg,
		saved:    saved,
		log:      log.Named("browser"),
		launch: func(ctx context.Context, cfg config.BrowserConfig) (session.Page, error) {
			return launch(ctx, cfg)
		},
	}
}

// WithLauncher overrides the engine launcher. Tests use this to stand in
// a fake page without a real browser.
func (m *Manager) WithLauncher(fn LaunchFunc) *Manager {
	m.launch = fn
	return m
}

// Create allocates a new sandboxed browser instance, fixes its viewport,
// navigates to url, and registers the resulting session. On failure
// nothing is registered.
func (m *Manager) Create(ctx context.Context, url string) (*session.Session, error) {
	if url == "" {
		url = DefaultURL
	}
	sid := id.NewSessionID()
	m.log.Info("creating session", zap.String("session_id", sid), zap.String("url", url))

	result, err := m.bridge.Submit(ctx, "session.create", func(workerCtx context.Context) (interface{}, error) {
		page, err := m.launch(workerCtx, m.cfg)
		if err != nil {
			return nil, err
		}

		navCtx, cancel := context.WithTimeout(workerCtx, m.cfg.NavTimeout)
		defer cancel()

		if err := page.SetViewport(navCtx, m.cfg.ViewportWidth, m.cfg.ViewportHeight); err != nil {
			_ = page.Close(workerCtx)
			return nil, fmt.Errorf("set viewport: %w", err)
		}
		if err := page.Navigate(navCtx, url); err != nil {
			_ = page.Close(workerCtx)
			return nil, fmt.Errorf("navigate %s: %w", url, err)
		}
		// Navigation may reset emulation state; pin the viewport again.
		if err := page.SetViewport(navCtx, m.cfg.ViewportWidth, m.cfg.ViewportHeight); err != nil {
			_ = page.Close(workerCtx)
			return nil, fmt.Errorf("re-assert viewport: %w", err)
		}
		return page, nil
	})
	if err != nil {
		m.log.Error("session creation failed", zap.String("session_id", sid), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	vp := session.Viewport{Width: m.cfg.ViewportWidth, Height: m.cfg.ViewportHeight}
	sess := session.New(sid, url, vp, result.(session.Page))
	m.registry.Put(sess)

	m.log.Info("session created", zap.String("session_id", sid))
	return sess, nil
}

// Destroy removes the session from the registry and closes its browser
// instance. Destroying an absent id is a no-op.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	sess, ok := m.registry.Remove(sessionID)
	if !ok {
		return nil
	}

	m.log.Info("destroying session", zap.String("session_id", sessionID))
	_, err := m.bridge.Submit(ctx, "session.destroy", func(workerCtx context.Context) (interface{}, error) {
		return nil, sess.Page.Close(workerCtx)
	})
	if err != nil {
		m.log.Error("session teardown failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

// Save captures the session's current screenshot, title, and URL into a
// new snapshot with an independent lifecycle.
func (m *Manager) Save(ctx context.Context, sessionID, name string) (*session.SavedSession, error) {
	sess, ok := m.registry.Get(sessionID)
	if !ok {
		return nil, session.ErrNotFound
	}

	result, err := m.bridge.Submit(ctx, "session.save", func(workerCtx context.Context) (interface{}, error) {
		capCtx, cancel := context.WithTimeout(workerCtx, m.cfg.CaptureTimeout)
		defer cancel()

		shot, err := sess.Page.Screenshot(capCtx)
		if err != nil {
			return nil, fmt.Errorf("screenshot: %w", err)
		}
		title, err := sess.Page.Title(capCtx)
		if err != nil {
			return nil, fmt.Errorf("title: %w", err)
		}
		return &session.SavedSession{Screenshot: shot, Title: title}, nil
	})
	if err != nil {
		return nil, err
	}

	saved := result.(*session.SavedSession)
	saved.ID = id.NewSavedID()
	saved.URL = sess.URL()
	saved.SavedAt = time.Now()
	saved.Name = name
	if saved.Name == "" {
		saved.Name = saved.URL
	}
	m.saved.Put(saved)

	m.log.Info("session saved",
		zap.String("session_id", sessionID),
		zap.String("saved_id", saved.ID))
	return saved, nil
}

// Restore creates a brand-new session from a saved snapshot's URL. The
// new session id is unrelated to the snapshot.
func (m *Manager) Restore(ctx context.Context, savedID string) (*session.Session, error) {
	saved, ok := m.saved.Get(savedID)
	if !ok {
		return nil, session.ErrSavedNotFound
	}
	sess, err := m.Create(ctx, saved.URL)
	if err != nil {
		return nil, err
	}
	m.log.Info("session restored",
		zap.String("saved_id", savedID),
		zap.String("session_id", sess.ID))
	return sess, nil
}

// ListInfo returns the listing view of every live session, fetching
// title and thumbnail from each instance. A session whose instance fails
// to answer degrades to status "error" instead of failing the listing.
func (m *Manager) ListInfo(ctx context.Context) []Info {
	sessions := m.registry.List()
	infos := make([]Info, 0, len(sessions))

	for _, sess := range sessions {
		info := Info{
			SessionID:    sess.ID,
			URL:          sess.URL(),
			CreatedAt:    sess.CreatedAt.UTC(),
			LastActivity: sess.LastActivity().UTC(),
			IsIsolated:   true,
			Status:       "active",
		}

		result, err := m.bridge.Submit(ctx, "session.info", func(workerCtx context.Context) (interface{}, error) {
			capCtx, cancel := context.WithTimeout(workerCtx, m.cfg.CaptureTimeout)
			defer cancel()

			title, err := sess.Page.Title(capCtx)
			if err != nil {
				return nil, err
			}
			shot, err := sess.Page.Screenshot(capCtx)
			if err != nil {
				// Title without thumbnail is still useful.
				return Info{Title: title}, nil
			}
			return Info{Title: title, Screenshot: base64.StdEncoding.EncodeToString(shot)}, nil
		})
		if err != nil {
			m.log.Warn("session info fetch failed", zap.String("session_id", sess.ID), zap.Error(err))
			info.Title = "Error loading title"
			info.Status = "error"
		} else {
			fetched := result.(Info)
			info.Title = fetched.Title
			info.Screenshot = fetched.Screenshot
		}
		infos = append(infos, info)
	}
	return infos
}

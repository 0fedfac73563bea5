package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelid/backend/internal/bridge"
	"github.com/sentinelid/backend/internal/browser"
	"github.com/sentinelid/backend/internal/config"
	"github.com/sentinelid/backend/internal/logging"
	"github.com/sentinelid/backend/internal/rtc"
	"github.com/sentinelid/backend/internal/session"
)

type fakePage struct {
	mu         sync.Mutex
	closeCalls int
}

func (f *fakePage) Navigate(ctx context.Context, url string) error          { return nil }
func (f *fakePage) SetViewport(ctx context.Context, w, h int) error         { return nil }
func (f *fakePage) Screenshot(ctx context.Context) ([]byte, error)          { return []byte("shot"), nil }
func (f *fakePage) Title(ctx context.Context) (string, error)               { return "Example Domain", nil }
func (f *fakePage) MoveMouse(ctx context.Context, x, y int) error           { return nil }
func (f *fakePage) Click(ctx context.Context, x, y int) error               { return nil }
func (f *fakePage) Type(ctx context.Context, text string) error             { return nil }
func (f *fakePage) Scroll(ctx context.Context, deltaY int) error            { return nil }
func (f *fakePage) ElementAt(ctx context.Context, x, y int) (*session.Element, error) {
	return nil, nil
}

func (f *fakePage) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

type fixture struct {
	router   *gin.Engine
	registry *session.Registry
	saved    *session.SavedStore
	page     *fakePage
}

func newFixture(t *testing.T, launchErr error) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := bridge.New(2*time.Second, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b.Start(ctx)

	cfg := config.Default()
	cfg.Browser.ArtifactsDir = t.TempDir()
	cfg.Stream.STUNURL = ""

	reg := session.NewRegistry()
	saved := session.NewSavedStore()
	page := &fakePage{}

	bm := browser.NewManager(cfg.Browser, b, reg, saved, logging.NewNop()).
		WithLauncher(func(ctx context.Context, cfg config.BrowserConfig) (session.Page, error) {
			if launchErr != nil {
				return nil, launchErr
			}
			return page, nil
		})

	protocol := rtc.NewProtocol(reg, b, cfg.Browser, nil, logging.NewNop())
	peers := rtc.NewManager(reg, b, protocol, cfg.Stream, cfg.Browser, nil, logging.NewNop())
	t.Cleanup(peers.Close)

	h := NewHandlers(bm, peers, reg, saved, nil, logging.NewNop())
	router := gin.New()
	h.Register(router)

	return &fixture{router: router, registry: reg, saved: saved, page: page}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestCreateAndListSession(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/sessions", gin.H{"url": "https://example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "created", body["status"])
	assert.Equal(t, "https://example.com", body["url"])
	sessionID := body["session_id"].(string)
	assert.Contains(t, sessionID, "sess_")

	w, body = f.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := body["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	entry := sessions[0].(map[string]interface{})
	assert.Equal(t, sessionID, entry["session_id"])
	assert.Equal(t, "https://example.com", entry["url"])
	assert.Equal(t, "Example Domain", entry["title"])
	assert.Equal(t, "active", entry["status"])
}

func TestCreateSessionDefaultsURL(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, browser.DefaultURL, body["url"])
}

func TestCreateSessionFailure(t *testing.T) {
	f := newFixture(t, errors.New("chromium would not start"))

	w, body := f.do(t, http.MethodPost, "/sessions", gin.H{"url": "https://example.com"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"], "creation failed")
	assert.Zero(t, f.registry.Len())
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.do(t, http.MethodPost, "/sessions", gin.H{"url": "https://example.com"})
	sessionID := body["session_id"].(string)

	w, body := f.do(t, http.MethodDelete, "/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", body["status"])

	w, body = f.do(t, http.MethodDelete, "/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", body["status"])

	// The second delete performed no engine teardown.
	assert.Equal(t, 1, f.page.closeCalls)
	assert.Zero(t, f.registry.Len())
}

func TestSaveSessionNotFound(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/sessions/sess_missing/save", gin.H{"name": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "not found")
}

func TestSaveAndListSaved(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.do(t, http.MethodPost, "/sessions", gin.H{"url": "https://example.com"})
	sessionID := body["session_id"].(string)

	w, body := f.do(t, http.MethodPost, "/sessions/"+sessionID+"/save", gin.H{"name": "research tab"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "saved", body["status"])
	savedID := body["saved_id"].(string)
	assert.Contains(t, savedID, "saved_")
	assert.NotEmpty(t, body["saved_at"])

	w, body = f.do(t, http.MethodGet, "/sessions/saved", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tabs := body["saved_tabs"].([]interface{})
	require.Len(t, tabs, 1)
	tab := tabs[0].(map[string]interface{})
	assert.Equal(t, savedID, tab["id"])
	assert.Equal(t, "research tab", tab["name"])
	assert.Equal(t, "https://example.com", tab["url"])
	assert.Equal(t, "Example Domain", tab["title"])
	assert.NotEmpty(t, tab["screenshot"])
}

func TestRestoreSessionNotFound(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/sessions/saved_missing/restore", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "not found")
}

func TestRestoreSessionCreatesNewSession(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.do(t, http.MethodPost, "/sessions", gin.H{"url": "https://example.com"})
	originalID := body["session_id"].(string)
	_, body = f.do(t, http.MethodPost, "/sessions/"+originalID+"/save", nil)
	savedID := body["saved_id"].(string)

	w, body := f.do(t, http.MethodPost, "/sessions/"+savedID+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "restored", body["status"])
	assert.Equal(t, "https://example.com", body["url"])
	assert.NotEqual(t, originalID, body["session_id"])
	assert.Equal(t, 2, f.registry.Len())
}

func TestOfferMissingFields(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/webrtc/offer", gin.H{"session_id": "sess_a"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", body["error"])
}

func TestOfferInvalidSession(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/webrtc/offer", gin.H{
		"session_id": "sess_missing",
		"sdp":        "v=0",
		"type":       "offer",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid session_id", body["error"])
}

func TestCandidateUnknownPeerIgnored(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/webrtc/candidate", gin.H{
		"pc_id":     "pc-missing",
		"candidate": gin.H{"candidate": "candidate:1", "sdpMid": "0"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", body["status"])
}

func TestCandidateMissingFields(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/webrtc/candidate", gin.H{"pc_id": "pc-x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing pc_id or candidate", body["error"])
}

func TestHealthCounts(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/sessions", gin.H{"url": "https://example.com"})

	w, body := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["sessions"])
	assert.Equal(t, float64(0), body["connections"])
	assert.Equal(t, float64(0), body["saved_sessions"])
}

func TestRootBanner(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", body["status"])
	assert.NotEmpty(t, body["service"])
}

package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/sentinelid/backend/internal/browser"
	"github.com/sentinelid/backend/internal/logging"
	"github.com/sentinelid/backend/internal/monitoring"
	"github.com/sentinelid/backend/internal/rtc"
	"github.com/sentinelid/backend/internal/session"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	browser  *browser.Manager
	peers    *rtc.Manager
	registry *session.Registry
	saved    *session.SavedStore
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	browserManager *browser.Manager,
	peers *rtc.Manager,
	registry *session.Registry,
	saved *session.SavedStore,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Handlers {
	return &Handlers{
		browser:  browserManager,
		peers:    peers,
		registry: registry,
		saved:    saved,
		metrics:  metrics,
		log:      log.Named("http"),
	}
}

// Register wires every route onto the router.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/saved", h.ListSaved)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.POST("/sessions/:id/save", h.SaveSession)
	r.POST("/sessions/:id/restore", h.RestoreSession)

	r.POST("/webrtc/offer", h.HandleOffer)
	r.POST("/webrtc/candidate", h.HandleCandidate)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Isolated Browser Service (Go)",
		"version": "0.2.0",
	})
}

// Health reports collection sizes for liveness checks
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"sessions":       h.registry.Len(),
		"connections":    h.peers.Len(),
		"saved_sessions": h.saved.Len(),
	})
}

type createSessionRequest struct {
	URL string `json:"url"`
}

// CreateSession allocates a new sandboxed browser session
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	// An empty body means "use the default URL".
	_ = c.ShouldBindJSON(&req)

	sess, err := h.browser.Create(c.Request.Context(), req.URL)
	if err != nil {
		h.log.Error("session creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.IncSessionsCreated()
	h.metrics.SetSessionsActive(h.registry.Len())
	c.JSON(http.StatusCreated, gin.H{
		"session_id": sess.ID,
		"url":        sess.URL(),
		"status":     "created",
	})
}

// ListSessions lists all live sessions with title and thumbnail
func (h *Handlers) ListSessions(c *gin.Context) {
	infos := h.browser.ListInfo(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"sessions": infos})
}

// DeleteSession tears down a session. Deleting an absent id succeeds.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.browser.Destroy(c.Request.Context(), sessionID); err != nil {
		h.log.Error("session teardown failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.SetSessionsActive(h.registry.Len())
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type saveSessionRequest struct {
	Name string `json:"name"`
}

// SaveSession captures a snapshot of a live session
func (h *Handlers) SaveSession(c *gin.Context) {
	sessionID := c.Param("id")

	var req saveSessionRequest
	_ = c.ShouldBindJSON(&req)

	saved, err := h.browser.Save(c.Request.Context(), sessionID, req.Name)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.log.Error("session save failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.IncSessionsSaved()
	h.metrics.SetSavedSessions(h.saved.Len())
	c.JSON(http.StatusOK, gin.H{
		"status":   "saved",
		"saved_id": saved.ID,
		"saved_at": saved.SavedAt,
	})
}

// ListSaved lists all stored snapshots
func (h *Handlers) ListSaved(c *gin.Context) {
	snapshots := h.saved.List()
	tabs := make([]gin.H, 0, len(snapshots))
	for _, s := range snapshots {
		var screenshot string
		if len(s.Screenshot) > 0 {
			screenshot = base64.StdEncoding.EncodeToString(s.Screenshot)
		}
		tabs = append(tabs, gin.H{
			"id":         s.ID,
			"name":       s.Name,
			"url":        s.URL,
			"title":      s.Title,
			"saved_at":   s.SavedAt,
			"screenshot": screenshot,
		})
	}
	c.JSON(http.StatusOK, gin.H{"saved_tabs": tabs})
}

// RestoreSession creates a brand-new session from a stored snapshot
func (h *Handlers) RestoreSession(c *gin.Context) {
	savedID := c.Param("id")

	sess, err := h.browser.Restore(c.Request.Context(), savedID)
	if err != nil {
		if errors.Is(err, session.ErrSavedNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Saved session not found"})
			return
		}
		h.log.Error("session restore failed",
			zap.String("saved_id", savedID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.IncSessionsRestored()
	h.metrics.SetSessionsActive(h.registry.Len())
	c.JSON(http.StatusOK, gin.H{
		"status":     "restored",
		"session_id": sess.ID,
		"url":        sess.URL(),
	})
}

type offerRequest struct {
	SessionID string `json:"session_id"`
	SDP       string `json:"sdp"`
	Type      string `json:"type"`
}

// HandleOffer negotiates a new peer connection for a session
func (h *Handlers) HandleOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" || req.SDP == "" || req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	answer, pcID, err := h.peers.HandleOffer(c.Request.Context(), req.SessionID, req.SDP, req.Type)
	if err != nil {
		if errors.Is(err, rtc.ErrInvalidSession) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id"})
			return
		}
		h.log.Error("offer negotiation failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sdp":   answer.SDP,
		"type":  answer.Type.String(),
		"pc_id": pcID,
	})
}

type candidateRequest struct {
	PCID      string                   `json:"pc_id"`
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
}

// HandleCandidate applies a trickled ICE candidate. An unknown pc_id is
// reported as ignored, not as an error, since candidates legitimately
// arrive around connection teardown.
func (h *Handlers) HandleCandidate(c *gin.Context) {
	var req candidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PCID == "" || req.Candidate == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing pc_id or candidate"})
		return
	}

	if !h.peers.HandleCandidate(req.PCID, *req.Candidate) {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

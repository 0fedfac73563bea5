package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelid/backend/internal/bridge"
	"github.com/sentinelid/backend/internal/config"
	"github.com/sentinelid/backend/internal/logging"
	"github.com/sentinelid/backend/internal/monitoring"
	"github.com/sentinelid/backend/internal/session"
)

var (
	// ErrElementNotFound means nothing was under the click point.
	ErrElementNotFound = errors.New("rtc: no element at position")

	// ErrClickFailed means validation passed but the click itself raised.
	ErrClickFailed = errors.New("rtc: click failed")
)

// settleDelay sits between the pointer move and the click so the page
// sees the pointer at the target before the button event.
const settleDelay = 50 * time.Millisecond

// Channel is the reply side of a data channel. A channel that is no
// longer open silently drops replies.
type Channel interface {
	Open() bool
	Send(payload []byte) error
}

// Protocol decodes inbound data-channel commands, validates them against
// session state, drives the browser engine through the bridge, and
// replies with structured results.
type Protocol struct {
	registry *session.Registry
	bridge   *bridge.Bridge
	cfg      config.BrowserConfig
	metrics  *monitoring.Metrics
	log      *logging.Logger
	settle   time.Duration
}

// NewProtocol creates the interaction protocol handler.
func NewProtocol(reg *session.Registry, b *bridge.Bridge, cfg config.BrowserConfig, metrics *monitoring.Metrics, log *logging.Logger) *Protocol {
	return &Protocol{
		registry: reg,
		bridge:   b,
		cfg:      cfg,
		metrics:  metrics,
		log:      log.Named("protocol"),
		settle:   settleDelay,
	}
}

// HandleMessage processes one raw data-channel message for a session.
// It never returns an error to the transport layer: every failure is
// converted into a structured reply on the channel, and nothing may
// escape to kill the message callback.
func (p *Protocol) HandleMessage(ctx context.Context, sessionID string, ch Channel, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		p.log.Warn("undecodable interaction message", zap.Error(err))
		p.send(ch, ErrorReply{Type: "error", Message: "invalid message"})
		return
	}

	p.metrics.RecordInteraction(msg.Type)

	sess, ok := p.registry.Get(sessionID)
	if !ok {
		clickID := msg.ID
		if clickID == "" {
			clickID = "unknown"
		}
		p.send(ch, clickFailure(clickID, "Session not found"))
		return
	}

	p.log.Debug("handling interaction",
		zap.String("session_id", sessionID),
		zap.String("type", msg.Type))

	switch msg.Type {
	case msgClick:
		p.handleClick(ctx, sess, ch, msg)
	case msgType:
		p.handleType(ctx, sess, ch, msg)
	case msgScroll:
		p.handleScroll(ctx, sess, ch, msg)
	case msgNavigate:
		p.handleNavigate(ctx, sess, ch, msg)
	case msgScreenshot:
		p.handleScreenshot(ctx, sess, ch)
	default:
		p.send(ch, ErrorReply{Type: "error", Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

func (p *Protocol) handleClick(ctx context.Context, sess *session.Session, ch Channel, msg Message) {
	clickID := msg.ID
	if clickID == "" {
		clickID = "unknown"
	}
	x, y := msg.X, msg.Y
	vp := sess.Viewport

	// Bounds are checked before any engine call is made.
	if !vp.Contains(x, y) {
		p.send(ch, clickFailure(clickID, fmt.Sprintf(
			"Coordinates (%d, %d) outside viewport (%dx%d)", x, y, vp.Width, vp.Height)))
		return
	}

	res, err := p.bridge.Submit(ctx, "click", func(tctx context.Context) (interface{}, error) {
		// Navigation may have reset the viewport since creation.
		if err := sess.Page.SetViewport(tctx, vp.Width, vp.Height); err != nil {
			return nil, fmt.Errorf("assert viewport: %w", err)
		}
		el, err := sess.Page.ElementAt(tctx, x, y)
		if err != nil {
			return nil, fmt.Errorf("element lookup: %w", err)
		}
		if el == nil {
			return nil, fmt.Errorf("%w (%d, %d)", ErrElementNotFound, x, y)
		}
		if err := sess.Page.MoveMouse(tctx, x, y); err != nil {
			return nil, fmt.Errorf("%w at (%d, %d): %v", ErrClickFailed, x, y, err)
		}
		select {
		case <-tctx.Done():
			return nil, tctx.Err()
		case <-time.After(p.settle):
		}
		if err := sess.Page.Click(tctx, x, y); err != nil {
			return nil, fmt.Errorf("%w at (%d, %d): %v", ErrClickFailed, x, y, err)
		}
		return el, nil
	})
	if err != nil {
		p.observeBridgeErr(err)
		p.log.Warn("click failed",
			zap.String("session_id", sess.ID),
			zap.Int("x", x), zap.Int("y", y),
			zap.Error(err))
		p.send(ch, clickFailure(clickID, err.Error()))
		return
	}

	sess.Touch()
	p.send(ch, clickSuccess(clickID, res.(*session.Element)))
}

func (p *Protocol) handleType(ctx context.Context, sess *session.Session, ch Channel, msg Message) {
	_, err := p.bridge.Submit(ctx, "type", func(tctx context.Context) (interface{}, error) {
		return nil, sess.Page.Type(tctx, msg.Text)
	})
	if err != nil {
		p.observeBridgeErr(err)
		p.send(ch, ErrorReply{Type: "error", Message: err.Error()})
		return
	}
	sess.Touch()
	p.send(ch, Ack{Type: "ack", Event: msgType})
}

func (p *Protocol) handleScroll(ctx context.Context, sess *session.Session, ch Channel, msg Message) {
	_, err := p.bridge.Submit(ctx, "scroll", func(tctx context.Context) (interface{}, error) {
		return nil, sess.Page.Scroll(tctx, msg.DeltaY)
	})
	if err != nil {
		p.observeBridgeErr(err)
		p.send(ch, ErrorReply{Type: "error", Message: err.Error()})
		return
	}
	sess.Touch()
	p.send(ch, Ack{Type: "ack", Event: msgScroll})
}

func (p *Protocol) handleNavigate(ctx context.Context, sess *session.Session, ch Channel, msg Message) {
	_, err := p.bridge.Submit(ctx, "navigate", func(tctx context.Context) (interface{}, error) {
		nctx, cancel := context.WithTimeout(tctx, p.cfg.NavTimeout)
		defer cancel()
		return nil, sess.Page.Navigate(nctx, msg.URL)
	})
	if err != nil {
		p.observeBridgeErr(err)
		p.log.Warn("navigation failed",
			zap.String("session_id", sess.ID),
			zap.String("url", msg.URL),
			zap.Error(err))
		p.send(ch, ErrorReply{Type: "error", Message: fmt.Sprintf("navigation failed: %v", err)})
		return
	}
	sess.SetURL(msg.URL)
	sess.Touch()
	p.send(ch, Ack{Type: "ack", Event: msgNavigate})
}

func (p *Protocol) handleScreenshot(ctx context.Context, sess *session.Session, ch Channel) {
	res, err := p.bridge.Submit(ctx, "screenshot", func(tctx context.Context) (interface{}, error) {
		cctx, cancel := context.WithTimeout(tctx, p.cfg.CaptureTimeout)
		defer cancel()
		return sess.Page.Screenshot(cctx)
	})
	if err != nil {
		p.observeBridgeErr(err)
		p.send(ch, ErrorReply{Type: "error", Message: err.Error()})
		return
	}

	filename := fmt.Sprintf("session_%s_%d.jpg", sess.ID, time.Now().Unix())
	if err := p.persistArtifact(filename, res.([]byte)); err != nil {
		p.log.Error("failed to persist screenshot",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		p.send(ch, ErrorReply{Type: "error", Message: err.Error()})
		return
	}

	sess.Touch()
	p.send(ch, ScreenshotSaved{Type: "screenshot_saved", Filename: filename})
	p.send(ch, Ack{Type: "ack", Event: msgScreenshot})
}

func (p *Protocol) persistArtifact(filename string, data []byte) error {
	if err := os.MkdirAll(p.cfg.ArtifactsDir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	path := filepath.Join(p.cfg.ArtifactsDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

func (p *Protocol) observeBridgeErr(err error) {
	if errors.Is(err, bridge.ErrTimeout) {
		p.metrics.IncBridgeTimeouts()
	}
}

// send marshals and delivers one reply if the channel is still open.
func (p *Protocol) send(ch Channel, reply interface{}) {
	if ch == nil || !ch.Open() {
		return
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		p.log.Error("failed to marshal reply", zap.Error(err))
		return
	}
	if err := ch.Send(payload); err != nil {
		p.log.Debug("failed to send reply", zap.Error(err))
	}
}

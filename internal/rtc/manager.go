package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/sentinelid/backend/internal/bridge"
	"github.com/sentinelid/backend/internal/config"
	"github.com/sentinelid/backend/internal/logging"
	"github.com/sentinelid/backend/internal/monitoring"
	"github.com/sentinelid/backend/internal/session"
	"github.com/sentinelid/backend/internal/shared/id"
	"github.com/sentinelid/backend/internal/stream"
)

// ErrInvalidSession means the offer referenced an unknown session id.
var ErrInvalidSession = errors.New("rtc: invalid session id")

// Peer is one negotiated transport connection bound to a session.
type Peer struct {
	ID        string
	SessionID string
	CreatedAt time.Time

	mu     sync.Mutex
	state  webrtc.PeerConnectionState
	pc     *webrtc.PeerConnection
	cancel context.CancelFunc
}

// State returns the last observed connection state.
func (p *Peer) State() webrtc.PeerConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Peer) setState(s webrtc.PeerConnectionState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// terminal reports whether the peer can never become usable again.
func (p *Peer) terminal() bool {
	s := p.State()
	return s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed
}

// teardown stops the streamer and closes the transport. Safe to call
// more than once.
func (p *Peer) teardown() error {
	p.cancel()
	return p.pc.Close()
}

// Manager owns the peer connection table and runs signaling.
type Manager struct {
	registry   *session.Registry
	bridge     *bridge.Bridge
	protocol   *Protocol
	streamCfg  config.StreamConfig
	browserCfg config.BrowserConfig
	metrics    *monitoring.Metrics
	log        *logging.Logger

	mu    sync.RWMutex
	peers map[string]*Peer
}

// NewManager creates the signaling and peer connection manager.
func NewManager(reg *session.Registry, b *bridge.Bridge, protocol *Protocol, streamCfg config.StreamConfig, browserCfg config.BrowserConfig, metrics *monitoring.Metrics, log *logging.Logger) *Manager {
	return &Manager{
		registry:   reg,
		bridge:     b,
		protocol:   protocol,
		streamCfg:  streamCfg,
		browserCfg: browserCfg,
		metrics:    metrics,
		log:        log.Named("rtc"),
		peers:      make(map[string]*Peer),
	}
}

// HandleOffer negotiates a new peer connection for a session. It applies
// the remote offer, attaches a video track fed by the streaming
// pipeline, binds the interaction protocol to the inbound data channel,
// and returns the local answer and the new peer id.
func (m *Manager) HandleOffer(ctx context.Context, sessionID, sdp, sdpType string) (*webrtc.SessionDescription, string, error) {
	sess, ok := m.registry.Get(sessionID)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidSession, sessionID)
	}

	var rtcCfg webrtc.Configuration
	if m.streamCfg.STUNURL != "" {
		rtcCfg.ICEServers = []webrtc.ICEServer{{URLs: []string{m.streamCfg.STUNURL}}}
	}
	pc, err := webrtc.NewPeerConnection(rtcCfg)
	if err != nil {
		return nil, "", fmt.Errorf("create peer connection: %w", err)
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(sdpType),
		SDP:  sdp,
	}); err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("apply remote offer: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "browser-stream")
	if err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("create video track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("attach video track: %w", err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	peer := &Peer{
		ID:        id.NewPeerID(),
		SessionID: sessionID,
		CreatedAt: time.Now(),
		state:     webrtc.PeerConnectionStateNew,
		pc:        pc,
		cancel:    cancel,
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		m.log.Info("data channel opened",
			zap.String("pc_id", peer.ID),
			zap.String("label", dc.Label()))
		ch := &dataChannel{dc: dc}
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			m.protocol.HandleMessage(context.Background(), sessionID, ch, msg.Data)
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		peer.setState(state)
		m.log.Info("connection state changed",
			zap.String("pc_id", peer.ID),
			zap.String("state", state.String()))
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			m.drop(peer)
		}
	})

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		cancel()
		pc.Close()
		return nil, "", fmt.Errorf("create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		cancel()
		pc.Close()
		return nil, "", fmt.Errorf("apply local answer: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		cancel()
		pc.Close()
		return nil, "", ctx.Err()
	}

	m.mu.Lock()
	m.peers[peer.ID] = peer
	n := len(m.peers)
	m.mu.Unlock()
	m.metrics.IncOffers()
	m.metrics.SetPeersActive(n)

	go m.newStreamer(sess, track).Run(streamCtx)

	m.log.Info("peer connection established",
		zap.String("pc_id", peer.ID),
		zap.String("session_id", sessionID))
	return pc.LocalDescription(), peer.ID, nil
}

// HandleCandidate applies a trickled ICE candidate. An unknown peer id
// is not an error: candidates may arrive before the table entry exists
// or after teardown, and the caller reports those as ignored. Malformed
// candidates are logged and dropped.
func (m *Manager) HandleCandidate(pcID string, candidate webrtc.ICECandidateInit) bool {
	m.mu.RLock()
	peer, ok := m.peers[pcID]
	m.mu.RUnlock()
	if !ok {
		m.metrics.RecordCandidate("ignored")
		return false
	}

	if err := peer.pc.AddICECandidate(candidate); err != nil {
		m.log.Warn("dropping malformed candidate",
			zap.String("pc_id", pcID),
			zap.Error(err))
	}
	m.metrics.RecordCandidate("added")
	return true
}

// ReapTerminal removes and closes every peer in a terminal state. The
// table lock is released before any transport teardown.
func (m *Manager) ReapTerminal() int {
	m.mu.Lock()
	var dead []*Peer
	for pcID, peer := range m.peers {
		if peer.terminal() {
			delete(m.peers, pcID)
			dead = append(dead, peer)
		}
	}
	n := len(m.peers)
	m.mu.Unlock()

	for _, peer := range dead {
		if err := peer.teardown(); err != nil {
			m.log.Warn("peer teardown failed",
				zap.String("pc_id", peer.ID),
				zap.Error(err))
		}
	}
	if len(dead) > 0 {
		m.metrics.SetPeersActive(n)
		m.log.Info("reaped terminal peers", zap.Int("count", len(dead)))
	}
	return len(dead)
}

// Get returns the tracked peer for pcID.
func (m *Manager) Get(pcID string) (*Peer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	peer, ok := m.peers[pcID]
	return peer, ok
}

// Len returns the number of tracked peer connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}

// Close tears down every tracked peer connection.
func (m *Manager) Close() {
	m.mu.Lock()
	peers := make([]*Peer, 0, len(m.peers))
	for pcID, peer := range m.peers {
		delete(m.peers, pcID)
		peers = append(peers, peer)
	}
	m.mu.Unlock()

	for _, peer := range peers {
		if err := peer.teardown(); err != nil {
			m.log.Warn("peer teardown failed",
				zap.String("pc_id", peer.ID),
				zap.Error(err))
		}
	}
	m.metrics.SetPeersActive(0)
}

// drop removes one peer from the table and closes it. Both the
// state-change callback and the janitor funnel through here, so removal
// stays idempotent.
func (m *Manager) drop(peer *Peer) {
	m.mu.Lock()
	_, present := m.peers[peer.ID]
	if present {
		delete(m.peers, peer.ID)
	}
	n := len(m.peers)
	m.mu.Unlock()

	if err := peer.teardown(); err != nil {
		m.log.Warn("peer teardown failed",
			zap.String("pc_id", peer.ID),
			zap.Error(err))
	}
	if present {
		m.metrics.SetPeersActive(n)
		m.log.Info("peer connection removed", zap.String("pc_id", peer.ID))
	}
}

// newStreamer builds the per-peer streaming pipeline. Frame capture is
// routed through the bridge so engine access stays on the worker.
func (m *Manager) newStreamer(sess *session.Session, track stream.SampleWriter) *stream.Streamer {
	capture := func(ctx context.Context) ([]byte, error) {
		res, err := m.bridge.Submit(ctx, "frame capture", func(tctx context.Context) (interface{}, error) {
			cctx, cancel := context.WithTimeout(tctx, m.browserCfg.CaptureTimeout)
			defer cancel()
			return sess.Page.Screenshot(cctx)
		})
		if err != nil {
			m.metrics.RecordFrame("error")
			return nil, err
		}
		m.metrics.RecordFrame("ok")
		return res.([]byte), nil
	}
	return stream.New(track, capture, m.streamCfg.FrameInterval(),
		sess.Viewport.Width, sess.Viewport.Height, m.log)
}

// dataChannel adapts a pion data channel to the protocol's reply side.
type dataChannel struct {
	dc *webrtc.DataChannel
}

func (d *dataChannel) Open() bool {
	return d.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (d *dataChannel) Send(payload []byte) error {
	return d.dc.SendText(string(payload))
}

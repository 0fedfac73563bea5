package session

import (
	"context"
	"sync"
	"time"
)

// Viewport is the fixed pixel dimensions of a session's rendering
// surface, used to validate interaction coordinates.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether the point lies inside the viewport.
func (v Viewport) Contains(x, y int) bool {
	return x >= 0 && x <= v.Width && y >= 0 && y <= v.Height
}

// Rect is an element bounding box in viewport coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element describes the DOM element resolved at a click point.
type Element struct {
	TagName   string `json:"tagName"`
	ID        string `json:"id"`
	ClassName string `json:"className"`
	Rect      Rect   `json:"rect"`
}

// Page is the live browser surface bound to a session. Implementations
// wrap the automation engine; all methods honor the context deadline.
// Every call must happen on the engine worker (see the bridge package).
type Page interface {
	Navigate(ctx context.Context, url string) error
	SetViewport(ctx context.Context, width, height int) error
	Screenshot(ctx context.Context) ([]byte, error)
	Title(ctx context.Context) (string, error)
	// ElementAt resolves the element under the point; a nil element with
	// nil error means nothing is there.
	ElementAt(ctx context.Context, x, y int) (*Element, error)
	MoveMouse(ctx context.Context, x, y int) error
	Click(ctx context.Context, x, y int) error
	Type(ctx context.Context, text string) error
	Scroll(ctx context.Context, deltaY int) error
	// Close tears down the underlying engine handles in
	// reverse-acquisition order. Safe to call once.
	Close(ctx context.Context) error
}

// Session is one isolated, addressable browser execution context. The id
// is immutable once assigned; url and last-activity are guarded by the
// session's own lock.
type Session struct {
	ID        string
	CreatedAt time.Time
	Viewport  Viewport
	Page      Page

	mu           sync.Mutex
	url          string
	lastActivity time.Time
}

// New creates a session around a live page.
func New(id, url string, vp Viewport, page Page) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		Viewport:     vp,
		Page:         page,
		url:          url,
		lastActivity: now,
	}
}

// URL returns the session's current URL.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// SetURL records a successful navigation.
func (s *Session) SetURL(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

// Touch advances the last-activity timestamp. It never moves backwards.
func (s *Session) Touch() {
	now := time.Now()
	s.mu.Lock()
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
	s.mu.Unlock()
}

// LastActivity returns the time of the last successful interaction.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Age returns how long the session has existed.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Idle returns how long the session has gone without interaction.
func (s *Session) Idle(now time.Time) time.Duration {
	return now.Sub(s.LastActivity())
}

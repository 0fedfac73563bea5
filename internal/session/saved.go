package session

import (
	"sync"
	"time"
)

// SavedSession is a point-in-time snapshot of a live session. Its
// lifecycle is independent of the originating session and may outlive it.
type SavedSession struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Screenshot []byte    `json:"-"`
	SavedAt    time.Time `json:"saved_at"`
}

// SavedStore holds saved-session snapshots.
type SavedStore struct {
	mu    sync.RWMutex
	saved map[string]*SavedSession
}

// NewSavedStore creates an empty store.
func NewSavedStore() *SavedStore {
	return &SavedStore{saved: make(map[string]*SavedSession)}
}

// Put stores a snapshot under its id.
func (s *SavedStore) Put(saved *SavedSession) {
	s.mu.Lock()
	s.saved[saved.ID] = saved
	s.mu.Unlock()
}

// Get returns the snapshot for id.
func (s *SavedStore) Get(id string) (*SavedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	saved, ok := s.saved[id]
	return saved, ok
}

// List returns a point-in-time snapshot of all saved sessions.
func (s *SavedStore) List() []*SavedSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SavedSession, 0, len(s.saved))
	for _, saved := range s.saved {
		out = append(out, saved)
	}
	return out
}

// Len returns the number of stored snapshots.
func (s *SavedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.saved)
}

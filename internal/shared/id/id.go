// Package id provides centralized ID generation for the session engine.
//
// Session and saved-session IDs are prefixed ULIDs: lexicographically
// sortable, unique across the process, and readable in logs (sess_*,
// saved_*). Peer connection IDs are plain UUIDs to match the signaling
// protocol the frontend already speaks.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	SessionPrefix = "sess"
	SavedPrefix   = "saved"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a ULID generator over the given entropy source.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID string.
func (g *Generator) Generate() string {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate())
}

// NewSessionID generates a new browser session ID.
func NewSessionID() string {
	return Default().GenerateWithPrefix(SessionPrefix)
}

// NewSavedID generates a new saved-session snapshot ID.
func NewSavedID() string {
	return Default().GenerateWithPrefix(SavedPrefix)
}

// NewPeerID generates a new peer connection ID.
func NewPeerID() string {
	return uuid.NewString()
}

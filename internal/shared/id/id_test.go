package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDPrefix(t *testing.T) {
	sid := NewSessionID()
	assert.True(t, strings.HasPrefix(sid, "sess_"))

	saved := NewSavedID()
	assert.True(t, strings.HasPrefix(saved, "saved_"))
}

func TestConcurrentGenerationIsUnique(t *testing.T) {
	const n = 200

	var (
		mu  sync.Mutex
		ids = make(map[string]bool)
		wg  sync.WaitGroup
	)

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			sid := NewSessionID()
			mu.Lock()
			ids[sid] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, n)
}

func TestPeerIDIsUUID(t *testing.T) {
	pid := NewPeerID()
	require.NotEmpty(t, pid)
	// UUID string form: 8-4-4-4-12.
	assert.Len(t, pid, 36)
	assert.Equal(t, 4, strings.Count(pid, "-"))
}

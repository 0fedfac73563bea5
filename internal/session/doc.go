// Package session holds the canonical state for isolated browser
// sessions: the live session registry and the saved-session store.
//
// Both collections are process-wide shared state mutated from many
// goroutines. All structural access goes through locked accessors; the
// containers themselves never escape. List operations return point-in-time
// snapshots so iteration never races with concurrent mutation.
package session

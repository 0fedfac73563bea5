// Package bridge funnels all browser engine and transport work onto a
// single dedicated worker goroutine.
//
// Request handlers submit a task and block until it completes or the call
// timeout elapses. The worker executes tasks one at a time, which keeps
// engine handles on a single goroutine and serializes their state
// transitions. A timed-out call returns ErrTimeout while the task keeps
// running on the worker; callers must treat a timeout as "outcome
// unknown", not "rolled back".
package bridge

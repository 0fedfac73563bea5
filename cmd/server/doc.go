// Package main is the entry point for the isolated browser session
// service.
//
// The server creates sandboxed browser sessions on demand, streams each
// one over WebRTC, and executes structured interaction commands sent on
// the peer connection's data channel.
//
// Architecture:
//
//	Client (browser UI) → HTTP API → Execution Bridge → Browser Engine
//	                   ↘ WebRTC peer connection (video + data channel)
//
// The server provides:
//   - REST API for session lifecycle (create, list, save, restore, delete)
//   - WebRTC signaling (offer/answer, ICE candidates)
//   - Live frame streaming at a fixed target rate
//   - Data-channel interaction protocol (click, type, scroll, navigate)
//   - Periodic reclamation of expired sessions and dead connections
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 5000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

// Package http exposes the session, saved-session, and signaling HTTP
// surface over Gin.
package http

// Package server wires configuration, the execution bridge, the browser
// lifecycle manager, signaling, the janitor, and the HTTP surface into
// one runnable service.
package server

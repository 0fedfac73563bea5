// Package stream turns browser screenshots into a live video feed.
//
// A Streamer runs per peer connection: it captures frames from the
// session's page at a target rate and writes them to the attached
// transport track. Capture failures produce a synthesized placeholder
// frame instead of stalling, so the outbound track always advances.
package stream

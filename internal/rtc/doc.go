/*
Package rtc negotiates WebRTC peer connections for browser sessions and
runs the data-channel interaction protocol.

# Overview

Each accepted offer produces one peer connection bound to one session:
a video track fed by the streaming pipeline, and a data channel carrying
structured interaction commands (click, type, scroll, navigate,
screenshot). Connection-state callbacks reap peers that reach a terminal
state; the janitor sweeps the same removal path for any it misses.

Peer negotiation runs on the caller's goroutine (pion is safe for
concurrent use); only browser engine calls are routed through the
execution bridge.

# Signaling Flow

	answer, pcID, err := manager.HandleOffer(ctx, sessionID, sdp, "offer")
	added := manager.HandleCandidate(pcID, candidate)

Candidates for unknown peer ids are ignored rather than rejected, since
they legitimately arrive before or after a connection is torn down.
*/
package rtc

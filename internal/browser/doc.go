// Package browser manages the lifecycle of isolated browser instances.
//
// Each session owns a dedicated headless Chromium launched through
// go-rod: launcher -> browser -> incognito context -> page. The manager
// creates, saves, restores, and tears down these instances, keeping the
// session registry as the single source of truth. Every engine call runs
// on the bridge worker.
package browser

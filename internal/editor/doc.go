// Package editor exposes the embedded rich-text editor as typed host-side
// commands. Each command renders a script fragment, embeds its arguments
// as JSON literals and runs it through the bridge.
//
// Commands also owns the settings snapshot used for incremental pushes:
// UpdateSettings merges into the last pushed settings and only works after
// SetSettings; ClearContent forgets the snapshot.
package editor

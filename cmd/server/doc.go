// Package main is the entry point for the notebridge server.
//
// notebridge drives a note editor that runs inside a web view. The host
// sends the editor small script jobs and waits for the value each job
// posts back under its correlation id.
//
//	HTTP client → notebridge → web view (WebSocket, /webview)
//	                        → embedded goja runtime (WEBVIEW_MODE=embedded)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Remote web view
//	./server serve --port 8000
//
//	# In-process editor script, development logging
//	./server serve --mode embedded --script editor.js --dev
//
//	# Settings maintenance
//	./server settings show --db notebridge.db
//	./server settings migrate --db notebridge.db
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

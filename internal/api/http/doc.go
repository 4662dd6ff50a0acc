// Package http is the HTTP control surface of the bridge: editor commands,
// app settings, the tag store and service metrics.
package http

// Package middleware provides the gin middleware of the control surface:
// CORS, request ids and per-client or global rate limiting.
package middleware

// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Development mode also decides whether injected bridge jobs forward
// sandbox-side exceptions to the host log.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Web view attached", zap.String("conn", connID))
//	logger.Warn("webview job failed", zap.String("id", jobID))
package logging

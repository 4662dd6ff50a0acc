// Package settings manages the app settings document: defaults, the
// persisted appSettings overlay, device side effects and the one-time
// migration of legacy flat keys.
package settings

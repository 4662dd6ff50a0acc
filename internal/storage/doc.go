// Package storage persists the host's key/value data and tags in SQLite.
//
// The kv table holds flat string values, including the appSettings JSON
// document and the legacy keys the settings migration consumes. The tags
// table backs editor tag resolution.
package storage

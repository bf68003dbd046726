// Package store provides SQLite-backed build history for filare.
//
// A recorded build stores:
//   - Builds: id (UUIDv7), fingerprint, time, harness names and input paths
//   - BOM entries: the build's BOM in entry order, with per-harness quantities
//
// # Ordering
//
// Builds list by created_at, then id. UUIDv7 ids sort by creation time, so
// builds recorded within the same clock tick keep their order. Entries
// list by entry_id, the 1-based BOM index.
//
// # Schema
//
// schema.sql creates the base tables. Later changes are numbered
// migrations tracked in PRAGMA user_version. Deleting a build deletes its
// entries (ON DELETE CASCADE); Prune relies on that.
//
// Build fingerprints are computed with internal/canonical under the
// DomainBuild prefix, so two builds with identical BOMs share one.
package store

// Package ledger persists, per data source, the set of file fingerprints
// that have already been ingested together with the path each one was last
// seen at.
//
// A ledger lives in <dir>/<name>_metadata.json as a flat JSON object mapping
// fingerprint to path. Saves replace the file atomically, so a crash leaves
// either the previous or the new ledger on disk, never a partial one.
//
// Stores do no locking. Callers must not run two ingestions of the same data
// source at once.
package ledger

// Package store provides keyed JSON document persistence for profiled.
//
// Profiles, analysis results and reflections are stored as JSON documents
// keyed by (collection, key). Two backends are provided: a SQLite-backed
// store for durable deployments and an in-memory store for tests and
// ephemeral runs. Read-modify-write cycles go through Update, which the
// SQLite backend runs inside an immediate transaction so concurrent
// writers cannot interleave.
package store

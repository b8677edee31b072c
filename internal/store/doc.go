// Package store persists the local movie cache in SQLite: movie and person
// records, the pending operation replay queue, captured unresolved intents,
// and per-kind pull bookkeeping.
//
// The store is the single source of truth for what the rest of the program
// reads. Batch upserts are transactional (a batch is visible in full or not
// at all), and every write is immediately visible to subsequent reads. No
// network or sync-policy knowledge lives here.
//
// The database is a rebuildable cache of server state plus not-yet-confirmed
// local intent. Schema changes bump the version in schema.go; users reset the
// database to adopt the new schema.
package store

// Package localstore persists lingocast client state in SQLite.
//
// The kv table replaces browser key-value storage (auth token, user record,
// current route). Drafts hold the submission workflow and quiz selections so
// separate CLI invocations can continue a flow. Cache entries back the query
// cache across processes. A gofrs/flock lock on the state directory serializes
// writers.
package localstore

// Package querycache caches read queries and runs mutations.
//
// Reads are keyed by ordered segments such as ("exercises", "42"), are
// de-duplicated with singleflight and stay fresh for a configurable stale
// time. Prefix invalidation drops whole key families, for example every
// "user" query after login. Mutations run imperatively with success, error
// and settled callbacks and expose a pending flag.
package querycache

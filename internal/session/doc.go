// Package session persists the authenticated user and drives login and
// logout.
//
// The token and user record live under the authToken and userData keys of the
// local state database so every lingocast invocation sees the same session.
// Login invalidates cached user queries; logout clears all cached queries and
// the persisted keys even when the backend call fails.
package session

// Package gateway is the HTTP client for the podcast backend.
//
// Every request carries the session's bearer token (when present) and an
// X-Request-ID. Failures surface as *Error values classified as network,
// backend or unauthorized, with the server-provided message or a generic
// fallback. A 401 from a non-auth endpoint while the user is not on the login
// view clears the session and forces the login route, once per session.
// Nothing is retried.
package gateway

// Package aiproxy serves an OpenAI-compatible subset (chat completions and
// speech) that forwards to the real provider with a key held on the server.
// Clients authenticate with a separate bearer token, so the provider key never
// reaches the client machine.
package aiproxy

// Package services defines shared utilities consumed by the podcast workflow,
// the quiz flow and the external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp podcast IDs, stage names, routes and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into CLI exit codes.
//
// Integrations with the podcast backend and the AI provider live in the
// backend and openai subpackages.
package services

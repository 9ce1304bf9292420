// Package ai is a thin client for OpenAI-compatible chat-completion and
// speech-synthesis endpoints.
//
// The same client talks either to the provider directly (with an API key) or
// to a lingocast AI proxy (with a proxy token); both expose /chat/completions
// and /audio/speech under the configured base URL. Calls are attempted once
// by default and have no client-side timeout unless one is configured.
// Provider failures are reported as *StatusError.
package ai

// Package config loads, normalizes, and validates lingocast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY, LINGOCAST_PROXY_TOKEN and LINGOCAST_BACKEND_URL. The Config
// type centralizes the backend location, AI provider settings, local state
// directories and cache policy so the CLI and the AI proxy discover them in
// one pass.
package config

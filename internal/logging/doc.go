// Package logging assembles structured slog loggers for the lingocast CLI and
// the AI proxy.
//
// It owns the console and JSON handlers, routes console output to stderr so
// command results on stdout stay machine readable, and mirrors records into a
// JSON log file when a log directory is configured. Context helpers tag lines
// with podcast IDs, workflow stages, routes and correlation IDs.
package logging

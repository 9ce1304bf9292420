// Package main hosts the lingocast CLI entrypoint and command graph.
//
// Each command maps onto one route of the learning client: login, the
// submission dashboard, the podcast library, quizzes, progress and the
// profile. Commands enter their route through the app router, so the session
// guards apply exactly as they would when navigating between views. The
// package also scaffolds configuration and starts the AI proxy.
//
// Keep this package lean: behavior lives in the internal packages and is
// surfaced here through dedicated commands or flags.
package main

// Package backend provides typed access to the podcast REST API: auth,
// transcript extraction, podcast updates, audio upload, listings and quiz
// exercises.
package backend

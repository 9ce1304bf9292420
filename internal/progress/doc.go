// Package progress summarizes quiz results across the user's podcasts.
package progress

// Package library lists the user's generated podcasts with their audio and
// downloads audio files.
package library

// Package language normalizes the free-text language a learner enters on the
// dashboard form into the display name used in prompts and listings.
package language

// Package workflow implements the dashboard's submission workflow: extract a
// transcript, rewrite it with the chat model, synthesize speech and upload
// the audio.
//
// The workflow is an explicit state machine (see State and Phase). Each
// stage may start only after its immediate predecessor succeeded, and a
// failure moves to PhaseFailed carrying the stage and the alert message. The
// Draft holding the form, the state and every stage output persists in the
// local store, so successive CLI invocations can drive successive stages.
// A file lock makes concurrent triggers fail with ErrStageInFlight.
package workflow

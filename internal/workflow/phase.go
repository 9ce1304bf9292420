package workflow

import (
	"errors"
	"fmt"
)

// Stage is one step of the submission workflow.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageRewrite    Stage = "rewrite"
	StageSynthesize Stage = "synthesize"
	StageUpload     Stage = "upload"
)

// Stages lists the stages in execution order.
func Stages() []Stage {
	return []Stage{StageExtract, StageRewrite, StageSynthesize, StageUpload}
}

func (s Stage) index() int {
	switch s {
	case StageExtract:
		return 0
	case StageRewrite:
		return 1
	case StageSynthesize:
		return 2
	case StageUpload:
		return 3
	default:
		return -1
	}
}

// Phase is the tagged workflow state.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseExtracting   Phase = "extracting"
	PhaseExtracted    Phase = "extracted"
	PhaseRewriting    Phase = "rewriting"
	PhaseRewritten    Phase = "rewritten"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseSynthesized  Phase = "synthesized"
	PhaseUploading    Phase = "uploading"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// running and done return the phases bracketing a stage.
func (s Stage) running() Phase {
	switch s {
	case StageExtract:
		return PhaseExtracting
	case StageRewrite:
		return PhaseRewriting
	case StageSynthesize:
		return PhaseSynthesizing
	case StageUpload:
		return PhaseUploading
	}
	return ""
}

func (s Stage) done() Phase {
	switch s {
	case StageExtract:
		return PhaseExtracted
	case StageRewrite:
		return PhaseRewritten
	case StageSynthesize:
		return PhaseSynthesized
	case StageUpload:
		return PhaseDone
	}
	return ""
}

// ErrStageInFlight is returned when a stage is triggered while another runs.
var ErrStageInFlight = errors.New("another workflow stage is still running")

// Failure is the payload of PhaseFailed.
type Failure struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// State is the workflow state. Failure is set only in PhaseFailed.
type State struct {
	Phase   Phase    `json:"phase"`
	Failure *Failure `json:"failure,omitempty"`
}

// InFlight reports whether a stage is running.
func (s State) InFlight() bool {
	switch s.Phase {
	case PhaseExtracting, PhaseRewriting, PhaseSynthesizing, PhaseUploading:
		return true
	case PhaseIdle, PhaseExtracted, PhaseRewritten, PhaseSynthesized, PhaseDone, PhaseFailed:
		return false
	}
	return false
}

// Running returns the in-flight stage, if any.
func (s State) Running() (Stage, bool) {
	for _, stage := range Stages() {
		if stage.running() == s.Phase {
			return stage, true
		}
	}
	return "", false
}

// completed returns the index of the last stage that succeeded, or -1.
func (s State) completed() int {
	switch s.Phase {
	case PhaseIdle, PhaseExtracting:
		return -1
	case PhaseExtracted, PhaseRewriting:
		return 0
	case PhaseRewritten, PhaseSynthesizing:
		return 1
	case PhaseSynthesized, PhaseUploading:
		return 2
	case PhaseDone:
		return 3
	case PhaseFailed:
		if s.Failure == nil {
			return -1
		}
		return s.Failure.Stage.index() - 1
	}
	return -1
}

// Succeeded reports whether stage has completed and its output is current.
func (s State) Succeeded(stage Stage) bool {
	idx := stage.index()
	return idx >= 0 && s.completed() >= idx
}

// Allowed reports whether stage may be triggered now. Extraction is always
// available when nothing runs; every later stage needs its immediate
// predecessor to be the last success.
func (s State) Allowed(stage Stage) bool {
	if s.InFlight() {
		return false
	}
	idx := stage.index()
	switch {
	case idx < 0:
		return false
	case idx == 0:
		return true
	default:
		return s.completed() == idx-1
	}
}

// TransitionError rejects an event that is invalid in the current phase.
type TransitionError struct {
	From  Phase
	Stage Stage
	Event string
}

func (e *TransitionError) Error() string {
	if e.Event == "begin" {
		if msg := preconditionMessage(e.Stage); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("cannot %s %s while %s", e.Event, e.Stage, e.From)
}

func preconditionMessage(stage Stage) string {
	switch stage {
	case StageRewrite:
		return "No YouTube transcript available"
	case StageSynthesize:
		return "No enhanced transcript available for TTS conversion"
	case StageUpload:
		return "Missing audio file or podcast ID for upload"
	}
	return ""
}

// Begin moves into the running phase of stage.
func (s State) Begin(stage Stage) (State, error) {
	if s.InFlight() {
		return s, ErrStageInFlight
	}
	if !s.Allowed(stage) {
		return s, &TransitionError{From: s.Phase, Stage: stage, Event: "begin"}
	}
	return State{Phase: stage.running()}, nil
}

// Complete records the success of the running stage.
func (s State) Complete(stage Stage) (State, error) {
	if stage.index() < 0 || s.Phase != stage.running() {
		return s, &TransitionError{From: s.Phase, Stage: stage, Event: "complete"}
	}
	return State{Phase: stage.done()}, nil
}

// Fail records the failure of the running stage.
func (s State) Fail(stage Stage, reason string) (State, error) {
	if stage.index() < 0 || s.Phase != stage.running() {
		return s, &TransitionError{From: s.Phase, Stage: stage, Event: "fail"}
	}
	return State{Phase: PhaseFailed, Failure: &Failure{Stage: stage, Reason: reason}}, nil
}

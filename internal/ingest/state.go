package ingest

import (
	"fmt"
)

// State is the position of one upload in the pipeline.
type State string

const (
	StateReceived   State = "received"
	StateValidated  State = "validated"
	StateTranscoded State = "transcoded"
	StateUploaded   State = "uploaded"
	StatePersisted  State = "persisted"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
)

// Stage names the step being attempted. A stage moves the pipeline from its
// input state to its output state.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageTranscode Stage = "transcode"
	StageUpload    Stage = "upload"
	StagePersist   Stage = "persist"
)

var stageFlow = map[Stage]struct{ from, to State }{
	StageValidate:  {StateReceived, StateValidated},
	StageTranscode: {StateValidated, StateTranscoded},
	StageUpload:    {StateTranscoded, StateUploaded},
	StagePersist:   {StateUploaded, StatePersisted},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateRejected || s == StateFailed
}

// failureState is where a stage failure leads: bad input is rejected before
// validation completes, anything later is a processing failure.
func failureState(from State) State {
	if from == StateReceived {
		return StateRejected
	}
	return StateFailed
}

// StageError reports which stage ended the pipeline and in which terminal
// state. The wrapped error carries the caller-facing kind.
type StageError struct {
	Stage Stage
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest %s: %s stage: %v", e.State, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

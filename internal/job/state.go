package job

import (
	"encoding/json"
	"fmt"
)

// State represents the current lifecycle state of a job
type State int

// Job lifecycle state constants
const (
	// StateUnknown represents an unknown or invalid job state
	StateUnknown State = iota
	// StateCreated indicates the job has an identifier but no remote footprint
	StateCreated
	// StatePackaged indicates the payload and submission script are built
	StatePackaged
	// StateUploaded indicates both scripts are on the login node
	StateUploaded
	// StateSubmitted indicates the scheduler acknowledged the job
	StateSubmitted
	// StatePolling indicates the job is being watched in accounting output
	StatePolling
	// StateCompleted indicates the job finished and its artifact was retrieved
	StateCompleted
	// StatePollTimedOut indicates the job never appeared within the poll budget
	StatePollTimedOut
	// StateSubmissionFailed indicates the scheduler rejected the submission
	StateSubmissionFailed
	// StateRetrievalFailed indicates the job finished but its artifact could not be fetched
	StateRetrievalFailed
	// StateFailed indicates a failure before submission (packaging, rendering, upload)
	StateFailed
)

var stateNames = []string{
	"unknown",
	"created",
	"packaged",
	"uploaded",
	"submitted",
	"polling",
	"completed",
	"poll_timed_out",
	"submission_failed",
	"retrieval_failed",
	"failed",
}

// ParseState converts a string representation of a job state to State type
func ParseState(str string) (State, error) {
	for i, name := range stateNames {
		if name == str {
			return State(i), nil
		}
	}
	return State(0), fmt.Errorf("invalid job state: %s", str)
}

// MarshalJSON implements the json.Marshaler interface for State
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for State
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	state, err := ParseState(str)
	if err != nil {
		return err
	}

	*s = state
	return nil
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return stateNames[StateUnknown]
	}
	return stateNames[s]
}

// IsTerminal reports whether the state ends the lifecycle. Terminal states
// are final: a job is never resubmitted or retried.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StatePollTimedOut, StateSubmissionFailed, StateRetrievalFailed, StateFailed:
		return true
	}
	return false
}

// IsFailure reports whether the state is terminal and not Completed.
func (s State) IsFailure() bool {
	return s.IsTerminal() && s != StateCompleted
}

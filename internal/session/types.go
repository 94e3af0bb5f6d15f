package session

import (
	"fmt"
	"time"
)

// State is a call session's lifecycle stage. Dialing and agent startup run
// concurrently, so a session may skip session_starting when the agent is
// ready before the callee answers.
type State string

const (
	StateInitializing      State = "initializing"
	StateMetadataValidated State = "metadata_validated"
	StateDialing           State = "dialing"
	StateSessionStarting   State = "session_starting"
	StateActive            State = "active"
	StateTerminating       State = "terminating"
	StateEnded             State = "ended"
	StateFailed            State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateEnded || s == StateFailed }

// allowedTransitions encodes the forward edges of the lifecycle. Failed is
// reachable from any non-terminal state via Fail, not listed here.
var allowedTransitions = map[State][]State{
	StateInitializing:      {StateMetadataValidated},
	StateMetadataValidated: {StateDialing},
	StateDialing:           {StateSessionStarting, StateActive},
	StateSessionStarting:   {StateActive},
	StateActive:            {StateTerminating},
	StateTerminating:       {StateEnded},
}

// InvalidTransitionError reports a transition outside the lifecycle edges.
type InvalidTransitionError struct {
	RoomName string
	From     State
	To       State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("session %s: invalid transition %s -> %s", e.RoomName, e.From, e.To)
}

// CallSession is one outbound call's live registry entry, keyed by room name.
type CallSession struct {
	ID                  string    `json:"session_id"`
	RoomName            string    `json:"room_name"`
	DispatchID          string    `json:"dispatch_id"`
	PhoneNumber         string    `json:"phone_number"`
	CustomerName        string    `json:"customer_name"`
	State               State     `json:"state"`
	FailureReason       string    `json:"failure_reason,omitempty"`
	StartedAt           time.Time `json:"started_at"`
	LastTransitionAt    time.Time `json:"last_transition_at"`
	ParticipantIdentity string    `json:"participant_identity,omitempty"`
}

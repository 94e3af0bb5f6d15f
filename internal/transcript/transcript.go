package transcript

import (
	"encoding/json"
	"time"
)

// Roles recorded for conversation turns.
const (
	RoleAgent    = "assistant"
	RoleCustomer = "user"
)

// TurnMetrics carries the speaking-time instrumentation for one turn.
// Timestamps are seconds relative to the platform session clock; nil means
// the stamp was never recorded, which is distinct from a stamp of 0.
type TurnMetrics struct {
	StartedSpeakingAt *float64 `json:"started_speaking_at,omitempty"`
	StoppedSpeakingAt *float64 `json:"stopped_speaking_at,omitempty"`
}

// Stamp boxes a speaking timestamp.
func Stamp(v float64) *float64 { return &v }

// Turn is one recorded utterance by either party.
type Turn struct {
	Type        string       `json:"type"`
	Role        string       `json:"role"`
	Content     []string     `json:"content"`
	Interrupted bool         `json:"interrupted,omitempty"`
	Metrics     *TurnMetrics `json:"metrics,omitempty"`
}

// Conversation is the ordered turn history of one call.
type Conversation struct {
	Items []Turn `json:"items"`
}

// Record is the durable shape written once per call at shutdown: the full
// conversation plus the agent action log lines.
type Record struct {
	Transcript Conversation `json:"transcript"`
	CustomLog  []string     `json:"custom_log"`
}

// NewMessageTurn builds a message turn stamped with whichever speaking
// metrics were recorded.
func NewMessageTurn(role, content string, startedAt, stoppedAt *float64, interrupted bool) Turn {
	t := Turn{
		Type:        "message",
		Role:        role,
		Content:     []string{content},
		Interrupted: interrupted,
	}
	if startedAt != nil || stoppedAt != nil {
		t.Metrics = &TurnMetrics{StartedSpeakingAt: startedAt, StoppedSpeakingAt: stoppedAt}
	}
	return t
}

// Timestamp returns the filename token for time ts.
func Timestamp(ts time.Time) string {
	return ts.Format("20060102_150405")
}

// Marshal renders the record in the indented on-disk form.
func (r Record) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

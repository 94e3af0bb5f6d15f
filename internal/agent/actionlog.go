package agent

import (
	"fmt"
	"sync"
	"time"
)

// ActionKind identifies a discrete agent-invoked action.
type ActionKind string

const (
	ActionComplaint  ActionKind = "complaint"
	ActionReschedule ActionKind = "reschedule"
)

// ActionEntry is one ordered record of an invoked action. Entries are never
// mutated after append.
type ActionEntry struct {
	Kind     ActionKind `json:"kind"`
	Identity string     `json:"identity"`
	Payload  string     `json:"payload"`
	At       time.Time  `json:"at"`
}

// LogLine renders the entry in the on-disk custom_log form.
func (e ActionEntry) LogLine() string {
	switch e.Kind {
	case ActionComplaint:
		return fmt.Sprintf("[Complaint] %s: %s", e.Identity, e.Payload)
	case ActionReschedule:
		return fmt.Sprintf("[Reschedule] %s requested callback on %s", e.Identity, e.Payload)
	default:
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Identity, e.Payload)
	}
}

// ActionLog is the append-only action record for one call session. The
// session orchestrator owns the log; action handlers only append.
type ActionLog struct {
	mu      sync.Mutex
	entries []ActionEntry
}

func NewActionLog() *ActionLog { return &ActionLog{} }

func (l *ActionLog) Append(e ActionEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the entries in append order.
func (l *ActionLog) Entries() []ActionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActionEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lines renders the log for transcript persistence.
func (l *ActionLog) Lines() []string {
	entries := l.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.LogLine())
	}
	return lines
}

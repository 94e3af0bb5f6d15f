package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	complaintAck = "I'm sorry to hear that. I've logged your concern."

	// DefaultPlayoutCap bounds the end_call playout wait so a stuck audio
	// pipeline cannot stall teardown indefinitely.
	DefaultPlayoutCap = 30 * time.Second
)

// Actions exposes the three invocable actions to the dialog engine. It is
// stateless beyond the references it is bound to: the session-owned action
// log, the playout tracker, and the orchestrator's hangup trigger.
type Actions struct {
	log        *ActionLog
	identity   func() string
	playout    *Playout
	hangup     func(context.Context) error
	playoutCap time.Duration
	now        func() time.Time

	endOnce sync.Once
}

func NewActions(actionLog *ActionLog, identity func() string, playout *Playout, hangup func(context.Context) error, playoutCap time.Duration) *Actions {
	if playoutCap <= 0 {
		playoutCap = DefaultPlayoutCap
	}
	return &Actions{
		log:        actionLog,
		identity:   identity,
		playout:    playout,
		hangup:     hangup,
		playoutCap: playoutCap,
		now:        time.Now,
	}
}

// EndCall waits for the current utterance to finish playing out, then
// triggers room teardown. The hangup fires at most once; the playout wait is
// the one intentional blocking point inside an action handler.
func (a *Actions) EndCall(ctx context.Context) error {
	log.Printf("ending the call for %s", a.identity())

	if a.playout != nil {
		waitCtx, cancel := context.WithTimeout(ctx, a.playoutCap)
		defer cancel()
		if err := a.playout.Wait(waitCtx); err != nil {
			log.Printf("playout wait for %s interrupted: %v", a.identity(), err)
		}
	}

	var err error
	a.endOnce.Do(func() {
		err = a.hangup(ctx)
	})
	return err
}

// LogComplaint appends a complaint entry and returns the acknowledgement the
// agent should speak. The reason is stored verbatim; this never fails.
func (a *Actions) LogComplaint(reason string) string {
	entry := ActionEntry{
		Kind:     ActionComplaint,
		Identity: a.identity(),
		Payload:  reason,
		At:       a.now(),
	}
	a.log.Append(entry)
	log.Print(entry.LogLine())
	return complaintAck
}

// RescheduleCall appends a reschedule entry and returns an acknowledgement
// embedding the requested date verbatim. No date validation happens here.
func (a *Actions) RescheduleCall(date string) string {
	entry := ActionEntry{
		Kind:     ActionReschedule,
		Identity: a.identity(),
		Payload:  date,
		At:       a.now(),
	}
	a.log.Append(entry)
	log.Print(entry.LogLine())
	return fmt.Sprintf("No problem. I'll mark your preferred call-back date as %s.", date)
}

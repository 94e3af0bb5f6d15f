package agent

import (
	"context"
	"testing"
	"time"

	"github.com/antoniostano/duecall/internal/llm"
	"github.com/antoniostano/duecall/internal/transcript"
)

func newTestEngine(chat llm.Chatter, actionLog *ActionLog, hangup func(context.Context) error) *Engine {
	if hangup == nil {
		hangup = func(context.Context) error { return nil }
	}
	playout := NewPlayout()
	actions := NewActions(actionLog, identity("+15551234567"), playout, hangup, time.Second)
	return NewEngine(chat, CustomerContext{
		Name:      "Alex",
		AmountDue: "1000.00",
		DueDate:   "Unknown",
		Summary:   "No past conversation",
		Today:     "March 14, 2026",
	}, actions, playout)
}

func TestEngineStartRecordsGreeting(t *testing.T) {
	chat := llm.NewMock(llm.Message{Content: "Hi Alex, this is Joe from American Express Bank."})
	e := newTestEngine(chat, NewActionLog(), nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	hist := e.History()
	if len(hist) != 1 {
		t.Fatalf("history = %d turns, want 1", len(hist))
	}
	if hist[0].Role != transcript.RoleAgent {
		t.Fatalf("greeting role = %q, want agent", hist[0].Role)
	}
}

func TestEngineHandlesUtteranceAndToolCall(t *testing.T) {
	chat := llm.NewMock(
		llm.Message{Content: "Hello!"},
		llm.Message{ToolCalls: []llm.ToolCall{{
			ID:        "call_1",
			Name:      "log_complaint",
			Arguments: `{"reason":"billing error"}`,
		}}},
		llm.Message{Content: "I'm sorry about that, I've logged it."},
	)
	actionLog := NewActionLog()
	e := newTestEngine(chat, actionLog, nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err := e.HandleUtterance(context.Background(), Utterance{
		Text:      "This charge is wrong, I already paid!",
		StartedAt: 3.5,
		StoppedAt: 6.0,
	})
	if err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}

	entries := actionLog.Entries()
	if len(entries) != 1 || entries[0].Kind != ActionComplaint || entries[0].Payload != "billing error" {
		t.Fatalf("unexpected action log: %+v", entries)
	}

	hist := e.History()
	// greeting, customer turn, agent reply
	if len(hist) != 3 {
		t.Fatalf("history = %d turns, want 3", len(hist))
	}
	customer := hist[1]
	if customer.Role != transcript.RoleCustomer || customer.Metrics == nil ||
		customer.Metrics.StartedSpeakingAt == nil || *customer.Metrics.StartedSpeakingAt != 3.5 {
		t.Fatalf("customer turn = %+v", customer)
	}
	if hist[2].Role != transcript.RoleAgent || hist[2].Content[0] != "I'm sorry about that, I've logged it." {
		t.Fatalf("agent turn = %+v", hist[2])
	}
}

func TestEngineEndCallToolTriggersHangup(t *testing.T) {
	chat := llm.NewMock(
		llm.Message{Content: "Hello!"},
		llm.Message{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "end_call", Arguments: `{}`}}},
		llm.Message{Content: "Goodbye."},
	)
	hungUp := make(chan struct{}, 1)
	e := newTestEngine(chat, NewActionLog(), func(context.Context) error {
		hungUp <- struct{}{}
		return nil
	})

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := e.HandleUtterance(context.Background(), Utterance{Text: "Thanks, bye."}); err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}

	select {
	case <-hungUp:
	default:
		t.Fatalf("end_call tool did not trigger hangup")
	}
}

func TestEngineRecordsInterruptedTurns(t *testing.T) {
	chat := llm.NewMock(llm.Message{Content: "Hello!"}, llm.Message{Content: "Sure."})
	e := newTestEngine(chat, NewActionLog(), nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := e.HandleUtterance(context.Background(), Utterance{Text: "Wait--", Interrupted: true}); err != nil {
		t.Fatalf("HandleUtterance() error = %v", err)
	}

	hist := e.History()
	if !hist[1].Interrupted {
		t.Fatalf("interrupted flag lost: %+v", hist[1])
	}
}

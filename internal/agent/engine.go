package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/antoniostano/duecall/internal/llm"
	"github.com/antoniostano/duecall/internal/transcript"
)

// maxToolRounds bounds the tool-call loop within a single customer turn.
const maxToolRounds = 4

// Utterance is one recognized customer utterance delivered by the platform,
// with its speaking-time metrics.
type Utterance struct {
	Text        string
	StartedAt   float64
	StoppedAt   float64
	Interrupted bool
}

// Engine drives the scripted conversation over one call. It consumes
// customer utterances as text, asks the model for the next agent turn,
// executes model-chosen actions, and accumulates the turn history that the
// orchestrator persists at shutdown. All state is scoped to one call.
type Engine struct {
	chat    llm.Chatter
	actions *Actions
	playout *Playout
	speak   Speaker

	mu      sync.Mutex
	msgs    []llm.Message
	history []transcript.Turn
	started time.Time
	running bool
}

func NewEngine(chat llm.Chatter, cc CustomerContext, actions *Actions, playout *Playout) *Engine {
	return &Engine{
		chat:    chat,
		actions: actions,
		playout: playout,
		msgs: []llm.Message{
			{Role: llm.RoleSystem, Content: Instructions(cc)},
		},
	}
}

// Speaker hands agent text to the platform's audio pipeline. It returns a
// channel that closes once the utterance has finished playing out, so the
// engine can keep the playout tracker honest for end_call's ordering
// guarantee.
type Speaker func(ctx context.Context, text string) (played <-chan struct{}, err error)

// SetSpeaker installs the platform hook that turns agent text into audio.
// Without one the engine still records turns (useful for tests and dry runs).
func (e *Engine) SetSpeaker(fn Speaker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speak = fn
}

// Start brings the engine up and produces the opening agent turn. It returns
// once the engine is running; the orchestrator treats that as the
// session-starting half of call activation.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.started = time.Now()
	e.running = true
	e.mu.Unlock()

	return e.advance(ctx, llm.Message{
		Role:    llm.RoleUser,
		Content: "(The call has connected. Greet the customer and begin.)",
	})
}

// HandleUtterance records a customer turn and produces the agent's response,
// executing any model-chosen actions along the way.
func (e *Engine) HandleUtterance(ctx context.Context, u Utterance) error {
	turn := transcript.NewMessageTurn(transcript.RoleCustomer, u.Text,
		transcript.Stamp(u.StartedAt), transcript.Stamp(u.StoppedAt), u.Interrupted)
	e.appendTurn(turn)
	return e.advance(ctx, llm.Message{Role: llm.RoleUser, Content: u.Text})
}

// History returns a copy of the accumulated turn history.
func (e *Engine) History() []transcript.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]transcript.Turn, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) advance(ctx context.Context, input llm.Message) error {
	e.mu.Lock()
	e.msgs = append(e.msgs, input)
	msgs := append([]llm.Message(nil), e.msgs...)
	e.mu.Unlock()

	tools := toolDefinitions()
	for round := 0; round <= maxToolRounds; round++ {
		reply, err := e.chat.Chat(ctx, msgs, tools)
		if err != nil {
			return fmt.Errorf("agent turn: %w", err)
		}

		e.mu.Lock()
		e.msgs = append(e.msgs, reply)
		e.mu.Unlock()
		msgs = append(msgs, reply)

		if len(reply.ToolCalls) == 0 {
			if reply.Content != "" {
				e.emitAgentTurn(ctx, reply.Content)
			}
			return nil
		}

		for _, tc := range reply.ToolCalls {
			result, err := e.execute(ctx, tc)
			if err != nil {
				log.Printf("action %s failed: %v", tc.Name, err)
				result = "action failed"
			}
			toolMsg := llm.Message{Role: llm.RoleTool, ToolCallID: tc.ID, Content: result}
			e.mu.Lock()
			e.msgs = append(e.msgs, toolMsg)
			e.mu.Unlock()
			msgs = append(msgs, toolMsg)
		}
	}
	return fmt.Errorf("agent turn: tool loop exceeded %d rounds", maxToolRounds)
}

func (e *Engine) execute(ctx context.Context, tc llm.ToolCall) (string, error) {
	switch tc.Name {
	case "end_call":
		if err := e.actions.EndCall(ctx); err != nil {
			return "", err
		}
		return "call ended", nil
	case "log_complaint":
		var args struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			return "", fmt.Errorf("decode log_complaint args: %w", err)
		}
		return e.actions.LogComplaint(args.Reason), nil
	case "reschedule_call":
		var args struct {
			Date string `json:"date"`
		}
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			return "", fmt.Errorf("decode reschedule_call args: %w", err)
		}
		return e.actions.RescheduleCall(args.Date), nil
	default:
		return "", fmt.Errorf("unknown action %q", tc.Name)
	}
}

func (e *Engine) emitAgentTurn(ctx context.Context, text string) {
	startedAt := e.elapsed()
	turn := transcript.NewMessageTurn(transcript.RoleAgent, text, transcript.Stamp(startedAt), nil, false)
	e.appendTurn(turn)

	e.mu.Lock()
	speak := e.speak
	e.mu.Unlock()

	spoken := SanitizeSpokenText(text)
	if speak != nil && spoken != "" {
		finish := e.playout.Begin()
		played, err := speak(ctx, spoken)
		if err != nil {
			log.Printf("speak failed: %v", err)
			finish()
			return
		}
		go func() {
			if played != nil {
				<-played
			}
			finish()
		}()
	}
}

func (e *Engine) appendTurn(t transcript.Turn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, t)
}

func (e *Engine) elapsed() float64 {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if started.IsZero() {
		return 0
	}
	return time.Since(started).Seconds()
}

func toolDefinitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        "end_call",
			Description: "End the call when the conversation naturally concludes or the customer asks to hang up.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
		{
			Name:        "log_complaint",
			Description: "Record a customer complaint for follow-up.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"reason":{"type":"string","description":"The customer's complaint, verbatim."}},"required":["reason"]}`),
		},
		{
			Name:        "reschedule_call",
			Description: "Record the customer's preferred call-back date.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"date":{"type":"string","description":"Requested call-back date, as spoken."}},"required":["date"]}`),
		},
	}
}

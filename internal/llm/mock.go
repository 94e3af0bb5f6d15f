package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Mock provides deterministic local replies when no provider key is
// configured. Scripted responses are consumed in order; once exhausted it
// echoes the last user message.
type Mock struct {
	mu      sync.Mutex
	scripts []Message
	Calls   []Message
}

func NewMock(scripts ...Message) *Mock {
	return &Mock{scripts: scripts}
}

func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := m.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (m *Mock) Chat(ctx context.Context, messages []Message, _ []Tool) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(messages) > 0 {
		m.Calls = append(m.Calls, messages[len(messages)-1])
	}

	if len(m.scripts) > 0 {
		next := m.scripts[0]
		m.scripts = m.scripts[1:]
		if next.Role == "" {
			next.Role = RoleAssistant
		}
		return next, nil
	}

	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if last == "" {
		last = "I am listening."
	}
	return Message{Role: RoleAssistant, Content: fmt.Sprintf("I heard you: %s", last)}, nil
}

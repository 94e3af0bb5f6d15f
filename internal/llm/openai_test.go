package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newCompletionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handler)
	return httptest.NewServer(mux)
}

func TestOpenAIClientCompleteRetriesRetryableStatus(t *testing.T) {
	var calls int32
	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "all good"}},
			},
		})
	})
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", 0.8)
	got, err := c.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "all good" {
		t.Fatalf("Complete() = %q, want %q", got, "all good")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestOpenAIClientDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
	})
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", 0.8)
	if _, err := c.Complete(context.Background(), "ping"); err == nil {
		t.Fatalf("Complete() expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestOpenAIClientChatReturnsToolCalls(t *testing.T) {
	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{
							"id":   "call_1",
							"type": "function",
							"function": map[string]any{
								"name":      "log_complaint",
								"arguments": `{"reason":"billing error"}`,
							},
						},
					},
				}},
			},
		})
	})
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", 0.8)
	msg, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, []Tool{
		{Name: "log_complaint", Description: "log it", Parameters: json.RawMessage(`{"type":"object"}`)},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(msg.ToolCalls))
	}
	tc := msg.ToolCalls[0]
	if tc.Name != "log_complaint" || tc.Arguments != `{"reason":"billing error"}` {
		t.Fatalf("unexpected tool call: %+v", tc)
	}
}

func TestMockScriptsConsumedInOrder(t *testing.T) {
	m := NewMock(
		Message{Content: "first"},
		Message{Content: "second"},
	)
	for i, want := range []string{"first", "second"} {
		got, err := m.Complete(context.Background(), "x")
		if err != nil {
			t.Fatalf("Complete() #%d error = %v", i, err)
		}
		if got != want {
			t.Fatalf("Complete() #%d = %q, want %q", i, got, want)
		}
	}
	got, err := m.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "I heard you: hello" {
		t.Fatalf("fallback = %q", got)
	}
}

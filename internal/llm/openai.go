package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/antoniostano/duecall/internal/reliability"
)

const (
	maxAttempts = 3
	backoffBase = 500 * time.Millisecond
	backoffCap  = 5 * time.Second
)

// OpenAIClient talks to any OpenAI-compatible completion endpoint. The base
// URL is configurable so Gemini/OpenRouter-style compatibility layers work.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIClient(apiKey, baseURL, model string, temperature float32) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []Tool) (Message, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toOpenAIMessages(messages),
		Tools:       toOpenAITools(tools),
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt-1, backoffBase, backoffCap)
			select {
			case <-ctx.Done():
				return Message{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			if retryableAPIError(err) {
				continue
			}
			return Message{}, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Message{}, errors.New("chat completion: empty choice list")
		}
		return fromOpenAIMessage(resp.Choices[0].Message), nil
	}
	return Message{}, fmt.Errorf("chat completion after %d attempts: %w", maxAttempts, lastErr)
}

func retryableAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	return false
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		converted := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, converted)
	}
	return out
}

func toOpenAITools(tools []Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) Message {
	out := Message{Role: m.Role, Content: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

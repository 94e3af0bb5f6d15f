package dispatch

import (
	"context"
	"strings"
	"time"
)

// Job asks an agent worker to run one outbound call. Metadata travels as the
// raw string handed to us by the caller; the worker parses and validates it.
type Job struct {
	DispatchID string    `json:"dispatch_id"`
	RoomName   string    `json:"room_name"`
	AgentName  string    `json:"agent_name"`
	Metadata   string    `json:"metadata"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Handler processes one dispatched job.
type Handler func(ctx context.Context, job Job) error

// Queue moves dispatch jobs from the API to agent workers.
type Queue interface {
	Publish(ctx context.Context, job Job) error
	// Consume blocks delivering jobs to the handler until ctx is done or the
	// queue closes. A handler error drops the job; dial work is never retried.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// NewQueue creates an AMQP-backed queue when configured, otherwise in-memory.
func NewQueue(amqpURL string) (Queue, error) {
	if strings.TrimSpace(amqpURL) == "" {
		return NewInMemoryQueue(defaultBuffer), nil
	}
	return NewAMQPQueue(amqpURL, defaultExchange, defaultQueueName, defaultRoutingKey)
}

package dispatch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const defaultBuffer = 64

var ErrQueueClosed = errors.New("dispatch queue closed")

// InMemoryQueue is a single-process queue for local/dev use.
type InMemoryQueue struct {
	jobs chan Job

	mu     sync.Mutex
	closed bool
}

func NewInMemoryQueue(buffer int) *InMemoryQueue {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &InMemoryQueue{jobs: make(chan Job, buffer)}
}

func (q *InMemoryQueue) Publish(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-q.jobs:
			if !ok {
				return nil
			}
			if err := handler(ctx, job); err != nil {
				log.Printf("dispatch: job %s failed: %v", job.DispatchID, err)
			}
		}
	}
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

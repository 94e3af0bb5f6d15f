package agent

import (
	"context"
	"sync"
)

// Playout tracks whether an agent utterance is currently being played out by
// the platform's audio pipeline. The engine begins an utterance when it hands
// text to the platform; the platform adapter finishes it when audio drains.
type Playout struct {
	mu      sync.Mutex
	current chan struct{}
}

func NewPlayout() *Playout { return &Playout{} }

// Begin marks an utterance as playing and returns its finish func. Calling
// finish more than once is harmless. Beginning a new utterance finishes the
// previous one implicitly (the pipeline plays one utterance at a time).
func (p *Playout) Begin() (finish func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		close(p.current)
	}
	done := make(chan struct{})
	p.current = done

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			close(done)
			if p.current == done {
				p.current = nil
			}
		})
	}
}

// Wait blocks until the in-flight utterance (if any) finishes playing or ctx
// is done.
func (p *Playout) Wait(ctx context.Context) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()
	if current == nil {
		return nil
	}
	select {
	case <-current:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

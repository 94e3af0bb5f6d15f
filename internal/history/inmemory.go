package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process call history for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []CallRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveCall(_ context.Context, record CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.EndedAt.IsZero() {
		record.EndedAt = time.Now().UTC()
	}
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) RecentCalls(_ context.Context, limit int) ([]CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastN(s.records, limit), nil
}

func (s *InMemoryStore) CallsForPhone(_ context.Context, phoneNumber string, limit int) ([]CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []CallRecord
	for _, r := range s.records {
		if r.PhoneNumber == phoneNumber {
			matched = append(matched, r)
		}
	}
	return lastN(matched, limit), nil
}

func (s *InMemoryStore) Close() error { return nil }

// lastN copies the newest records, oldest first.
func lastN(records []CallRecord, limit int) []CallRecord {
	if len(records) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	out := make([]CallRecord, 0, limit)
	for i := len(records) - limit; i < len(records); i++ {
		out = append(out, records[i])
	}
	return out
}

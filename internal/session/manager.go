package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Manager is the in-process registry of live call sessions, keyed by room
// name. It validates every state transition against the call lifecycle and
// prunes terminal entries after a retention window.
type Manager struct {
	mu        sync.RWMutex
	byRoom    map[string]*CallSession
	retention time.Duration
	onFail    func(*CallSession)
}

func NewManager(retention time.Duration) *Manager {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	return &Manager{
		byRoom:    make(map[string]*CallSession),
		retention: retention,
	}
}

// SetFailHook registers a callback invoked after a session enters failed.
func (m *Manager) SetFailHook(hook func(*CallSession)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFail = hook
}

// Register creates an initializing session for a room. Registering a room
// that already has a non-terminal session returns the existing snapshot.
func (m *Manager) Register(roomName, dispatchID, phoneNumber, customerName string) *CallSession {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byRoom[roomName]; ok && !existing.State.Terminal() {
		return clone(existing)
	}

	s := &CallSession{
		ID:               uuid.NewString(),
		RoomName:         roomName,
		DispatchID:       dispatchID,
		PhoneNumber:      phoneNumber,
		CustomerName:     customerName,
		State:            StateInitializing,
		StartedAt:        now,
		LastTransitionAt: now,
	}
	m.byRoom[roomName] = s
	return clone(s)
}

func (m *Manager) Get(roomName string) (*CallSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byRoom[roomName]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// Transition moves a session along a lifecycle edge. Transitions out of a
// terminal state or outside the edge set are rejected.
func (m *Manager) Transition(roomName string, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byRoom[roomName]
	if !ok {
		return ErrNotFound
	}
	if !transitionAllowed(s.State, to) {
		return &InvalidTransitionError{RoomName: roomName, From: s.State, To: to}
	}
	s.State = to
	s.LastTransitionAt = time.Now().UTC()
	return nil
}

// Fail moves a session to failed from any non-terminal state.
func (m *Manager) Fail(roomName, reason string) error {
	m.mu.Lock()
	s, ok := m.byRoom[roomName]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if s.State.Terminal() {
		from := s.State
		m.mu.Unlock()
		return &InvalidTransitionError{RoomName: roomName, From: from, To: StateFailed}
	}
	s.State = StateFailed
	s.FailureReason = reason
	s.LastTransitionAt = time.Now().UTC()
	snapshot := clone(s)
	hook := m.onFail
	m.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
	return nil
}

// SetParticipant records the SIP participant identity once the dial answers.
func (m *Manager) SetParticipant(roomName, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byRoom[roomName]
	if !ok {
		return ErrNotFound
	}
	s.ParticipantIdentity = identity
	return nil
}

// ActiveCount counts sessions in any non-terminal state.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.byRoom {
		if !s.State.Terminal() {
			count++
		}
	}
	return count
}

// List returns snapshots of every tracked session, oldest first.
func (m *Manager) List() []*CallSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*CallSession, 0, len(m.byRoom))
	for _, s := range m.byRoom {
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// StartReaper periodically drops terminal sessions older than the retention
// window so the registry only reflects recent activity.
func (m *Manager) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.reapTerminal()
			}
		}
	}()
}

func (m *Manager) reapTerminal() {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	for room, s := range m.byRoom {
		if s.State.Terminal() && now.Sub(s.LastTransitionAt) >= m.retention {
			delete(m.byRoom, room)
		}
	}
}

func transitionAllowed(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func clone(s *CallSession) *CallSession {
	c := *s
	return &c
}

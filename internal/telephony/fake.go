package telephony

import (
	"context"
	"sync"
)

// Fake is an in-process Client for tests. Dial behavior is scriptable and
// room events can be injected after the watch begins.
type Fake struct {
	mu       sync.Mutex
	DialErr  error
	rooms    map[string]chan RoomEvent
	created  []string
	deleted  []string
	dialed   []SIPParticipantRequest
	spoken   []SpokenUtterance
	// JoinOnDial emits a participant_joined event for the dialed identity as
	// soon as the dial succeeds, mimicking wait_until_answered semantics.
	JoinOnDial bool
}

func NewFake() *Fake {
	return &Fake{rooms: make(map[string]chan RoomEvent), JoinOnDial: true}
}

func (f *Fake) CreateRoom(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return nil
}

func (f *Fake) DeleteRoom(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	if ch, ok := f.rooms[name]; ok {
		select {
		case ch <- RoomEvent{Kind: EventRoomFinished, RoomName: name}:
		default:
		}
	}
	return nil
}

func (f *Fake) CreateSIPParticipant(_ context.Context, req SIPParticipantRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialed = append(f.dialed, req)
	if f.DialErr != nil {
		return f.DialErr
	}
	if f.JoinOnDial {
		if ch, ok := f.rooms[req.RoomName]; ok {
			select {
			case ch <- RoomEvent{
				Kind:                EventParticipantJoined,
				RoomName:            req.RoomName,
				ParticipantIdentity: req.ParticipantIdentity,
			}:
			default:
			}
		}
	}
	return nil
}

func (f *Fake) WatchRoom(ctx context.Context, room string) (<-chan RoomEvent, error) {
	f.mu.Lock()
	ch, ok := f.rooms[room]
	if !ok {
		ch = make(chan RoomEvent, 16)
		f.rooms[room] = ch
	}
	f.mu.Unlock()

	out := make(chan RoomEvent, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, open := <-ch:
				if !open {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Kind == EventRoomFinished {
					return
				}
			}
		}
	}()
	return out, nil
}

// Speak records the utterance and reports playout as instantly finished.
func (f *Fake) Speak(_ context.Context, room, text string) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, SpokenUtterance{Room: room, Text: text})
	played := make(chan struct{})
	close(played)
	return played, nil
}

// Emit injects a room event, creating the room feed if needed.
func (f *Fake) Emit(room string, ev RoomEvent) {
	f.mu.Lock()
	ch, ok := f.rooms[room]
	if !ok {
		ch = make(chan RoomEvent, 16)
		f.rooms[room] = ch
	}
	f.mu.Unlock()
	ch <- ev
}

// SpokenUtterance is one Speak call recorded by the fake.
type SpokenUtterance struct {
	Room string
	Text string
}

func (f *Fake) Spoken() []SpokenUtterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SpokenUtterance, len(f.spoken))
	copy(out, f.spoken)
	return out
}

func (f *Fake) Dialed() []SIPParticipantRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SIPParticipantRequest, len(f.dialed))
	copy(out, f.dialed)
	return out
}

func (f *Fake) DeletedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

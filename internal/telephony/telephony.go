package telephony

import (
	"context"
	"fmt"
)

// SIPParticipantRequest asks the platform to dial out through a trunk and
// place the callee into a room.
type SIPParticipantRequest struct {
	RoomName            string `json:"room_name"`
	TrunkID             string `json:"sip_trunk_id"`
	CallTo              string `json:"sip_call_to"`
	ParticipantIdentity string `json:"participant_identity"`
	WaitUntilAnswered   bool   `json:"wait_until_answered"`
}

// RoomEventKind enumerates the room lifecycle events the coordinator needs.
type RoomEventKind string

const (
	EventParticipantJoined RoomEventKind = "participant_joined"
	EventParticipantLeft   RoomEventKind = "participant_left"
	EventTranscription     RoomEventKind = "transcription"
	EventRoomFinished      RoomEventKind = "room_finished"
)

// RoomEvent is one platform-side room notification. Transcription events
// carry the platform's final STT output plus speaking timestamps relative to
// room start.
type RoomEvent struct {
	Kind                RoomEventKind `json:"event"`
	RoomName            string        `json:"room_name"`
	ParticipantIdentity string        `json:"participant_identity,omitempty"`
	Text                string        `json:"text,omitempty"`
	StartedSpeakingAt   float64       `json:"started_speaking_at,omitempty"`
	StoppedSpeakingAt   float64       `json:"stopped_speaking_at,omitempty"`
	Interrupted         bool          `json:"interrupted,omitempty"`
}

// Client is the managed room/SIP platform boundary. Session media (STT, TTS,
// noise cancellation) stays entirely on the platform side of this interface.
type Client interface {
	CreateRoom(ctx context.Context, name string) error
	DeleteRoom(ctx context.Context, name string) error
	// CreateSIPParticipant blocks until the platform reports the call
	// answered (WaitUntilAnswered) or fails with a *DialError.
	CreateSIPParticipant(ctx context.Context, req SIPParticipantRequest) error
	// WatchRoom streams room events until ctx is done or the room finishes.
	// The returned channel is closed by the client.
	WatchRoom(ctx context.Context, room string) (<-chan RoomEvent, error)
	// Speak hands agent text to the room's speech pipeline. The returned
	// channel closes once the utterance has finished playing out.
	Speak(ctx context.Context, room, text string) (played <-chan struct{}, err error)
}

// DialError carries the full provider diagnostics for a failed outbound call.
// Dials are never retried; this is reported and the session is torn down.
type DialError struct {
	Code          string `json:"code"`
	Status        string `json:"status"`
	SIPStatusCode int    `json:"sip_status_code"`
	SIPStatus     string `json:"sip_status"`
	PhoneNumber   string `json:"phone_number"`
	TrunkID       string `json:"trunk_id"`
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s via trunk %s failed: %s (%s, sip %d %s)",
		e.PhoneNumber, e.TrunkID, e.Status, e.Code, e.SIPStatusCode, e.SIPStatus)
}

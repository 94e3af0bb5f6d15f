package history

import (
	"context"
	"time"
)

// CallRecord stores one completed (or failed) outbound call.
type CallRecord struct {
	ID              string    `json:"id"`
	RoomName        string    `json:"room_name"`
	DispatchID      string    `json:"dispatch_id"`
	PhoneNumber     string    `json:"phone_number"`
	CustomerName    string    `json:"customer_name"`
	Outcome         string    `json:"outcome"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	TranscriptPath  string    `json:"transcript_path,omitempty"`
	PredictionPath  string    `json:"prediction_path,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
}

// Store persists and retrieves call history.
type Store interface {
	SaveCall(ctx context.Context, record CallRecord) error
	RecentCalls(ctx context.Context, limit int) ([]CallRecord, error)
	CallsForPhone(ctx context.Context, phoneNumber string, limit int) ([]CallRecord, error)
	Close() error
}

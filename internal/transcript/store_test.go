package transcript

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStoreWriteReadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	rec := Record{
		Transcript: Conversation{Items: []Turn{
			NewMessageTurn(RoleAgent, "Hello, am I speaking with Alex?", Stamp(1.0), Stamp(2.5), false),
			NewMessageTurn(RoleCustomer, "Yes, speaking.", Stamp(3.0), Stamp(4.0), true),
		}},
		CustomLog: []string{"[Complaint] +15551234567: billing error"},
	}

	path, err := s.Write("call-42", rec)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Base(path) != "transcript_call-42_20260314_092653.json" {
		t.Fatalf("unexpected filename: %s", path)
	}

	got, err := s.Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Transcript.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Transcript.Items))
	}
	if got.Transcript.Items[1].Role != RoleCustomer || !got.Transcript.Items[1].Interrupted {
		t.Fatalf("unexpected second turn: %+v", got.Transcript.Items[1])
	}
	m := got.Transcript.Items[0].Metrics
	if m == nil || m.StartedSpeakingAt == nil || *m.StartedSpeakingAt != 1.0 {
		t.Fatalf("metrics lost on round trip: %+v", got.Transcript.Items[0])
	}
	if len(got.CustomLog) != 1 || !strings.HasPrefix(got.CustomLog[0], "[Complaint]") {
		t.Fatalf("custom log lost: %v", got.CustomLog)
	}
}

func TestStoreListFiltersAndSorts(t *testing.T) {
	s := NewStore(t.TempDir())

	s.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 1, 0, time.UTC) }
	if _, err := s.Write("b-room", Record{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 2, 0, time.UTC) }
	if _, err := s.Write("a-room", Record{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("len(names) = %d, want 2", len(names))
	}
	if names[0] != "transcript_a-room_20260314_100002.json" {
		t.Fatalf("names[0] = %q", names[0])
	}
}

func TestStoreListMissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"))
	names, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("names = %v, want empty", names)
	}
}

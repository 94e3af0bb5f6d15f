package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestCreateSIPParticipantMapsProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sip/participants" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"sip_trunk_unavailable","message":"no response from trunk","sip_status_code":503,"sip_status":"Service Unavailable"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key")
	err := c.CreateSIPParticipant(context.Background(), SIPParticipantRequest{
		RoomName:            "call-1",
		TrunkID:             "ST_abc",
		CallTo:              "+15551234567",
		ParticipantIdentity: "+15551234567",
		WaitUntilAnswered:   true,
	})

	var dialErr *DialError
	if !errors.As(err, &dialErr) {
		t.Fatalf("error = %v, want *DialError", err)
	}
	if dialErr.Code != "sip_trunk_unavailable" || dialErr.SIPStatusCode != 503 {
		t.Fatalf("unexpected diagnostics: %+v", dialErr)
	}
	if dialErr.PhoneNumber != "+15551234567" || dialErr.TrunkID != "ST_abc" {
		t.Fatalf("attempted pair missing: %+v", dialErr)
	}
}

func TestCreateSIPParticipantSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key")
	if err := c.CreateSIPParticipant(context.Background(), SIPParticipantRequest{RoomName: "call-1"}); err != nil {
		t.Fatalf("CreateSIPParticipant() error = %v", err)
	}
}

func TestSpeakPostsTextAndSignalsPlayout(t *testing.T) {
	type speakBody struct {
		Text string `json:"text"`
	}
	got := make(chan speakBody, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rooms/call-1/speak" {
			http.NotFound(w, r)
			return
		}
		var body speakBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key")
	played, err := c.Speak(context.Background(), "call-1", "Hello there.")
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	select {
	case <-played:
	case <-time.After(5 * time.Second):
		t.Fatal("playout never signaled")
	}
	body := <-got
	if body.Text != "Hello there." {
		t.Fatalf("posted text = %q", body.Text)
	}
}

func TestWatchRoomStreamsEventsUntilRoomFinished(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(RoomEvent{Kind: EventParticipantJoined, RoomName: "call-1", ParticipantIdentity: "+15551234567"})
		_ = conn.WriteJSON(RoomEvent{Kind: EventRoomFinished, RoomName: "call-1"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := c.WatchRoom(ctx, "call-1")
	if err != nil {
		t.Fatalf("WatchRoom() error = %v", err)
	}

	first := <-events
	if first.Kind != EventParticipantJoined || first.ParticipantIdentity != "+15551234567" {
		t.Fatalf("first event = %+v", first)
	}
	second := <-events
	if second.Kind != EventRoomFinished {
		t.Fatalf("second event = %+v", second)
	}
	if _, open := <-events; open {
		t.Fatalf("events channel should close after room_finished")
	}
}

package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const eventReadDeadline = 120 * time.Second

// HTTPClient implements Client against the platform's JSON-over-HTTP control
// API plus a websocket room-event feed.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	dialer  websocket.Dialer
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client: &http.Client{
			// CreateSIPParticipant holds the connection until the callee
			// answers; ringing alone can take tens of seconds.
			Timeout: 2 * time.Minute,
		},
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (c *HTTPClient) CreateRoom(ctx context.Context, name string) error {
	return c.post(ctx, "/v1/rooms", map[string]string{"name": name}, nil)
}

func (c *HTTPClient) DeleteRoom(ctx context.Context, name string) error {
	return c.post(ctx, "/v1/rooms/delete", map[string]string{"name": name}, nil)
}

func (c *HTTPClient) CreateSIPParticipant(ctx context.Context, req SIPParticipantRequest) error {
	err := c.post(ctx, "/v1/sip/participants", req, nil)
	if err == nil {
		return nil
	}
	if provider, ok := err.(*providerError); ok {
		return &DialError{
			Code:          provider.Code,
			Status:        provider.Message,
			SIPStatusCode: provider.SIPStatusCode,
			SIPStatus:     provider.SIPStatus,
			PhoneNumber:   req.CallTo,
			TrunkID:       req.TrunkID,
		}
	}
	return fmt.Errorf("create sip participant: %w", err)
}

// Speak posts agent text to the room's speech endpoint. The platform holds
// the request open until the utterance drains, so the post runs in the
// background and the returned channel closes when it completes.
func (c *HTTPClient) Speak(ctx context.Context, room, text string) (<-chan struct{}, error) {
	played := make(chan struct{})
	go func() {
		defer close(played)
		path := "/v1/rooms/" + url.PathEscape(room) + "/speak"
		if err := c.post(ctx, path, map[string]string{"text": text}, nil); err != nil {
			log.Printf("speak in room %s failed: %v", room, err)
		}
	}()
	return played, nil
}

func (c *HTTPClient) WatchRoom(ctx context.Context, room string) (<-chan RoomEvent, error) {
	wsURL, err := c.eventsURL(room)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("watch room %s: %w", room, err)
	}

	events := make(chan RoomEvent, 16)
	go func() {
		defer close(events)
		defer conn.Close()
		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(eventReadDeadline))
			var ev RoomEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					log.Printf("room %s event feed closed: %v", room, err)
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Kind == EventRoomFinished {
				return
			}
		}
	}()
	return events, nil
}

func (c *HTTPClient) eventsURL(room string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/rooms/" + url.PathEscape(room) + "/events"
	return u.String(), nil
}

// providerError is the platform's structured failure response.
type providerError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	SIPStatusCode int    `json:"sip_status_code"`
	SIPStatus     string `json:"sip_status"`
	HTTPStatus    int    `json:"-"`
}

func (e *providerError) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		provider := &providerError{HTTPStatus: res.StatusCode}
		if err := json.Unmarshal(data, provider); err != nil || provider.Code == "" {
			provider.Code = fmt.Sprintf("http_%d", res.StatusCode)
			provider.Message = strings.TrimSpace(string(data))
		}
		return provider
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

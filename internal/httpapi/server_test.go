package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/antoniostano/duecall/internal/analysis"
	"github.com/antoniostano/duecall/internal/config"
	"github.com/antoniostano/duecall/internal/dispatch"
	"github.com/antoniostano/duecall/internal/history"
	"github.com/antoniostano/duecall/internal/session"
	"github.com/antoniostano/duecall/internal/transcript"
)

type stubCompleter struct {
	out string
}

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	return s.out, nil
}

const analysisJSON = `{
  "sentiment_analysis": {"overall_sentiment": "positive", "sentiment_score": 75},
  "performance_metrics": {"call_outcome": "successful"},
  "predictions": {"payment_probability": 65, "customer_satisfaction": 70},
  "summary": {"one_line_summary": "ok"}
}`

type testEnv struct {
	srv         *httptest.Server
	queue       *dispatch.InMemoryQueue
	sessions    *session.Manager
	transcripts *transcript.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	transcripts := transcript.NewStore(filepath.Join(dir, "transcripts"))
	predictions := analysis.NewPredictionStore(filepath.Join(dir, "predictions"))
	analyzer := analysis.NewAnalyzer(stubCompleter{out: analysisJSON}, transcripts, predictions)
	sessions := session.NewManager(time.Minute)
	queue := dispatch.NewInMemoryQueue(4)

	cfg := config.Config{DefaultTrunkID: "trunk-default", AgentName: "duecall-agent"}
	server := New(cfg, sessions, queue, transcripts, analyzer, predictions,
		history.NewInMemoryStore(), nil, nil,
		Modes{HistoryStore: "in-memory", Queue: "in-memory", LLM: "stub"})

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return &testEnv{srv: ts, queue: queue, sessions: sessions, transcripts: transcripts}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestInitiateCallDispatchesJob(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/api/initiate-call", map[string]string{
		"phone_number":  "+15551234567",
		"customer_name": "Jayden",
	})
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusAccepted)
	}
	var created initiateCallResponse
	decodeBody(t, res, &created)
	if created.DispatchID == "" || !strings.HasPrefix(created.RoomName, "call-") {
		t.Fatalf("unexpected response: %+v", created)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got := make(chan dispatch.Job, 1)
	go func() {
		_ = env.queue.Consume(ctx, func(_ context.Context, job dispatch.Job) error {
			got <- job
			cancel()
			return nil
		})
	}()

	select {
	case job := <-got:
		if job.RoomName != created.RoomName || job.AgentName != "duecall-agent" {
			t.Fatalf("unexpected job: %+v", job)
		}
		if !strings.Contains(job.Metadata, `"+15551234567"`) {
			t.Fatalf("job metadata = %q", job.Metadata)
		}
	case <-ctx.Done():
		t.Fatal("job never reached the queue")
	}
}

func TestInitiateCallRejectsMissingPhone(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/api/initiate-call", map[string]string{
		"customer_name": "Jayden",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestListCallsShowsRegisteredSessions(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.Register("call-1", "d1", "+1555", "A")

	res, err := http.Get(env.srv.URL + "/api/calls")
	if err != nil {
		t.Fatalf("GET /api/calls error = %v", err)
	}
	var body struct {
		ActiveCount int                    `json:"active_count"`
		Calls       []*session.CallSession `json:"calls"`
	}
	decodeBody(t, res, &body)
	if body.ActiveCount != 1 || len(body.Calls) != 1 || body.Calls[0].RoomName != "call-1" {
		t.Fatalf("unexpected calls payload: %+v", body)
	}
}

func TestAnalyzeTranscriptEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := transcript.Record{Transcript: transcript.Conversation{Items: []transcript.Turn{
		transcript.NewMessageTurn(transcript.RoleAgent, "Hello.", transcript.Stamp(1.0), transcript.Stamp(2.0), false),
	}}}
	path, err := env.transcripts.Write("call-9", rec)
	if err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	name := filepath.Base(path)

	res := postJSON(t, env.srv.URL+"/api/transcripts/"+name+"/analyze", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	var out analysis.Record
	decodeBody(t, res, &out)
	if out.Sentiment.SentimentScore != 75 || out.SourceFile != name {
		t.Fatalf("unexpected analysis: %+v", out)
	}
}

func TestAnalyzeTranscriptRejectsTraversal(t *testing.T) {
	env := newTestEnv(t)

	res := postJSON(t, env.srv.URL+"/api/transcripts/notatranscript.json/analyze", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestPredictionsSummaryEmptyIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	res, err := http.Get(env.srv.URL + "/api/predictions/summary")
	if err != nil {
		t.Fatalf("GET summary error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 with no predictions", res.StatusCode)
	}
}

func TestPredictionsSummaryAfterAnalysis(t *testing.T) {
	env := newTestEnv(t)

	rec := transcript.Record{Transcript: transcript.Conversation{Items: []transcript.Turn{
		transcript.NewMessageTurn(transcript.RoleAgent, "Hello.", transcript.Stamp(1.0), transcript.Stamp(2.0), false),
	}}}
	path, err := env.transcripts.Write("call-9", rec)
	if err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	res := postJSON(t, env.srv.URL+"/api/transcripts/"+filepath.Base(path)+"/analyze", nil)
	res.Body.Close()

	res, err = http.Get(env.srv.URL + "/api/predictions/summary")
	if err != nil {
		t.Fatalf("GET summary error = %v", err)
	}
	var sum analysis.AggregateSummary
	decodeBody(t, res, &sum)
	if sum.SuccessfulAnalyses != 1 || sum.MeanSentimentScore != 75 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestHealthReportsModes(t *testing.T) {
	env := newTestEnv(t)

	res, err := http.Get(env.srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	var body map[string]any
	decodeBody(t, res, &body)
	if body["status"] != "ok" || body["queue"] != "in-memory" {
		t.Fatalf("unexpected health payload: %+v", body)
	}
}

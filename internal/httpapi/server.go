package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/antoniostano/duecall/internal/analysis"
	"github.com/antoniostano/duecall/internal/config"
	"github.com/antoniostano/duecall/internal/dispatch"
	"github.com/antoniostano/duecall/internal/history"
	"github.com/antoniostano/duecall/internal/metadata"
	"github.com/antoniostano/duecall/internal/observability"
	"github.com/antoniostano/duecall/internal/session"
	"github.com/antoniostano/duecall/internal/transcript"
)

// Modes reports which backing implementations the service is running with,
// for the health endpoint.
type Modes struct {
	HistoryStore string
	Queue        string
	LLM          string
}

type Server struct {
	cfg         config.Config
	sessions    *session.Manager
	queue       dispatch.Queue
	transcripts *transcript.Store
	analyzer    *analysis.Analyzer
	predictions *analysis.PredictionStore
	historyDB   history.Store
	metrics     *observability.Metrics
	stages      *observability.CallStageWindow
	modes       Modes
}

func New(cfg config.Config, sessions *session.Manager, queue dispatch.Queue,
	transcripts *transcript.Store, analyzer *analysis.Analyzer, predictions *analysis.PredictionStore,
	historyDB history.Store, metrics *observability.Metrics, stages *observability.CallStageWindow,
	modes Modes) *Server {
	return &Server{
		cfg:         cfg,
		sessions:    sessions,
		queue:       queue,
		transcripts: transcripts,
		analyzer:    analyzer,
		predictions: predictions,
		historyDB:   historyDB,
		metrics:     metrics,
		stages:      stages,
		modes:       modes,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/initiate-call", s.handleInitiateCall)
	r.Get("/api/calls", s.handleListCalls)
	r.Get("/api/calls/{room}", s.handleGetCall)
	r.Get("/api/call-history", s.handleCallHistory)
	r.Get("/api/transcripts", s.handleListTranscripts)
	r.Post("/api/transcripts/{name}/analyze", s.handleAnalyzeTranscript)
	r.Post("/api/analyze-all", s.handleAnalyzeAll)
	r.Get("/api/predictions/summary", s.handlePredictionsSummary)
	r.Get("/api/stats", s.handleStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"active_calls":  s.sessions.ActiveCount(),
		"history_store": s.modes.HistoryStore,
		"queue":         s.modes.Queue,
		"llm":           s.modes.LLM,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// initiateCallRequest mirrors the dial metadata contract; unknown fields are
// ignored and missing optionals fall back to the standard defaults.
type initiateCallRequest struct {
	PhoneNumber  string `json:"phone_number"`
	TrunkID      string `json:"trunk_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	AmountDue    string `json:"amount_due,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

type initiateCallResponse struct {
	DispatchID string `json:"dispatch_id"`
	RoomName   string `json:"room_name"`
	Status     string `json:"status"`
}

func (s *Server) handleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var req initiateCallRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	raw, err := json.Marshal(metadata.DialRequest{
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		TrunkID:      strings.TrimSpace(req.TrunkID),
		CustomerName: strings.TrimSpace(req.CustomerName),
		AmountDue:    strings.TrimSpace(req.AmountDue),
		DueDate:      strings.TrimSpace(req.DueDate),
		Summary:      strings.TrimSpace(req.Summary),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}

	// Reject a bad dial request here rather than burning a dispatch.
	if _, err := metadata.Parse(string(raw), s.cfg.DefaultTrunkID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_metadata", err.Error())
		return
	}

	dispatchID := uuid.NewString()
	job := dispatch.Job{
		DispatchID: dispatchID,
		RoomName:   "call-" + dispatchID,
		AgentName:  s.cfg.AgentName,
		Metadata:   string(raw),
	}
	if err := s.queue.Publish(r.Context(), job); err != nil {
		respondError(w, http.StatusServiceUnavailable, "dispatch_failed", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.CallEvents.WithLabelValues("dispatched").Inc()
	}

	respondJSON(w, http.StatusAccepted, initiateCallResponse{
		DispatchID: job.DispatchID,
		RoomName:   job.RoomName,
		Status:     "dispatched",
	})
}

func (s *Server) handleListCalls(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"active_count": s.sessions.ActiveCount(),
		"calls":        s.sessions.List(),
	})
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	sess, err := s.sessions.Get(room)
	if err != nil {
		respondError(w, http.StatusNotFound, "call_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCallHistory(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))

	var (
		calls []history.CallRecord
		err   error
	)
	if phone != "" {
		calls, err = s.historyDB.CallsForPhone(r.Context(), phone, limit)
	} else {
		calls, err = s.historyDB.RecentCalls(r.Context(), limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"calls": calls})
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, _ *http.Request) {
	names, err := s.transcripts.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "transcripts_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transcripts": names})
}

func (s *Server) handleAnalyzeTranscript(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validTranscriptName(name) {
		respondError(w, http.StatusBadRequest, "invalid_transcript_name", "expected a transcript_*.json filename")
		return
	}

	path := filepath.Join(s.transcripts.Dir(), name)
	rec, err := s.analyzer.AnalyzeFile(r.Context(), path, true)
	if err != nil {
		var invalid *analysis.InvalidOutputError
		switch {
		case errors.As(err, &invalid):
			respondError(w, http.StatusBadGateway, "analysis_failed", err.Error())
		default:
			respondError(w, http.StatusNotFound, "transcript_not_found", err.Error())
		}
		return
	}
	rec.SourceFile = name
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAnalyzeAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.analyzer.BatchAnalyze(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "batch_failed", err.Error())
		return
	}

	failed := 0
	for _, rec := range results {
		if rec.Failed() {
			failed++
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"analyzed": len(results) - failed,
		"failed":   failed,
		"results":  results,
	})
}

func (s *Server) handlePredictionsSummary(w http.ResponseWriter, _ *http.Request) {
	sum, err := s.predictions.Summarize()
	if err != nil {
		if errors.Is(err, analysis.ErrNoSuccessfulAnalyses) {
			respondError(w, http.StatusNotFound, "no_successful_analyses", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "summary_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stages == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "stage stats not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.stages.Snapshot())
}

// validTranscriptName guards the analyze endpoint against path traversal.
func validTranscriptName(name string) bool {
	if !strings.HasPrefix(name, transcript.FilePrefix) || !strings.HasSuffix(name, ".json") {
		return false
	}
	return name == filepath.Base(name)
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

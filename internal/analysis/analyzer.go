package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/antoniostano/duecall/internal/llm"
	"github.com/antoniostano/duecall/internal/policy"
	"github.com/antoniostano/duecall/internal/transcript"
)

// InvalidOutputError reports model output that did not decode into the
// required document, after fence stripping. The raw text is kept so a failed
// analysis can be diagnosed without replaying the call.
type InvalidOutputError struct {
	Raw string
	Err error
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("analysis: model output not decodable: %v", e.Err)
}

func (e *InvalidOutputError) Unwrap() error { return e.Err }

// Analyzer converts a stored transcript into a structured prediction record.
// One analysis is independent of all others.
type Analyzer struct {
	completer   llm.Completer
	transcripts *transcript.Store
	predictions *PredictionStore
	now         func() time.Time
}

func NewAnalyzer(completer llm.Completer, transcripts *transcript.Store, predictions *PredictionStore) *Analyzer {
	return &Analyzer{
		completer:   completer,
		transcripts: transcripts,
		predictions: predictions,
		now:         time.Now,
	}
}

// Analyze runs the model over one transcript record and returns the decoded,
// metadata-augmented analysis. It never returns a partially populated record:
// on any failure the error carries the diagnostics instead.
func (a *Analyzer) Analyze(ctx context.Context, rec transcript.Record) (Record, error) {
	prompt := buildPrompt(rec)

	raw, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return Record{}, fmt.Errorf("analysis completion: %w", err)
	}

	body := StripFence(raw)
	var out Record
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return Record{}, &InvalidOutputError{Raw: raw, Err: err}
	}

	out.Metadata = deriveMetadata(rec, a.now())
	return out, nil
}

// AnalyzeFile analyzes one stored transcript file, optionally saving the
// prediction next to its transcript.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, savePrediction bool) (Record, error) {
	rec, err := a.transcripts.Read(path)
	if err != nil {
		return Record{}, err
	}

	out, err := a.Analyze(ctx, rec)
	if err != nil {
		return Record{}, err
	}

	if savePrediction && a.predictions != nil {
		if _, err := a.predictions.Save(path, out); err != nil {
			return Record{}, err
		}
	}
	return out, nil
}

// PredictionPath is where AnalyzeFile saves the prediction for a transcript.
func (a *Analyzer) PredictionPath(transcriptPath string) string {
	if a.predictions == nil {
		return ""
	}
	return filepath.Join(a.predictions.Dir(), PredictionName(transcriptPath))
}

// batchWorkers bounds batch parallelism; analyses are independent per file.
const batchWorkers = 4

// BatchAnalyze analyzes every transcript file in the store directory.
// Failures are tagged with their source filename as error sentinels; one bad
// file never aborts the batch. Results follow the store's listing order.
func (a *Analyzer) BatchAnalyze(ctx context.Context) ([]Record, error) {
	names, err := a.transcripts.List()
	if err != nil {
		return nil, err
	}

	results := make([]Record, len(names))
	sem := make(chan struct{}, batchWorkers)
	done := make(chan int)

	for i, name := range names {
		go func(i int, name string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			path := filepath.Join(a.transcripts.Dir(), name)
			out, err := a.AnalyzeFile(ctx, path, true)
			if err != nil {
				results[i] = FailedRecord(name, err)
			} else {
				out.SourceFile = name
				results[i] = out
			}
			done <- i
		}(i, name)
	}

	for range names {
		<-done
	}
	return results, nil
}

func buildPrompt(rec transcript.Record) string {
	conversation := BuildConversationText(rec.Transcript.Items)
	conversation, _ = policy.MaskSensitive(conversation)

	logJSON, err := json.MarshalIndent(rec.CustomLog, "", "  ")
	if err != nil {
		logJSON = []byte("[]")
	}

	return fmt.Sprintf(`You are an expert conversation analyst for a customer service call center. Analyze the following phone conversation between a customer service agent (Joe from American Express Bank) and a customer.

CONVERSATION:
%s

CUSTOM LOGS:
%s

Please provide a comprehensive analysis in the following JSON format:

{
  "sentiment_analysis": {
    "overall_sentiment": "positive/neutral/negative",
    "customer_emotion": "calm/frustrated/angry/confused/cooperative",
    "sentiment_score": 0-100,
    "sentiment_trend": "improving/stable/declining",
    "key_emotional_moments": ["moment 1", "moment 2"]
  },
  "conversation_quality": {
    "agent_professionalism": 0-100,
    "customer_engagement": 0-100,
    "resolution_likelihood": 0-100,
    "conversation_flow": "smooth/choppy/interrupted",
    "total_turns": 0,
    "average_response_time": "fast/moderate/slow"
  },
  "key_insights": {
    "main_topics": ["topic1", "topic2"],
    "customer_intent": "pay/dispute/reschedule/complain/other",
    "payment_commitment": "yes/maybe/no",
    "objections_raised": ["objection1", "objection2"],
    "agent_actions_taken": ["action1", "action2"]
  },
  "performance_metrics": {
    "call_outcome": "successful/partial/unsuccessful",
    "agent_effectiveness": 0-100,
    "script_adherence": 0-100,
    "empathy_score": 0-100,
    "problem_solving_score": 0-100
  },
  "predictions": {
    "payment_probability": 0-100,
    "callback_needed": true/false,
    "escalation_risk": "low/medium/high",
    "customer_satisfaction": 0-100,
    "churn_risk": "low/medium/high"
  },
  "recommendations": {
    "immediate_actions": ["action1", "action2"],
    "follow_up_strategy": "description",
    "agent_coaching_points": ["point1", "point2"],
    "process_improvements": ["improvement1", "improvement2"]
  },
  "summary": {
    "one_line_summary": "Brief summary of the call",
    "detailed_summary": "Detailed summary of what happened",
    "next_steps": "What should happen next"
  }
}

Provide ONLY the JSON response, no additional text.`, conversation, logJSON)
}

// BuildConversationText flattens message turns into role-labeled lines,
// marking interrupted turns.
func BuildConversationText(items []transcript.Turn) string {
	var lines []string
	for _, item := range items {
		if item.Type != "message" {
			continue
		}
		speaker := "Customer"
		if item.Role == transcript.RoleAgent {
			speaker = "Agent (Joe)"
		}
		content := strings.Join(item.Content, " ")
		suffix := ""
		if item.Interrupted {
			suffix = " [INTERRUPTED]"
		}
		lines = append(lines, fmt.Sprintf("%s: %s%s", speaker, content, suffix))
	}
	return strings.Join(lines, "\n")
}

// StripFence removes a markdown code fence (with or without a language tag)
// wrapping the model's answer.
func StripFence(response string) string {
	s := strings.TrimSpace(response)

	if idx := strings.Index(s, "```json"); idx >= 0 {
		start := idx + len("```json")
		if end := strings.Index(s[start:], "```"); end >= 0 {
			return strings.TrimSpace(s[start : start+end])
		}
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		start := idx + len("```")
		if end := strings.Index(s[start:], "```"); end >= 0 {
			return strings.TrimSpace(s[start : start+end])
		}
	}
	return s
}

// ConversationDuration is max minus min of all recorded speaking timestamps,
// rounded to two decimals; zero when fewer than two timestamps exist.
func ConversationDuration(items []transcript.Turn) float64 {
	var stamps []float64
	for _, item := range items {
		if item.Metrics == nil {
			continue
		}
		if item.Metrics.StartedSpeakingAt != nil {
			stamps = append(stamps, *item.Metrics.StartedSpeakingAt)
		}
		if item.Metrics.StoppedSpeakingAt != nil {
			stamps = append(stamps, *item.Metrics.StoppedSpeakingAt)
		}
	}
	if len(stamps) < 2 {
		return 0
	}
	min, max := stamps[0], stamps[0]
	for _, s := range stamps[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return math.Round((max-min)*100) / 100
}

func deriveMetadata(rec transcript.Record, at time.Time) Metadata {
	md := Metadata{
		AnalyzedAt:           at,
		ConversationDuration: ConversationDuration(rec.Transcript.Items),
	}
	for _, item := range rec.Transcript.Items {
		if item.Type == "message" {
			md.TotalMessages++
		}
		if item.Interrupted {
			md.Interruptions++
		}
	}
	for _, line := range rec.CustomLog {
		if strings.Contains(line, "[Complaint]") {
			md.ComplaintsLogged++
		}
		if strings.Contains(line, "[Reschedule]") {
			md.RescheduleRequests++
		}
	}
	return md
}

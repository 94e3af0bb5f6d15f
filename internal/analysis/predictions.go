package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antoniostano/duecall/internal/transcript"
)

// PredictionFilePrefix replaces the transcript prefix when a prediction is
// saved, keeping the room/timestamp token intact for 1:1 correlation.
const PredictionFilePrefix = "prediction_"

// ErrNoSuccessfulAnalyses is the distinct no-data result for aggregation over
// zero successful records.
var ErrNoSuccessfulAnalyses = errors.New("analysis: no successful analyses available")

// PredictionStore persists analysis records in a dedicated predictions
// directory, one file per transcript, named by prefix substitution.
type PredictionStore struct {
	dir string
}

func NewPredictionStore(dir string) *PredictionStore {
	return &PredictionStore{dir: dir}
}

func (s *PredictionStore) Dir() string { return s.dir }

// PredictionName derives the prediction filename from a transcript path.
func PredictionName(transcriptPath string) string {
	base := filepath.Base(transcriptPath)
	return strings.Replace(base, transcript.FilePrefix, PredictionFilePrefix, 1)
}

// Save writes the record under the derived name, creating the predictions
// area if absent, and returns the full path.
func (s *PredictionStore) Save(transcriptPath string, rec Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create predictions dir %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, PredictionName(transcriptPath))
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prediction for %s: %w", transcriptPath, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write prediction %s: %w", path, err)
	}
	return path, nil
}

// LoadAll reads every prediction record in the store, sorted by filename.
func (s *PredictionStore) LoadAll() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list predictions in %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, PredictionFilePrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read prediction %s: %w", name, err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode prediction %s: %w", name, err)
		}
		if rec.SourceFile == "" {
			rec.SourceFile = name
		}
		records = append(records, rec)
	}
	return records, nil
}

// AggregateSummary holds mean metrics over the successful prediction subset
// plus a histogram of call outcomes.
type AggregateSummary struct {
	TotalPredictions         int            `json:"total_predictions"`
	SuccessfulAnalyses       int            `json:"successful_analyses"`
	FailedAnalyses           int            `json:"failed_analyses"`
	MeanSentimentScore       float64        `json:"mean_sentiment_score"`
	MeanCustomerSatisfaction float64        `json:"mean_customer_satisfaction"`
	MeanPaymentProbability   float64        `json:"mean_payment_probability"`
	CallOutcomes             map[string]int `json:"call_outcomes"`
}

// Summarize aggregates all stored predictions. Records carrying an error
// sentinel are counted but excluded from every averaged metric. With zero
// successful records it returns ErrNoSuccessfulAnalyses.
func (s *PredictionStore) Summarize() (AggregateSummary, error) {
	records, err := s.LoadAll()
	if err != nil {
		return AggregateSummary{}, err
	}
	return Aggregate(records)
}

// Aggregate computes the summary over an in-memory record set.
func Aggregate(records []Record) (AggregateSummary, error) {
	out := AggregateSummary{
		TotalPredictions: len(records),
		CallOutcomes:     make(map[string]int),
	}

	var sentiment, satisfaction, payment float64
	for _, rec := range records {
		if rec.Failed() {
			out.FailedAnalyses++
			continue
		}
		out.SuccessfulAnalyses++
		sentiment += rec.Sentiment.SentimentScore
		satisfaction += rec.Predictions.CustomerSatisfaction
		payment += rec.Predictions.PaymentProbability
		if rec.Performance.CallOutcome != "" {
			out.CallOutcomes[rec.Performance.CallOutcome]++
		}
	}

	if out.SuccessfulAnalyses == 0 {
		return AggregateSummary{}, ErrNoSuccessfulAnalyses
	}

	n := float64(out.SuccessfulAnalyses)
	out.MeanSentimentScore = sentiment / n
	out.MeanCustomerSatisfaction = satisfaction / n
	out.MeanPaymentProbability = payment / n
	return out, nil
}

package analysis

import "time"

// Record is the fixed-shape analysis document for one transcript: six named
// sections, a summary, and derived metadata. It is either fully populated or
// replaced by an explicit error sentinel (Error/Status set), never partial.
type Record struct {
	Sentiment       SentimentAnalysis   `json:"sentiment_analysis"`
	Quality         ConversationQuality `json:"conversation_quality"`
	Insights        KeyInsights         `json:"key_insights"`
	Performance     PerformanceMetrics  `json:"performance_metrics"`
	Predictions     Predictions         `json:"predictions"`
	Recommendations Recommendations     `json:"recommendations"`
	Summary         Summary             `json:"summary"`
	Metadata        Metadata            `json:"metadata"`

	SourceFile string `json:"source_file,omitempty"`
	Error      string `json:"error,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Failed reports whether this record is an error sentinel.
func (r Record) Failed() bool { return r.Error != "" }

// FailedRecord builds the explicit error sentinel for a failed analysis.
func FailedRecord(sourceFile string, err error) Record {
	return Record{
		SourceFile: sourceFile,
		Error:      err.Error(),
		Status:     "analysis_failed",
	}
}

type SentimentAnalysis struct {
	OverallSentiment    string   `json:"overall_sentiment"`
	CustomerEmotion     string   `json:"customer_emotion"`
	SentimentScore      float64  `json:"sentiment_score"`
	SentimentTrend      string   `json:"sentiment_trend"`
	KeyEmotionalMoments []string `json:"key_emotional_moments"`
}

type ConversationQuality struct {
	AgentProfessionalism float64 `json:"agent_professionalism"`
	CustomerEngagement   float64 `json:"customer_engagement"`
	ResolutionLikelihood float64 `json:"resolution_likelihood"`
	ConversationFlow     string  `json:"conversation_flow"`
	TotalTurns           int     `json:"total_turns"`
	AverageResponseTime  string  `json:"average_response_time"`
}

type KeyInsights struct {
	MainTopics        []string `json:"main_topics"`
	CustomerIntent    string   `json:"customer_intent"`
	PaymentCommitment string   `json:"payment_commitment"`
	ObjectionsRaised  []string `json:"objections_raised"`
	AgentActionsTaken []string `json:"agent_actions_taken"`
}

type PerformanceMetrics struct {
	CallOutcome         string  `json:"call_outcome"`
	AgentEffectiveness  float64 `json:"agent_effectiveness"`
	ScriptAdherence     float64 `json:"script_adherence"`
	EmpathyScore        float64 `json:"empathy_score"`
	ProblemSolvingScore float64 `json:"problem_solving_score"`
}

type Predictions struct {
	PaymentProbability   float64 `json:"payment_probability"`
	CallbackNeeded       bool    `json:"callback_needed"`
	EscalationRisk       string  `json:"escalation_risk"`
	CustomerSatisfaction float64 `json:"customer_satisfaction"`
	ChurnRisk            string  `json:"churn_risk"`
}

type Recommendations struct {
	ImmediateActions    []string `json:"immediate_actions"`
	FollowUpStrategy    string   `json:"follow_up_strategy"`
	AgentCoachingPoints []string `json:"agent_coaching_points"`
	ProcessImprovements []string `json:"process_improvements"`
}

type Summary struct {
	OneLineSummary  string `json:"one_line_summary"`
	DetailedSummary string `json:"detailed_summary"`
	NextSteps       string `json:"next_steps"`
}

// Metadata is derived locally from the transcript, never from model output.
type Metadata struct {
	AnalyzedAt           time.Time `json:"analyzed_at"`
	TotalMessages        int       `json:"total_messages"`
	ConversationDuration float64   `json:"conversation_duration"`
	Interruptions        int       `json:"interruptions"`
	ComplaintsLogged     int       `json:"complaints_logged"`
	RescheduleRequests   int       `json:"reschedule_requests"`
}

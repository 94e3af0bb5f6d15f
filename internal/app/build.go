package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/antoniostano/duecall/internal/analysis"
	"github.com/antoniostano/duecall/internal/call"
	"github.com/antoniostano/duecall/internal/config"
	"github.com/antoniostano/duecall/internal/dispatch"
	"github.com/antoniostano/duecall/internal/history"
	"github.com/antoniostano/duecall/internal/httpapi"
	"github.com/antoniostano/duecall/internal/llm"
	"github.com/antoniostano/duecall/internal/observability"
	"github.com/antoniostano/duecall/internal/session"
	"github.com/antoniostano/duecall/internal/telephony"
	"github.com/antoniostano/duecall/internal/transcript"
)

// BuildResult holds all wired components for one service process.
type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     *session.Manager
	Queue        dispatch.Queue
	Orchestrator *call.Orchestrator
	Metrics      *observability.Metrics
	Stages       *observability.CallStageWindow

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the service from configuration. Missing credentials degrade to
// in-process fakes so the service runs keyless for local development.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	stages := observability.NewCallStageWindow(256)

	historyStore, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}
	historyMode := "in-memory"
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		historyMode = "postgres"
	}

	queue, err := dispatch.NewQueue(cfg.AMQPURL)
	if err != nil {
		_ = historyStore.Close()
		return nil, fmt.Errorf("dispatch queue init failed: %w", err)
	}
	queueMode := "in-memory"
	if strings.TrimSpace(cfg.AMQPURL) != "" {
		queueMode = "amqp"
	}

	var (
		llmClient llm.Client
		llmMode   string
	)
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		llmClient = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, float32(cfg.OpenAITemperature))
		llmMode = "openai"
	} else {
		llmClient = llm.NewMock()
		llmMode = "mock"
		log.Printf("OPENAI_API_KEY not set; using the scripted mock model")
	}

	var phone telephony.Client
	telephonyMode := "platform"
	if strings.TrimSpace(cfg.PlatformAPIKey) != "" {
		phone = telephony.NewHTTPClient(cfg.PlatformURL, cfg.PlatformAPIKey)
	} else {
		phone = telephony.NewFake()
		telephonyMode = "fake"
		log.Printf("PLATFORM_API_KEY not set; using the in-process telephony fake")
	}
	log.Printf("wired: history=%s queue=%s llm=%s telephony=%s", historyMode, queueMode, llmMode, telephonyMode)

	transcripts := transcript.NewStore(cfg.TranscriptsDir)
	predictions := analysis.NewPredictionStore(cfg.PredictionsDir)
	analyzer := analysis.NewAnalyzer(llmClient, transcripts, predictions)

	sessions := session.NewManager(cfg.SessionRetention)
	sessions.SetFailHook(func(s *session.CallSession) {
		metrics.CallEvents.WithLabelValues("failed").Inc()
		log.Printf("call %s failed: %s", s.RoomName, s.FailureReason)
	})

	orchestrator := call.NewOrchestrator(call.OrchestratorConfig{
		Telephony:       phone,
		Chat:            llmClient,
		Transcripts:     transcripts,
		Analyzer:        analyzer,
		Sessions:        sessions,
		History:         historyStore,
		Metrics:         metrics,
		Stages:          stages,
		DefaultTrunkID:  cfg.DefaultTrunkID,
		PlayoutCap:      cfg.PlayoutCap,
		AnalysisTimeout: cfg.AnalysisTimeout,
	})

	api := httpapi.New(cfg, sessions, queue, transcripts, analyzer, predictions,
		historyStore, metrics, stages,
		httpapi.Modes{HistoryStore: historyMode, Queue: queueMode, LLM: llmMode})

	cleanup := func() error {
		var errs []string
		if err := queue.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := historyStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     sessions,
		Queue:        queue,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		Stages:       stages,
		Cleanup:      cleanup,
	}, nil
}

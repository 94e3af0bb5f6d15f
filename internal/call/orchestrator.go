package call

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/antoniostano/duecall/internal/agent"
	"github.com/antoniostano/duecall/internal/analysis"
	"github.com/antoniostano/duecall/internal/dispatch"
	"github.com/antoniostano/duecall/internal/history"
	"github.com/antoniostano/duecall/internal/llm"
	"github.com/antoniostano/duecall/internal/metadata"
	"github.com/antoniostano/duecall/internal/observability"
	"github.com/antoniostano/duecall/internal/session"
	"github.com/antoniostano/duecall/internal/telephony"
	"github.com/antoniostano/duecall/internal/transcript"
)

const (
	defaultAnalysisTimeout = 60 * time.Second
	teardownTimeout        = 10 * time.Second
)

// OrchestratorConfig wires one orchestrator. Telephony, Chat, Transcripts,
// Sessions and History are required; Analyzer, Metrics and Stages are
// optional.
type OrchestratorConfig struct {
	Telephony       telephony.Client
	Chat            llm.Chatter
	Transcripts     *transcript.Store
	Analyzer        *analysis.Analyzer
	Sessions        *session.Manager
	History         history.Store
	Metrics         *observability.Metrics
	Stages          *observability.CallStageWindow
	DefaultTrunkID  string
	PlayoutCap      time.Duration
	AnalysisTimeout time.Duration
	// SpeakerFor overrides how agent text reaches the room's audio
	// pipeline. When nil, the telephony client's Speak is used.
	SpeakerFor func(roomName string) agent.Speaker
}

// Orchestrator runs one outbound call end to end: metadata validation, room
// setup, concurrent dial and agent startup, the active conversation loop,
// and teardown. The transcript is persisted on every exit path; analysis is
// best-effort and can never corrupt an already-saved transcript.
type Orchestrator struct {
	telephony       telephony.Client
	coordinator     *Coordinator
	chat            llm.Chatter
	transcripts     *transcript.Store
	analyzer        *analysis.Analyzer
	sessions        *session.Manager
	history         history.Store
	metrics         *observability.Metrics
	stages          *observability.CallStageWindow
	trunkID         string
	playoutCap      time.Duration
	analysisTimeout time.Duration
	speakerFor      func(roomName string) agent.Speaker
	now             func() time.Time
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	analysisTimeout := cfg.AnalysisTimeout
	if analysisTimeout <= 0 {
		analysisTimeout = defaultAnalysisTimeout
	}
	return &Orchestrator{
		telephony:       cfg.Telephony,
		coordinator:     NewCoordinator(cfg.Telephony),
		chat:            cfg.Chat,
		transcripts:     cfg.Transcripts,
		analyzer:        cfg.Analyzer,
		sessions:        cfg.Sessions,
		history:         cfg.History,
		metrics:         cfg.Metrics,
		stages:          cfg.Stages,
		trunkID:         cfg.DefaultTrunkID,
		playoutCap:      cfg.PlayoutCap,
		analysisTimeout: analysisTimeout,
		speakerFor:      cfg.SpeakerFor,
		now:             time.Now,
	}
}

type dialResult struct {
	identity string
	latency  time.Duration
	err      error
}

// Run executes one dispatched call job. It returns after teardown completes;
// the error reports why the call failed, if it did.
func (o *Orchestrator) Run(ctx context.Context, job dispatch.Job) error {
	started := o.now()
	room := job.RoomName

	req, perr := metadata.Parse(job.Metadata, o.trunkID)
	if perr != nil {
		o.sessions.Register(room, job.DispatchID, "", "")
		_ = o.sessions.Fail(room, perr.Error())
		o.event("metadata_rejected")
		o.saveHistory(ctx, history.CallRecord{
			RoomName:      room,
			DispatchID:    job.DispatchID,
			Outcome:       string(session.StateFailed),
			FailureReason: perr.Error(),
			StartedAt:     started,
			EndedAt:       o.now(),
		})
		return fmt.Errorf("dispatch %s: %w", job.DispatchID, perr)
	}

	o.sessions.Register(room, job.DispatchID, req.PhoneNumber, req.CustomerName)
	o.transition(room, session.StateMetadataValidated)
	o.event("metadata_validated")

	o.gaugeActive(1)
	defer o.gaugeActive(-1)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Conversation wiring. The hangup trigger only signals the loop; room
	// deletion stays with the orchestrator.
	actionLog := agent.NewActionLog()
	playout := agent.NewPlayout()
	endRequested := make(chan struct{})
	var endOnce sync.Once
	hangup := func(context.Context) error {
		endOnce.Do(func() { close(endRequested) })
		return nil
	}
	actions := agent.NewActions(actionLog, func() string { return req.PhoneNumber }, playout, hangup, o.playoutCap)
	engine := agent.NewEngine(o.chat, agent.CustomerContext{
		Name:      req.CustomerName,
		AmountDue: req.AmountDue,
		DueDate:   req.DueDate,
		Summary:   req.Summary,
		Today:     started.Format("Monday, January 2, 2006"),
	}, actions, playout)
	if o.speakerFor != nil {
		engine.SetSpeaker(o.speakerFor(room))
	} else {
		engine.SetSpeaker(func(ctx context.Context, text string) (<-chan struct{}, error) {
			return o.telephony.Speak(ctx, room, text)
		})
	}

	outcome := string(session.StateEnded)
	failReason := ""

	// Guaranteed persistence: from here on, every exit path writes the
	// transcript before analysis, history, or metrics run.
	defer func() {
		endedAt := o.now()

		rec := transcript.Record{
			Transcript: transcript.Conversation{Items: engine.History()},
			CustomLog:  actionLog.Lines(),
		}
		path, werr := o.transcripts.Write(room, rec)
		if werr != nil {
			log.Printf("call %s: TRANSCRIPT PERSIST FAILED: %v", room, werr)
			o.persistFailure()
		} else {
			log.Printf("call %s: transcript saved to %s", room, path)
		}

		var predictionPath string
		if werr == nil && o.analyzer != nil {
			actx, acancel := context.WithTimeout(context.WithoutCancel(ctx), o.analysisTimeout)
			if _, aerr := o.analyzer.AnalyzeFile(actx, path, true); aerr != nil {
				log.Printf("call %s: post-call analysis failed: %v", room, aerr)
				o.analysisOutcome("failed")
			} else {
				predictionPath = o.analyzer.PredictionPath(path)
				o.analysisOutcome("ok")
			}
			acancel()
		}

		if s, serr := o.sessions.Get(room); serr == nil && !s.State.Terminal() {
			reason := failReason
			if reason == "" {
				reason = "abnormal termination"
			}
			_ = o.sessions.Fail(room, reason)
			outcome = string(session.StateFailed)
			failReason = reason
		}

		duration := endedAt.Sub(started)
		o.observeDuration(duration)
		o.stageObserve(observability.StageCallTotal, duration)

		o.saveHistory(ctx, history.CallRecord{
			RoomName:        room,
			DispatchID:      job.DispatchID,
			PhoneNumber:     req.PhoneNumber,
			CustomerName:    req.CustomerName,
			Outcome:         outcome,
			FailureReason:   failReason,
			TranscriptPath:  path,
			PredictionPath:  predictionPath,
			DurationSeconds: duration.Seconds(),
			StartedAt:       started,
			EndedAt:         endedAt,
		})
	}()

	fail := func(reason string, err error) error {
		failReason = reason
		outcome = string(session.StateFailed)
		_ = o.sessions.Fail(room, reason)
		return err
	}

	if err := o.telephony.CreateRoom(callCtx, room); err != nil {
		return fail(fmt.Sprintf("create room: %v", err), fmt.Errorf("call %s: create room: %w", room, err))
	}

	var deleteOnce sync.Once
	deleteRoom := func() {
		dctx, dcancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		defer dcancel()
		if err := o.telephony.DeleteRoom(dctx, room); err != nil {
			log.Printf("call %s: delete room failed: %v", room, err)
		}
	}
	defer deleteOnce.Do(deleteRoom)

	events, err := o.telephony.WatchRoom(callCtx, room)
	if err != nil {
		return fail(fmt.Sprintf("watch room: %v", err), fmt.Errorf("call %s: watch room: %w", room, err))
	}

	if !job.EnqueuedAt.IsZero() {
		o.stageObserve(observability.StageDispatchToDial, started.Sub(job.EnqueuedAt))
	}

	// Dial and agent startup run concurrently; the first failure cancels
	// the other side and tears the call down.
	o.transition(room, session.StateDialing)
	o.event("dialing")

	dialc := make(chan dialResult, 1)
	go func() {
		identity, latency, derr := o.coordinator.Dial(callCtx, room, req.PhoneNumber, req.TrunkID)
		dialc <- dialResult{identity: identity, latency: latency, err: derr}
	}()

	startc := make(chan error, 1)
	go func() { startc <- engine.Start(callCtx) }()

	answered := o.now()
	dialed, engineReady, joined := false, false, false
	for !dialed || !engineReady || !joined {
		select {
		case res := <-dialc:
			if res.err != nil {
				cancel()
				o.dialFailed(res.err)
				return fail(res.err.Error(), fmt.Errorf("call %s: %w", room, res.err))
			}
			dialed = true
			answered = o.now()
			_ = o.sessions.SetParticipant(room, res.identity)
			o.observeAnswerLatency(res.latency)
			o.stageObserve(observability.StageDialToAnswer, res.latency)
		case serr := <-startc:
			if serr != nil {
				cancel()
				return fail(fmt.Sprintf("agent start: %v", serr), fmt.Errorf("call %s: agent start: %w", room, serr))
			}
			engineReady = true
			if !dialed {
				o.transition(room, session.StateSessionStarting)
				o.event("session_starting")
			}
		case ev, ok := <-events:
			// The call is not active until the callee is actually in the
			// room: an answered dial alone is not enough.
			if !ok {
				cancel()
				return fail("room closed before activation", fmt.Errorf("call %s: room closed before activation", room))
			}
			switch ev.Kind {
			case telephony.EventParticipantJoined:
				if ev.ParticipantIdentity == req.PhoneNumber {
					joined = true
				}
			case telephony.EventRoomFinished:
				cancel()
				return fail("room finished before activation", fmt.Errorf("call %s: room finished before activation", room))
			}
		case <-callCtx.Done():
			return fail("canceled before activation", callCtx.Err())
		}
	}

	o.transition(room, session.StateActive)
	o.event("active")
	o.stageObserve(observability.StageAnswerToActive, o.now().Sub(answered))
	log.Printf("call %s: active with %s", room, req.PhoneNumber)

	reason := ""
	for reason == "" {
		select {
		case <-callCtx.Done():
			reason = "shutdown"
		case <-endRequested:
			reason = "agent_hangup"
		case ev, ok := <-events:
			if !ok {
				reason = "room_finished"
				continue
			}
			switch ev.Kind {
			case telephony.EventTranscription:
				u := agent.Utterance{
					Text:        ev.Text,
					StartedAt:   ev.StartedSpeakingAt,
					StoppedAt:   ev.StoppedSpeakingAt,
					Interrupted: ev.Interrupted,
				}
				if herr := engine.HandleUtterance(callCtx, u); herr != nil {
					log.Printf("call %s: agent turn failed: %v", room, herr)
				}
			case telephony.EventParticipantLeft:
				if ev.ParticipantIdentity == req.PhoneNumber {
					reason = "customer_hangup"
				}
			case telephony.EventRoomFinished:
				reason = "room_finished"
			}
		}
	}

	log.Printf("call %s: terminating (%s)", room, reason)
	o.transition(room, session.StateTerminating)
	o.event("terminating")
	deleteOnce.Do(deleteRoom)
	o.transition(room, session.StateEnded)
	o.event("ended")
	return nil
}

// transition logs lifecycle violations instead of aborting the call; the
// registry still refuses the bad edge.
func (o *Orchestrator) transition(room string, to session.State) {
	if err := o.sessions.Transition(room, to); err != nil {
		log.Printf("call %s: %v", room, err)
	}
}

func (o *Orchestrator) saveHistory(ctx context.Context, rec history.CallRecord) {
	hctx, hcancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer hcancel()
	if err := o.history.SaveCall(hctx, rec); err != nil {
		log.Printf("call %s: history save failed: %v", rec.RoomName, err)
	}
}

func (o *Orchestrator) dialFailed(err error) {
	code := "unknown"
	var derr *telephony.DialError
	if errors.As(err, &derr) {
		code = derr.Code
	}
	if o.metrics != nil {
		o.metrics.DialFailures.WithLabelValues(code).Inc()
	}
	if o.stages != nil {
		o.stages.ObserveIndicator("dial_failed")
	}
}

func (o *Orchestrator) event(name string) {
	if o.metrics != nil {
		o.metrics.CallEvents.WithLabelValues(name).Inc()
	}
}

func (o *Orchestrator) gaugeActive(delta float64) {
	if o.metrics != nil {
		o.metrics.ActiveCalls.Add(delta)
	}
}

func (o *Orchestrator) persistFailure() {
	if o.metrics != nil {
		o.metrics.PersistFailures.Inc()
	}
}

func (o *Orchestrator) analysisOutcome(outcome string) {
	if o.metrics != nil {
		o.metrics.AnalysisOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (o *Orchestrator) observeDuration(d time.Duration) {
	if o.metrics != nil {
		o.metrics.ObserveCallDuration(d)
	}
}

func (o *Orchestrator) observeAnswerLatency(d time.Duration) {
	if o.metrics != nil {
		o.metrics.ObserveDialAnswerLatency(d)
	}
}

func (o *Orchestrator) stageObserve(stage string, d time.Duration) {
	if o.stages != nil {
		o.stages.Observe(stage, float64(d.Milliseconds()))
	}
}

// Package pipeline wires one session's ingress buffer, VAD engine, turn-state
// tracker, and segment buffer into a single goroutine loop, dispatching
// finalized utterances through the shared ASR engine.
//
// The wiring mirrors the grounding pattern of a streaming recognizer loop:
// one goroutine owns all per-frame state, a non-blocking buffered channel
// delivers results to the consumer, and overflow is dropped and logged
// rather than allowed to block the producer.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/saletech/speechcore/internal/observe"
	"github.com/saletech/speechcore/internal/resilience"
	"github.com/saletech/speechcore/pkg/asr"
	"github.com/saletech/speechcore/pkg/ingress"
	"github.com/saletech/speechcore/pkg/perr"
	"github.com/saletech/speechcore/pkg/segment"
	"github.com/saletech/speechcore/pkg/turnstate"
	"github.com/saletech/speechcore/pkg/types"
	"github.com/saletech/speechcore/pkg/vad"
)

const component = "pipeline"

const popTimeout = 200 * time.Millisecond

// resultBufferSize bounds how many finished transcriptions can queue on
// Results before the dispatch loop starts dropping them. A session consumer
// that falls this far behind is already in trouble; dropping keeps the
// pipeline loop itself from stalling.
const resultBufferSize = 8

// Config holds one session's tuning, assembled from the process-wide
// configuration surface.
type Config struct {
	SessionID  string
	SampleRate int
	VAD        vad.Config
	TurnState  turnstate.Config
	Segment    segment.Config

	// PopTimeout overrides the ingress Pop poll interval. Zero uses the
	// package default.
	PopTimeout time.Duration

	// Metrics records per-stage counters and latencies. Nil uses
	// observe.DefaultMetrics().
	Metrics *observe.Metrics
}

// Session owns one caller's end-to-end pipeline: frame ingress through
// finalized transcription. Exactly one in-flight ASR call is ever dispatched
// per Session, matching the spec's one-job-per-pipeline invariant; the
// process-wide asr.Engine is what caps total concurrency across sessions.
type Session struct {
	cfg Config

	ingress  *ingress.Buffer
	detector vad.SpeechDetector
	tracker  *turnstate.Tracker
	segments *segment.Buffer

	asrEngine *asr.Engine
	breaker   *resilience.CircuitBreaker

	results chan types.Transcription

	running          atomic.Bool
	lastAttemptCount int64
	lastReceiveCount int64
	lastDropCount    int64
}

// NewSession builds a Session. detector and asrEngine are supplied by the
// caller so their process-wide lifetimes (model load, warmup) stay outside
// any one session's control.
func NewSession(cfg Config, in *ingress.Buffer, detector vad.SpeechDetector, asrEngine *asr.Engine, breaker *resilience.CircuitBreaker) *Session {
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = popTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Session{
		cfg:       cfg,
		ingress:   in,
		detector:  detector,
		tracker:   turnstate.New(cfg.TurnState),
		segments:  segment.New(cfg.Segment),
		asrEngine: asrEngine,
		breaker:   breaker,
		results:   make(chan types.Transcription, resultBufferSize),
	}
}

// Results returns the channel finalized transcriptions are delivered on. The
// caller must drain it promptly; a slow consumer causes transcriptions to be
// dropped rather than backing up the pipeline loop.
func (s *Session) Results() <-chan types.Transcription {
	return s.results
}

// Run pops frames from the ingress buffer until ctx is cancelled or the
// buffer is closed with nothing left to drain, driving each frame through
// VAD, turn-state tracking, and segmentation, and dispatching any finalized
// utterance for transcription. It blocks until the loop exits, so callers
// typically invoke it from its own goroutine.
func (s *Session) Run(ctx context.Context) {
	s.running.Store(true)
	s.cfg.Metrics.ActiveSessions.Add(ctx, 1)
	defer func() {
		s.cfg.Metrics.ActiveSessions.Add(ctx, -1)
		s.running.Store(false)
	}()

	for {
		frame, ok := s.ingress.Pop(ctx, s.cfg.PopTimeout)
		if !ok {
			if ctx.Err() != nil {
				s.finalizeOnTeardown(time.Now())
				return
			}
			if s.ingressClosed() {
				s.finalizeOnTeardown(time.Now())
				return
			}
			continue
		}
		s.processFrame(ctx, frame)
	}
}

func (s *Session) ingressClosed() bool {
	return s.ingress.Metrics().Closed
}

// processFrame drives one frame through VAD, turn-state, and segmentation,
// dispatching a transcription if the frame finalizes an utterance.
func (s *Session) processFrame(ctx context.Context, frame types.Frame) {
	s.recordIngressMetrics(ctx)

	bgNoise := s.tracker.BackgroundNoise()

	vadStart := time.Now()
	decision, err := s.detector.ProcessFrame(frame.PCM, bgNoise)
	s.cfg.Metrics.VADDuration.Record(ctx, time.Since(vadStart).Seconds())
	if err != nil {
		// VadInferenceError: treat the frame as non-speech rather than
		// aborting the session.
		s.cfg.Metrics.RecordError(ctx, perr.VadInferenceError.String(), component)
		slog.Warn("vad inference failed, treating frame as non-speech",
			"session", s.cfg.SessionID, "err", err)
		decision = types.SpeechDecision{IsSpeech: false}
	} else if err := s.tracker.UpdateEnergy(decision.Energy); err != nil {
		slog.Warn("energy update rejected", "session", s.cfg.SessionID, "err", err)
	}

	isEoT, _, err := s.tracker.Observe(decision.IsSpeech, frame.Timestamp)
	if err != nil {
		s.cfg.Metrics.RecordError(ctx, perr.InvalidInput.String(), component)
		slog.Warn("turn-state observe rejected frame", "session", s.cfg.SessionID, "err", err)
		return
	}

	utterance, finalized, err := s.segments.AddFrame(frame.PCM, decision.IsSpeech, isEoT, frame.Timestamp)
	if err != nil {
		s.cfg.Metrics.RecordError(ctx, perr.SegmentationError.String(), component)
		slog.Warn("segment buffer rejected frame", "session", s.cfg.SessionID, "err", err)
		return
	}
	if !finalized {
		if isEoT {
			// isEoT with no finalized utterance means the segment buffer
			// discarded a too-short turn (below min_speech_samples).
			s.cfg.Metrics.UtterancesDiscarded.Add(ctx, 1)
		}
		return
	}

	reason := "eot"
	if utterance.SpeechSamples >= s.cfg.Segment.MaxSpeechSamples {
		reason = "safety_valve"
	}
	s.cfg.Metrics.RecordUtteranceFinalized(ctx, reason)

	utterance.SessionID = s.cfg.SessionID
	s.dispatch(ctx, utterance)
}

// recordIngressMetrics mirrors the ingress buffer's own counters into the
// OpenTelemetry instruments. It is called once per popped frame rather than
// from the ingress package itself, keeping pkg/ingress free of an
// internal/observe dependency.
func (s *Session) recordIngressMetrics(ctx context.Context) {
	m := s.ingress.Metrics()
	if attempted := m.FramesAttempted - s.lastAttemptCount; attempted > 0 {
		s.cfg.Metrics.FramesAttempted.Add(ctx, attempted)
		s.lastAttemptCount = m.FramesAttempted
	}
	if received := m.FramesReceived - s.lastReceiveCount; received > 0 {
		s.cfg.Metrics.FramesReceived.Add(ctx, received)
		s.lastReceiveCount = m.FramesReceived
	}
	if dropped := m.FramesDropped - s.lastDropCount; dropped > 0 {
		s.cfg.Metrics.FramesDropped.Add(ctx, dropped)
		s.lastDropCount = m.FramesDropped
	}
}

// finalizeOnTeardown flushes any in-flight utterance that has accumulated
// enough speech, so a session torn down mid-utterance doesn't silently
// discard the caller's last words.
func (s *Session) finalizeOnTeardown(now time.Time) {
	utterance, ok, err := s.segments.ForceFinalize(float64(now.UnixNano()) / 1e9)
	if err != nil {
		slog.Warn("force-finalize failed on teardown", "session", s.cfg.SessionID, "err", err)
		return
	}
	if !ok {
		return
	}
	utterance.SessionID = s.cfg.SessionID
	s.dispatch(context.Background(), utterance)
}

// dispatch runs transcription synchronously on the pipeline goroutine,
// wrapped by the circuit breaker, and delivers the result on Results
// without blocking: a full results channel drops the transcription rather
// than stalling the next utterance's frames.
func (s *Session) dispatch(ctx context.Context, utterance types.Utterance) {
	s.cfg.Metrics.InFlightASRJobs.Add(ctx, 1)
	asrStart := time.Now()

	var tr types.Transcription
	breakerErr := s.breaker.Execute(func() error {
		var err error
		tr, err = s.asrEngine.Transcribe(ctx, utterance, s.cfg.SampleRate)
		return err
	})

	s.cfg.Metrics.ASRDuration.Record(ctx, time.Since(asrStart).Seconds())
	s.cfg.Metrics.InFlightASRJobs.Add(ctx, -1)

	if breakerErr != nil && !errors.Is(breakerErr, resilience.ErrCircuitOpen) {
		s.cfg.Metrics.RecordError(ctx, perr.AsrTranscribeFailed.String(), component)
		slog.Warn("transcription failed", "session", s.cfg.SessionID, "err", breakerErr)
	}
	if errors.Is(breakerErr, resilience.ErrCircuitOpen) {
		tr = types.Transcription{Failed: true, AudioDurationMs: utterance.AudioLengthMs}
	}

	select {
	case s.results <- tr:
	default:
		slog.Warn("results channel full, dropping transcription", "session", s.cfg.SessionID)
	}
}

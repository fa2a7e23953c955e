// Package asr implements the automatic-speech-recognition front-end: a
// process-wide shared model behind a one-shot initializer, gated by a
// concurrency semaphore so a burst of simultaneous utterances across
// sessions can never oversubscribe the transcription backend.
package asr

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/saletech/speechcore/pkg/perr"
	"github.com/saletech/speechcore/pkg/types"
)

const component = "asr"

// Transcriber is the narrow capability the pipeline depends on: batch
// transcription of one utterance's PCM audio. Implementations are expected
// to be safe for concurrent use across sessions — the process-wide
// concurrency cap lives in Engine, one layer up, not in the Transcriber
// itself.
type Transcriber interface {
	// Transcribe runs inference over pcm (16-bit little-endian mono PCM at
	// sampleRate) and returns the recognized text plus segment-level
	// average log-probabilities used to derive confidence.
	Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (text string, avgLogprobs []float64, err error)
}

// Config holds the ASR front-end's concurrency and decoding parameters.
type Config struct {
	// MaxConcurrentJobs bounds in-flight Transcribe calls across the whole
	// process (asr_max_concurrent_jobs).
	MaxConcurrentJobs int

	// Language is the default BCP-47 language hint. Empty lets the backend
	// auto-detect.
	Language string
}

// Engine owns the shared Transcriber and the process-wide concurrency
// semaphore. Build one Engine per process with New, call Initialize once,
// and share it across every session's pipeline.
type Engine struct {
	cfg Config

	initOnce  sync.Once
	initErr   error
	backend   Transcriber
	buildFn   func() (Transcriber, error)

	sem *semaphore.Weighted
}

// New builds an Engine that lazily constructs its backend via buildFn on
// the first call to Initialize. buildFn typically loads model weights from
// disk, which may be slow — keeping it lazy means a process that never
// handles a call never pays that cost.
func New(cfg Config, buildFn func() (Transcriber, error)) *Engine {
	jobs := cfg.MaxConcurrentJobs
	if jobs <= 0 {
		jobs = 1
	}
	return &Engine{
		cfg:     cfg,
		buildFn: buildFn,
		sem:     semaphore.NewWeighted(int64(jobs)),
	}
}

// Initialize loads the backend model exactly once, including a warmup
// inference call, so that lazy kernel compilation happens here rather than
// on a caller's critical path. Safe to call concurrently; all callers
// observe the same result.
func (e *Engine) Initialize(ctx context.Context) error {
	e.initOnce.Do(func() {
		backend, err := e.buildFn()
		if err != nil {
			e.initErr = perr.Wrap(perr.AsrInitFailed, component, err)
			return
		}
		// Warmup: run inference on 1 second of silence to force any lazy
		// kernel compilation ahead of the first real utterance.
		warmup := make([]byte, 16000*2)
		if _, _, err := backend.Transcribe(ctx, warmup, 16000, e.cfg.Language); err != nil {
			e.initErr = perr.Wrap(perr.AsrInitFailed, component, err).WithContext("phase", "warmup")
			return
		}
		e.backend = backend
	})
	return e.initErr
}

// Transcribe acquires a concurrency slot, runs the backend, and converts
// the result into a types.Transcription. If the utterance's PCM is empty,
// returns a zero-confidence empty transcription without touching the
// backend or the semaphore. Returns NotInitialized if Initialize has not
// succeeded. A backend failure returns AsrTranscribeFailed wrapping the
// cause; the caller surfaces the failure as a Failed transcription rather
// than tearing down the session.
func (e *Engine) Transcribe(ctx context.Context, u types.Utterance, sampleRate int) (types.Transcription, error) {
	if e.backend == nil {
		return types.Transcription{}, perr.New(perr.NotInitialized, component)
	}
	if len(u.PCM) == 0 {
		return types.Transcription{Confidence: 0}, nil
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return types.Transcription{}, fmt.Errorf("asr: acquire concurrency slot: %w", err)
	}
	defer e.sem.Release(1)

	start := time.Now()
	text, avgLogprobs, err := e.backend.Transcribe(ctx, u.PCM, sampleRate, e.cfg.Language)
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		return types.Transcription{Failed: true, LatencyMs: latencyMs, AudioDurationMs: u.AudioLengthMs},
			perr.Wrap(perr.AsrTranscribeFailed, component, err).WithContext("session", u.SessionID)
	}

	return types.Transcription{
		Text:            text,
		Confidence:      confidenceFromLogprobs(avgLogprobs),
		Language:        e.cfg.Language,
		LatencyMs:       latencyMs,
		AudioDurationMs: u.AudioLengthMs,
	}, nil
}

// confidenceFromLogprobs implements conf = 1/(1+exp(-mean(avg_logprob))),
// clamped to [0,1]. Returns 0 for no segments.
func confidenceFromLogprobs(avgLogprobs []float64) float64 {
	if len(avgLogprobs) == 0 {
		return 0
	}
	var sum float64
	for _, lp := range avgLogprobs {
		sum += lp
	}
	mean := sum / float64(len(avgLogprobs))
	conf := 1.0 / (1.0 + math.Exp(-mean))
	return math.Max(0, math.Min(1, conf))
}

package asr

import (
	"context"
	"errors"
	"testing"

	"github.com/saletech/speechcore/pkg/asr/mock"
	"github.com/saletech/speechcore/pkg/perr"
	"github.com/saletech/speechcore/pkg/types"
)

func TestTranscribeBeforeInitializeIsNotInitialized(t *testing.T) {
	backend := &mock.Backend{}
	e := New(Config{MaxConcurrentJobs: 2}, func() (Transcriber, error) { return backend, nil })

	_, err := e.Transcribe(context.Background(), types.Utterance{PCM: []byte{1, 2}}, 16000)
	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.NotInitialized {
		t.Fatalf("expected NotInitialized, got %v", err)
	}
}

func TestInitializeRunsWarmupOnce(t *testing.T) {
	backend := &mock.Backend{Text: "ok"}
	var builds int
	e := New(Config{MaxConcurrentJobs: 2}, func() (Transcriber, error) {
		builds++
		return backend, nil
	})

	for i := 0; i < 3; i++ {
		if err := e.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
	}
	if builds != 1 {
		t.Fatalf("buildFn called %d times, want 1", builds)
	}
	if len(backend.Calls) != 1 {
		t.Fatalf("expected exactly one warmup Transcribe call, got %d", len(backend.Calls))
	}
}

func TestTranscribeComputesConfidenceFromLogprobs(t *testing.T) {
	backend := &mock.Backend{Text: "hello world", AvgLogprobs: []float64{-0.1, -0.3}}
	e := New(Config{MaxConcurrentJobs: 1}, func() (Transcriber, error) { return backend, nil })
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	tr, err := e.Transcribe(context.Background(), types.Utterance{PCM: []byte{1, 2, 3, 4}, SessionID: "s1"}, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hello world" {
		t.Fatalf("Text = %q", tr.Text)
	}
	if tr.Confidence <= 0 || tr.Confidence >= 1 {
		t.Fatalf("Confidence = %v, want in (0,1)", tr.Confidence)
	}
}

func TestTranscribeEmptyPCMShortCircuits(t *testing.T) {
	backend := &mock.Backend{Text: "should not be called"}
	e := New(Config{MaxConcurrentJobs: 1}, func() (Transcriber, error) { return backend, nil })
	_ = e.Initialize(context.Background())

	tr, err := e.Transcribe(context.Background(), types.Utterance{}, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Confidence != 0 || tr.Text != "" {
		t.Fatalf("expected zero-valued transcription for empty PCM, got %+v", tr)
	}
	if len(backend.Calls) != 1 { // only the warmup call from Initialize
		t.Fatalf("expected backend not called for empty utterance, calls=%d", len(backend.Calls))
	}
}

func TestInitializeWarmupFailureIsError(t *testing.T) {
	backend := &mock.Backend{Err: errors.New("boom")}
	e := New(Config{MaxConcurrentJobs: 1}, func() (Transcriber, error) { return backend, nil })
	if err := e.Initialize(context.Background()); err == nil {
		t.Fatal("expected warmup to fail since backend.Err is set")
	}
}

func TestTranscribeFailureAfterSuccessfulInit(t *testing.T) {
	backend := &mock.Backend{}
	e := New(Config{MaxConcurrentJobs: 1}, func() (Transcriber, error) { return backend, nil })
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	backend.Err = errors.New("boom")

	tr, err := e.Transcribe(context.Background(), types.Utterance{PCM: []byte{1, 2}}, 16000)
	var pe *perr.Error
	if !errors.As(err, &pe) || pe.Kind != perr.AsrTranscribeFailed {
		t.Fatalf("expected AsrTranscribeFailed, got %v", err)
	}
	if !tr.Failed {
		t.Fatal("expected Failed=true on the returned transcription")
	}
}

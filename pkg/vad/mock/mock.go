// Package mock provides test doubles for the vad package's interfaces.
package mock

import (
	"sync"

	"github.com/saletech/speechcore/pkg/types"
	"github.com/saletech/speechcore/pkg/vad"
)

// NewSessionCall records a single invocation of Engine.NewSession.
type NewSessionCall struct {
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Detector is returned by NewSession. If nil, a new Detector is built.
	Detector vad.SpeechDetector

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	NewSessionCalls []NewSessionCall
}

// NewSession records the call and returns Detector, NewSessionErr.
func (e *Engine) NewSession(cfg vad.Config) (vad.SpeechDetector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, NewSessionCall{Cfg: cfg})
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Detector != nil {
		return e.Detector, nil
	}
	return &Detector{}, nil
}

var _ vad.Engine = (*Engine)(nil)

// ProcessFrameCall records a single invocation of Detector.ProcessFrame.
type ProcessFrameCall struct {
	PCM             []byte
	BackgroundNoise float64
}

// Detector is a mock implementation of vad.SpeechDetector.
type Detector struct {
	mu sync.Mutex

	// Decision is returned by every ProcessFrame call, unless Decisions is set.
	Decision types.SpeechDecision

	// Decisions, if non-empty, is consumed in order by successive
	// ProcessFrame calls; the last entry repeats once exhausted.
	Decisions []types.SpeechDecision

	// ProcessFrameErr, if non-nil, is returned by every ProcessFrame call.
	ProcessFrameErr error

	CloseErr error

	ProcessFrameCalls []ProcessFrameCall
	ResetCallCount    int
	CloseCallCount    int
}

// ProcessFrame records the call and returns the next queued decision (or
// Decision if Decisions is empty) and ProcessFrameErr.
func (d *Detector) ProcessFrame(pcm []byte, backgroundNoise float64) (types.SpeechDecision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	d.ProcessFrameCalls = append(d.ProcessFrameCalls, ProcessFrameCall{PCM: cp, BackgroundNoise: backgroundNoise})

	if d.ProcessFrameErr != nil {
		return types.SpeechDecision{}, d.ProcessFrameErr
	}
	if len(d.Decisions) == 0 {
		return d.Decision, nil
	}
	idx := len(d.ProcessFrameCalls) - 1
	if idx >= len(d.Decisions) {
		idx = len(d.Decisions) - 1
	}
	return d.Decisions[idx], nil
}

// Reset increments ResetCallCount.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ResetCallCount++
}

// Close increments CloseCallCount and returns CloseErr.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCallCount++
	return d.CloseErr
}

var _ vad.SpeechDetector = (*Detector)(nil)

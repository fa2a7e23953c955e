// Package vad implements the dual voice-activity detector: a neural
// sub-detector and a classical sub-detector fused under an adaptive onset
// threshold. Detection is synchronous and stateless across frames except for
// each sub-detector's own internal buffering, so the package exposes a
// narrow SpeechDetector capability rather than the broader session/event
// abstraction a duck-typed "model" object would expose.
package vad

import (
	"math"
	"time"

	"github.com/saletech/speechcore/pkg/perr"
	"github.com/saletech/speechcore/pkg/types"
)

const component = "vad"

// Config holds the parameters for a detection session. SampleRate and
// FrameDurationMs pin the shape every ProcessFrame call must match; these
// are immutable once a session is built (changing them requires a new
// session, never a mutation of a live one).
type Config struct {
	// SampleRate is the PCM sample rate in Hz. The classical detector
	// additionally requires this to be one of 8000, 16000, 32000, 48000.
	SampleRate int

	// FrameDurationMs is the duration of each frame in milliseconds. The
	// classical detector additionally requires this to be 10, 20, or 30.
	FrameDurationMs int

	// BaseOnsetThreshold is the onset threshold floor before noise scaling
	// (base_onset in the adaptive-threshold formula). Default 0.5.
	BaseOnsetThreshold float64

	// MinSNR is the floor signal-to-noise ratio below which a frame is
	// never classified as speech, regardless of sub-detector confidence.
	// Default 2.0.
	MinSNR float64
}

// DefaultConfig returns the spec's default onset/SNR parameters for the
// given sample rate and frame duration.
func DefaultConfig(sampleRate, frameDurationMs int) Config {
	return Config{
		SampleRate:         sampleRate,
		FrameDurationMs:    frameDurationMs,
		BaseOnsetThreshold: 0.5,
		MinSNR:             2.0,
	}
}

// NeuralDetector is the narrow capability a neural VAD backend exposes: run
// inference on a fixed-size float32 window and return a raw speech
// probability. Implementations own their own windowing/buffering.
type NeuralDetector interface {
	// Infer returns the neural speech probability for one frame's samples.
	Infer(samples []float32) (float64, error)

	// Reset clears internal recurrent state.
	Reset()

	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// ClassicalDetector is the narrow capability a classical VAD backend
// exposes: a boolean speech/non-speech decision for one PCM frame.
type ClassicalDetector interface {
	// IsSpeech returns the boolean decision for one int16 PCM frame.
	IsSpeech(pcm []byte) (bool, error)

	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// SpeechDetector is the capability the rest of the pipeline depends on: a
// per-frame fused decision given the caller-supplied current background
// noise estimate. The caller (the turn-state tracker, via the orchestrator)
// owns the noise estimate's rolling window; this keeps the VAD engine itself
// stateless across frames and avoids a circular package dependency between
// vad and turnstate.
type SpeechDetector interface {
	// ProcessFrame analyses one PCM frame against the given background
	// noise estimate and returns the fused decision.
	ProcessFrame(pcm []byte, backgroundNoise float64) (types.SpeechDecision, error)

	// Reset clears accumulated sub-detector state (e.g. RNN hidden state).
	Reset()

	// Close releases all resources. Safe to call more than once.
	Close() error
}

// Engine is the factory for detection sessions, mirroring the one-shot,
// process-lifetime model init pattern: model weights are loaded once and
// sessions are cheap, stateless-between-frames views over them.
type Engine interface {
	NewSession(cfg Config) (SpeechDetector, error)
}

// Composite fuses a NeuralDetector and a ClassicalDetector under the
// adaptive-threshold rule. It is a build-tag-independent SpeechDetector: the
// concrete sub-detectors (packages neural and classical, paired by
// NewSileroWebRTCEngine) are selected at link time via Go build tags, and
// Composite glues whatever pair it is given.
type Composite struct {
	cfg      Config
	neural   NeuralDetector
	classical ClassicalDetector
}

// NewComposite builds a fused detector session from an already-constructed
// neural and classical sub-detector pair.
func NewComposite(cfg Config, neural NeuralDetector, classical ClassicalDetector) *Composite {
	return &Composite{cfg: cfg, neural: neural, classical: classical}
}

// AdaptiveOnsetThreshold computes min(0.8, base_onset + min(0.3, 10 * backgroundNoise)).
func AdaptiveOnsetThreshold(baseOnset, backgroundNoise float64) float64 {
	return math.Min(0.8, baseOnset+math.Min(0.3, 10*backgroundNoise))
}

// Energy returns sqrt(mean(x^2)) over float32 samples.
func Energy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += float64(s) * float64(s)
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// pcmToFloat32 converts little-endian int16 PCM to float32 samples in [-1, 1].
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := range n {
		u := uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8
		out[i] = float32(int16(u)) / 32768.0
	}
	return out
}

// ProcessFrame implements SpeechDetector.
func (c *Composite) ProcessFrame(pcm []byte, backgroundNoise float64) (types.SpeechDecision, error) {
	if len(pcm) == 0 {
		return types.SpeechDecision{}, perr.New(perr.InvalidFrame, component)
	}
	start := time.Now()

	samples := pcmToFloat32(pcm)
	energy := Energy(samples)
	snr := energy / (backgroundNoise + 1e-6)
	threshold := AdaptiveOnsetThreshold(c.cfg.BaseOnsetThreshold, backgroundNoise)

	prob, err := c.neural.Infer(samples)
	if err != nil {
		return types.SpeechDecision{}, perr.Wrap(perr.VadInferenceError, component, err).WithContext("detector", "neural")
	}

	classicalSpeech, err := c.classical.IsSpeech(pcm)
	if err != nil {
		return types.SpeechDecision{}, perr.Wrap(perr.VadInferenceError, component, err).WithContext("detector", "classical")
	}

	isSpeech := (prob >= threshold || (prob >= 0.3 && classicalSpeech)) && snr >= c.cfg.MinSNR

	return types.SpeechDecision{
		IsSpeech:          isSpeech,
		Confidence:        prob,
		Energy:            energy,
		SNR:               snr,
		AdaptiveThreshold: threshold,
		LatencyMs:         float64(time.Since(start)) / float64(time.Millisecond),
	}, nil
}

// Reset clears the neural sub-detector's state. ClassicalDetector exposes
// no Reset, so the classical sub-detector is left as it is.
func (c *Composite) Reset() {
	c.neural.Reset()
}

// Close releases both sub-detectors.
func (c *Composite) Close() error {
	nerr := c.neural.Close()
	cerr := c.classical.Close()
	if nerr != nil {
		return nerr
	}
	return cerr
}

var _ SpeechDetector = (*Composite)(nil)

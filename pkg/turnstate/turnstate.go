// Package turnstate implements the per-session conversational state
// machine: speech/silence edge detection, the adaptive end-of-turn
// threshold, and the background noise estimate the VAD engine's adaptive
// onset threshold depends on.
package turnstate

import (
	"math"

	"github.com/saletech/speechcore/pkg/perr"
	"github.com/saletech/speechcore/pkg/types"
)

const component = "turnstate"

const (
	energyHistoryCapacity = 100
	speakingRateCapacity  = 10
	noiseFloor            = 0.01
	noiseWindowSamples    = 20
	minRateSamples        = 3
)

// State identifies the tracker's position in the IDLE/SPEAKING/
// SILENCE_PENDING state machine. TURN_END is not a resting state: it is the
// instantaneous transition Observe reports before the tracker resets to
// IDLE within the same call.
type State int

const (
	Idle State = iota
	Speaking
	SilencePending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Speaking:
		return "SPEAKING"
	case SilencePending:
		return "SILENCE_PENDING"
	default:
		return "UNKNOWN"
	}
}

// Config holds the tracker's tunable parameters.
type Config struct {
	// BaseEoTMs is the default end-of-turn silence threshold in
	// milliseconds, used when adaptive mode is disabled or there is
	// insufficient history. Default 600.
	BaseEoTMs float64

	// AdaptiveEoTEnabled turns on speaking-rate-scaled EoT thresholds.
	AdaptiveEoTEnabled bool
}

// DefaultConfig returns the spec's default tuning.
func DefaultConfig() Config {
	return Config{BaseEoTMs: 600, AdaptiveEoTEnabled: true}
}

// Tracker is one session's conversational state. Not safe for concurrent
// use; the owning pipeline orchestrator is its single caller.
type Tracker struct {
	cfg Config

	state State

	speechActive   bool
	speechStartTS  float64
	lastSpeechTS   float64
	silenceStartTS float64
	hasSilence     bool

	energyHistory      []float64
	speakingRateHistory []float64
}

// New builds a Tracker in the IDLE state.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// State returns the tracker's current state.
func (t *Tracker) State() State {
	return t.state
}

// UpdateEnergy appends a frame's energy to the rolling background-noise
// window. Call once per frame, after the VAD engine returns its decision's
// Energy field.
func (t *Tracker) UpdateEnergy(energy float64) error {
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return perr.New(perr.InvalidInput, component).WithContext("field", "energy")
	}
	t.energyHistory = append(t.energyHistory, energy)
	if len(t.energyHistory) > energyHistoryCapacity {
		t.energyHistory = t.energyHistory[len(t.energyHistory)-energyHistoryCapacity:]
	}
	return nil
}

// BackgroundNoise estimates the ambient noise floor from the rolling energy
// window: a fixed floor until 10 samples have accumulated, then the mean of
// the last 20 samples.
func (t *Tracker) BackgroundNoise() float64 {
	if len(t.energyHistory) < 10 {
		return noiseFloor
	}
	window := t.energyHistory
	if len(window) > noiseWindowSamples {
		window = window[len(window)-noiseWindowSamples:]
	}
	var sum float64
	for _, e := range window {
		sum += e
	}
	return sum / float64(len(window))
}

// Observe feeds one frame's speech decision and timestamp into the state
// machine. It returns true iff this frame triggers a TURN_END transition,
// together with debug metadata about the silence/speech durations and the
// EoT threshold compared against them (zero-valued outside
// SILENCE_PENDING).
func (t *Tracker) Observe(isSpeech bool, timestampSec float64) (bool, types.EoTMeta, error) {
	if math.IsNaN(timestampSec) || math.IsInf(timestampSec, 0) {
		return false, types.EoTMeta{}, perr.New(perr.InvalidInput, component).WithContext("field", "timestamp")
	}

	if isSpeech {
		if !t.speechActive {
			t.speechActive = true
			t.speechStartTS = timestampSec
			t.hasSilence = false
		}
		t.lastSpeechTS = timestampSec
		t.state = Speaking
		return false, types.EoTMeta{}, nil
	}

	if !t.speechActive {
		t.state = Idle
		return false, types.EoTMeta{}, nil
	}

	if !t.hasSilence {
		t.silenceStartTS = timestampSec
		t.hasSilence = true
	}
	t.state = SilencePending

	silenceMs := (timestampSec - t.silenceStartTS) * 1000
	var speechMs float64
	if t.lastSpeechTS != 0 || t.speechStartTS != 0 {
		speechMs = (t.lastSpeechTS - t.speechStartTS) * 1000
	}
	eotThreshold := t.adaptiveEoTThreshold(speechMs)

	meta := types.EoTMeta{SilenceMs: silenceMs, SpeechMs: speechMs, EoTThresholdMs: eotThreshold}

	if silenceMs >= eotThreshold {
		t.resetSpeechState()
		t.speakingRateHistory = append(t.speakingRateHistory, speechMs)
		if len(t.speakingRateHistory) > speakingRateCapacity {
			t.speakingRateHistory = t.speakingRateHistory[len(t.speakingRateHistory)-speakingRateCapacity:]
		}
		t.state = Idle
		return true, meta, nil
	}

	return false, meta, nil
}

// adaptiveEoTThreshold implements the spec's speaking-rate scaling: scale
// the base threshold down for fast speakers and up for slow speakers, once
// enough utterance-duration history has accumulated.
func (t *Tracker) adaptiveEoTThreshold(_ float64) float64 {
	if !t.cfg.AdaptiveEoTEnabled || len(t.speakingRateHistory) < minRateSamples {
		return t.cfg.BaseEoTMs
	}
	var sum float64
	for _, d := range t.speakingRateHistory {
		sum += d
	}
	avg := sum / float64(len(t.speakingRateHistory))

	switch {
	case avg < 1000:
		return t.cfg.BaseEoTMs * 0.7
	case avg > 3000:
		return t.cfg.BaseEoTMs * 1.2
	default:
		return t.cfg.BaseEoTMs
	}
}

func (t *Tracker) resetSpeechState() {
	t.speechActive = false
	t.speechStartTS = 0
	t.lastSpeechTS = 0
	t.silenceStartTS = 0
	t.hasSilence = false
}

// Reset clears all state for session restart or barge-in: the speech/
// silence edges, the rolling energy window, and the speaking-rate history.
func (t *Tracker) Reset() {
	t.resetSpeechState()
	t.energyHistory = nil
	t.speakingRateHistory = nil
	t.state = Idle
}

// Package types defines the shared data model that flows through the speech
// pipeline: Frame, SpeechDecision, Utterance, Transcription, SegmentMetrics,
// EoTMeta, and PipelineMetrics. These are the lingua franca between the ingress buffer,
// the VAD engine, the turn-state tracker, the segment buffer, and the ASR
// front-end — kept here to avoid circular imports between those packages.
package types

import "time"

// Frame is one quantum of audio: a fixed-duration block of 16-bit signed
// little-endian mono PCM samples, plus the monotonic timestamp at which it
// was captured (seconds, relative to stream start).
type Frame struct {
	// PCM is the raw sample payload. Its length is fixed at configuration
	// time: sample_rate * frame_duration_ms / 1000 samples, 2 bytes each.
	PCM []byte

	// Timestamp is when this frame was captured, in seconds.
	Timestamp float64
}

// SpeechDecision is the per-frame output of the VAD engine.
type SpeechDecision struct {
	// IsSpeech is the fused speech/non-speech decision for this frame.
	IsSpeech bool

	// Confidence is the neural detector's raw speech probability, in [0,1].
	Confidence float64

	// Energy is sqrt(mean(x^2)) over the frame's float samples.
	Energy float64

	// SNR is Energy / (background_noise + 1e-6).
	SNR float64

	// AdaptiveThreshold is the onset threshold used to reach this decision.
	AdaptiveThreshold float64

	// LatencyMs is the wall-clock time spent running both sub-detectors.
	LatencyMs float64
}

// Utterance is a finalized speech segment: concatenated PCM samples plus the
// metadata the segment buffer computed at finalization time.
type Utterance struct {
	// SessionID identifies the pipeline this utterance belongs to.
	SessionID string

	// PCM is the concatenated sample bytes, in arrival order: pre-roll frames
	// followed by every frame observed while in_speech.
	PCM []byte

	// StartTS and EndTS bound the utterance, in seconds.
	StartTS float64
	EndTS   float64

	// DurationMs is (EndTS - StartTS) * 1000.
	DurationMs float64

	// AudioLengthMs is the PCM sample count converted to milliseconds at the
	// pipeline's configured sample rate.
	AudioLengthMs float64

	// SpeechSamples is the count of speech-classified samples, excluding
	// pre-roll padding and non-speech frames inside the utterance.
	SpeechSamples int
}

// Transcription is the ASR front-end's output for one Utterance.
type Transcription struct {
	// Text is the transcribed speech content, trimmed, single-spaced between
	// segments.
	Text string

	// Confidence is in [0,1]; computed from per-segment average log
	// probability, or 0 for empty input or a failed transcription.
	Confidence float64

	// Language is the BCP-47 language code, if known.
	Language string

	// LatencyMs is the wall-clock transcription time.
	LatencyMs float64

	// AudioDurationMs is the transcribed utterance's audio length.
	AudioDurationMs float64

	// Failed marks a transcription that could not be produced (AsrTranscribeFailed).
	// Text and Confidence are zero-valued when Failed is true.
	Failed bool
}

// PipelineMetrics is the liveness/QoS counter set exposed by the ingress
// buffer for one pipeline.
type PipelineMetrics struct {
	FramesAttempted int64
	FramesReceived  int64
	FramesDropped   int64
	DropRate        float64
	QueueSize       int
	LastFrameTS     float64
	Closed          bool
}

// SegmentMetrics is the state snapshot exposed by the segment buffer.
type SegmentMetrics struct {
	InSpeech       bool
	SpeechSamples  int
	SilenceSamples int
	FramesBuffered int
}

// EoTMeta carries the turn-state tracker's debug context for one Observe
// call: silence/speech durations and the threshold that was compared against
// them. Zero-valued outside the SILENCE_PENDING state.
type EoTMeta struct {
	SilenceMs       float64
	SpeechMs        float64
	EoTThresholdMs  float64
}

// now is overridable in tests; production code calls time.Now().
var now = time.Now

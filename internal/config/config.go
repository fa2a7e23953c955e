// Package config provides the configuration schema, loader, and backend
// registry for the speech pipeline.
package config

// Config is the root configuration structure for the speech pipeline.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	VAD      VADConfig      `yaml:"vad"`
	ASR      ASRConfig      `yaml:"asr"`
}

// ServerConfig holds process-level network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics HTTP server listens
	// on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// PipelineConfig holds the frame-shape and session-capacity parameters
// shared by every stage of the pipeline. SampleRate and ChunkDurationMs pin
// the shape of every audio frame flowing through the system; changing
// either after startup requires a fresh session, never a mutation of a
// live one, so the hot-reload watcher treats both as immutable.
type PipelineConfig struct {
	// SampleRate is the PCM sample rate in Hz. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// ChunkDurationMs is the duration of one audio frame in milliseconds.
	// Default 20.
	ChunkDurationMs int `yaml:"chunk_duration_ms"`

	// MaxFrames bounds the ingress buffer's capacity (frames). Default 1000.
	MaxFrames int `yaml:"max_frames"`

	// MaxSessions is loaded but read by no component: the speechcore
	// binary runs a single session and enforces no session cap.
	MaxSessions int `yaml:"max_sessions"`
}

// VADConfig holds the voice-activity-detector and turn-state tuning
// parameters. The speechcore binary reads them once at startup; the
// watcher reports a later change to them as requiring a restart.
type VADConfig struct {
	// Aggressiveness selects the classical detector's sensitivity, 0-3
	// (WebRTC VAD convention: 0 is least aggressive about filtering out
	// non-speech, 3 is most aggressive). Default 2.
	Aggressiveness int `yaml:"aggressiveness"`

	// SpeechOnsetThreshold is base_onset in the adaptive-threshold formula.
	// Default 0.5.
	SpeechOnsetThreshold float64 `yaml:"speech_onset_threshold"`

	// MinSNR is the floor signal-to-noise ratio below which a frame is
	// never classified as speech. Default 2.0.
	MinSNR float64 `yaml:"min_snr"`

	// MinSpeechDurationMs is the speech-only duration below which an
	// end-of-turn discards the utterance as noise. Default 200.
	MinSpeechDurationMs int `yaml:"min_speech_duration_ms"`

	// MaxSpeechDurationMs is the safety-valve cap: an utterance is
	// force-finalized at this duration regardless of end-of-turn.
	// Default 15000.
	MaxSpeechDurationMs int `yaml:"max_speech_duration_ms"`

	// SpeechPadMs is the pre-roll padding prepended at speech onset.
	// Default 300.
	SpeechPadMs int `yaml:"speech_pad_ms"`

	// EoTSilenceDurationMs is the base end-of-turn silence threshold.
	// Default 600.
	EoTSilenceDurationMs int `yaml:"eot_silence_duration_ms"`

	// EoTAdaptiveEnabled turns on speaking-rate-scaled EoT thresholds.
	// ApplyDefaults leaves it unchanged, so it is off unless set to true.
	EoTAdaptiveEnabled bool `yaml:"eot_adaptive_enabled"`

	// Workers is defaulted to 2 but read by no component; VAD runs inline
	// on each session's loop.
	Workers int `yaml:"workers"`

	// ModelPath is the path to the neural detector's ONNX model file. Read
	// once at engine construction time by the "silero-webrtc" backend.
	ModelPath string `yaml:"model_path"`

	// OnnxLibraryPath is the path to the ONNX Runtime shared library
	// (libonnxruntime.so/.dylib/.dll), required by the "silero-webrtc"
	// backend's neural detector.
	OnnxLibraryPath string `yaml:"onnx_library_path"`

	// Backend selects the registered [Registry] VAD engine factory by name
	// ("mock" or "silero-webrtc"). Empty selects "mock".
	Backend string `yaml:"backend"`
}

// ASRConfig holds the speech-recognition front-end's tuning parameters.
type ASRConfig struct {
	// ModelPath is the path to the whisper.cpp model file.
	ModelPath string `yaml:"model_path"`

	// Language is the default BCP-47 language hint. Empty auto-detects.
	Language string `yaml:"language"`

	// BeamSize is the decoder beam width. Default 1.
	BeamSize int `yaml:"beam_size"`

	// BestOf is the number of candidate decodings sampled when not using
	// beam search. Default 1.
	BestOf int `yaml:"best_of"`

	// MaxConcurrentJobs bounds in-flight transcription calls across the
	// whole process. Default 2.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// Workers defaults to MaxConcurrentJobs but is read by no component;
	// the concurrency semaphore is sized from MaxConcurrentJobs alone.
	Workers int `yaml:"workers"`

	// Backend selects the registered [Registry] ASR transcriber factory by
	// name (e.g. "whisper-cpp"). Empty selects "mock".
	Backend string `yaml:"backend"`
}

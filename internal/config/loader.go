package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// validLogLevels lists the accepted values for Server.LogLevel.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// Load reads the YAML configuration file at path, applies defaults, and
// returns a validated [Config]. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for any
// zero-valued tunable, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in every zero-valued tunable with the spec's default,
// matching the original system's defaults (StreamingVadBuffer/vad_state):
// 16 kHz, 20 ms frames, base_onset 0.5, min_snr 2.0, 600 ms end-of-turn
// silence, 15 s safety-valve cap.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}

	if cfg.Pipeline.SampleRate <= 0 {
		cfg.Pipeline.SampleRate = 16000
	}
	if cfg.Pipeline.ChunkDurationMs <= 0 {
		cfg.Pipeline.ChunkDurationMs = 20
	}
	if cfg.Pipeline.MaxFrames <= 0 {
		cfg.Pipeline.MaxFrames = 1000
	}

	if cfg.VAD.Aggressiveness == 0 {
		cfg.VAD.Aggressiveness = 2
	}
	if cfg.VAD.SpeechOnsetThreshold == 0 {
		cfg.VAD.SpeechOnsetThreshold = 0.5
	}
	if cfg.VAD.MinSNR == 0 {
		cfg.VAD.MinSNR = 2.0
	}
	if cfg.VAD.MinSpeechDurationMs == 0 {
		cfg.VAD.MinSpeechDurationMs = 200
	}
	if cfg.VAD.MaxSpeechDurationMs == 0 {
		cfg.VAD.MaxSpeechDurationMs = 15000
	}
	if cfg.VAD.SpeechPadMs == 0 {
		cfg.VAD.SpeechPadMs = 300
	}
	if cfg.VAD.EoTSilenceDurationMs == 0 {
		cfg.VAD.EoTSilenceDurationMs = 600
	}
	if cfg.VAD.Workers <= 0 {
		cfg.VAD.Workers = 2
	}

	if cfg.ASR.BeamSize <= 0 {
		cfg.ASR.BeamSize = 1
	}
	if cfg.ASR.BestOf <= 0 {
		cfg.ASR.BestOf = 1
	}
	if cfg.ASR.MaxConcurrentJobs <= 0 {
		cfg.ASR.MaxConcurrentJobs = 2
	}
	if cfg.ASR.Workers <= 0 {
		cfg.ASR.Workers = cfg.ASR.MaxConcurrentJobs
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !slices.Contains(validLogLevels, cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: %v", cfg.Server.LogLevel, validLogLevels))
	}

	if cfg.Pipeline.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.sample_rate must be positive, got %d", cfg.Pipeline.SampleRate))
	}
	if cfg.Pipeline.ChunkDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.chunk_duration_ms must be positive, got %d", cfg.Pipeline.ChunkDurationMs))
	}
	if cfg.Pipeline.MaxFrames <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_frames must be positive, got %d", cfg.Pipeline.MaxFrames))
	}

	if cfg.VAD.Aggressiveness < 0 || cfg.VAD.Aggressiveness > 3 {
		errs = append(errs, fmt.Errorf("vad.aggressiveness must be in [0,3], got %d", cfg.VAD.Aggressiveness))
	}
	if cfg.VAD.SpeechOnsetThreshold < 0 || cfg.VAD.SpeechOnsetThreshold > 1 {
		errs = append(errs, fmt.Errorf("vad.speech_onset_threshold must be in [0,1], got %v", cfg.VAD.SpeechOnsetThreshold))
	}
	if cfg.VAD.MinSpeechDurationMs > 0 && cfg.VAD.MaxSpeechDurationMs > 0 && cfg.VAD.MinSpeechDurationMs >= cfg.VAD.MaxSpeechDurationMs {
		errs = append(errs, fmt.Errorf("vad.min_speech_duration_ms (%d) must be less than vad.max_speech_duration_ms (%d)", cfg.VAD.MinSpeechDurationMs, cfg.VAD.MaxSpeechDurationMs))
	}

	if cfg.ASR.MaxConcurrentJobs <= 0 {
		errs = append(errs, fmt.Errorf("asr.max_concurrent_jobs must be positive, got %d", cfg.ASR.MaxConcurrentJobs))
	}
	if cfg.ASR.BeamSize <= 0 {
		errs = append(errs, fmt.Errorf("asr.beam_size must be positive, got %d", cfg.ASR.BeamSize))
	}

	return errors.Join(errs...)
}

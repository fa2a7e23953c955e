package config_test

import (
	"strings"
	"testing"

	"github.com/saletech/speechcore/internal/config"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(``))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.Pipeline.SampleRate)
	}
	if cfg.Pipeline.ChunkDurationMs != 20 {
		t.Errorf("ChunkDurationMs = %d, want 20", cfg.Pipeline.ChunkDurationMs)
	}
	if cfg.Pipeline.MaxFrames != 1000 {
		t.Errorf("MaxFrames = %d, want 1000", cfg.Pipeline.MaxFrames)
	}
	if cfg.VAD.SpeechOnsetThreshold != 0.5 {
		t.Errorf("SpeechOnsetThreshold = %v, want 0.5", cfg.VAD.SpeechOnsetThreshold)
	}
	if cfg.VAD.MinSNR != 2.0 {
		t.Errorf("MinSNR = %v, want 2.0", cfg.VAD.MinSNR)
	}
	if cfg.VAD.EoTSilenceDurationMs != 600 {
		t.Errorf("EoTSilenceDurationMs = %d, want 600", cfg.VAD.EoTSilenceDurationMs)
	}
	if cfg.VAD.MaxSpeechDurationMs != 15000 {
		t.Errorf("MaxSpeechDurationMs = %d, want 15000", cfg.VAD.MaxSpeechDurationMs)
	}
	if cfg.ASR.BeamSize != 1 || cfg.ASR.BestOf != 1 {
		t.Errorf("BeamSize/BestOf = %d/%d, want 1/1", cfg.ASR.BeamSize, cfg.ASR.BestOf)
	}
	if cfg.ASR.MaxConcurrentJobs != 2 {
		t.Errorf("MaxConcurrentJobs = %d, want 2", cfg.ASR.MaxConcurrentJobs)
	}
}

func TestLoadFromReader_OverridesDefaults(t *testing.T) {
	yaml := `
pipeline:
  sample_rate: 8000
  chunk_duration_ms: 10
vad:
  aggressiveness: 3
  eot_adaptive_enabled: true
asr:
  beam_size: 5
  max_concurrent_jobs: 4
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", cfg.Pipeline.SampleRate)
	}
	if cfg.VAD.Aggressiveness != 3 {
		t.Errorf("Aggressiveness = %d, want 3", cfg.VAD.Aggressiveness)
	}
	if cfg.ASR.BeamSize != 5 {
		t.Errorf("BeamSize = %d, want 5", cfg.ASR.BeamSize)
	}
	if cfg.ASR.MaxConcurrentJobs != 4 {
		t.Errorf("MaxConcurrentJobs = %d, want 4", cfg.ASR.MaxConcurrentJobs)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	yaml := `
pipeline:
  sampl_rate: 8000
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

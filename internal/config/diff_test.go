package config_test

import (
	"testing"

	"github.com/saletech/speechcore/internal/config"
)

func TestDiff_DetectsLogLevelChange(t *testing.T) {
	old := &config.Config{Server: config.ServerConfig{LogLevel: "info"}}
	newCfg := &config.Config{Server: config.ServerConfig{LogLevel: "debug"}}

	d := config.Diff(old, newCfg)
	if !d.LogLevelChanged {
		t.Fatal("expected LogLevelChanged = true")
	}
	if d.NewLogLevel != "debug" {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
}

func TestDiff_DetectsVADChange(t *testing.T) {
	old := &config.Config{VAD: config.VADConfig{EoTSilenceDurationMs: 600}}
	newCfg := &config.Config{VAD: config.VADConfig{EoTSilenceDurationMs: 800}}

	d := config.Diff(old, newCfg)
	if !d.VADChanged {
		t.Fatal("expected VADChanged = true")
	}
	if d.NewVAD.EoTSilenceDurationMs != 800 {
		t.Errorf("NewVAD.EoTSilenceDurationMs = %d, want 800", d.NewVAD.EoTSilenceDurationMs)
	}
}

func TestDiff_DetectsASRChange(t *testing.T) {
	old := &config.Config{ASR: config.ASRConfig{BeamSize: 1}}
	newCfg := &config.Config{ASR: config.ASRConfig{BeamSize: 5}}

	d := config.Diff(old, newCfg)
	if !d.ASRChanged {
		t.Fatal("expected ASRChanged = true")
	}
}

func TestDiff_NoChanges(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: "info"},
		VAD:    config.VADConfig{EoTSilenceDurationMs: 600},
		ASR:    config.ASRConfig{BeamSize: 1},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged || d.VADChanged || d.ASRChanged {
		t.Fatalf("expected no changes, got %+v", d)
	}
}

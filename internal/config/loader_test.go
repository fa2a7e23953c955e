package config_test

import (
	"strings"
	"testing"

	"github.com/saletech/speechcore/internal/config"
)

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	yaml := `
server:
  log_level: bananas
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected an error for an invalid log level")
	}
}

func TestValidate_RejectsOutOfRangeAggressiveness(t *testing.T) {
	yaml := `
vad:
  aggressiveness: 9
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected an error for aggressiveness out of [0,3]")
	}
}

func TestValidate_RejectsOutOfRangeOnsetThreshold(t *testing.T) {
	yaml := `
vad:
  speech_onset_threshold: 1.5
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected an error for onset threshold out of [0,1]")
	}
}

func TestValidate_RejectsMinGreaterThanMaxSpeechDuration(t *testing.T) {
	yaml := `
vad:
  min_speech_duration_ms: 20000
  max_speech_duration_ms: 15000
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected an error when min_speech_duration_ms >= max_speech_duration_ms")
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	yaml := `
server:
  log_level: bananas
vad:
  aggressiveness: 9
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected a joined error")
	}
	if !strings.Contains(err.Error(), "log_level") || !strings.Contains(err.Error(), "aggressiveness") {
		t.Fatalf("expected both validation failures in the joined error, got: %v", err)
	}
}

func TestValidate_ZeroValueConfigIsValidAfterDefaults(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("expected defaulted zero-value config to validate, got: %v", err)
	}
}

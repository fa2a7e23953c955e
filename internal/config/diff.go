package config

// ConfigDiff describes what changed between two configs. Only fields that
// are safe to hot-reload without tearing down a live session are tracked:
// sample rate and frame duration pin a session's buffer shapes and are
// deliberately excluded (see [Watcher]).
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     string

	VADChanged bool
	NewVAD     VADConfig

	ASRChanged bool
	NewASR     ASRConfig
}

// Diff compares old and new configs and returns what changed.
func Diff(old, newCfg *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != newCfg.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = newCfg.Server.LogLevel
	}
	if old.VAD != newCfg.VAD {
		d.VADChanged = true
		d.NewVAD = newCfg.VAD
	}
	if old.ASR != newCfg.ASR {
		d.ASRChanged = true
		d.NewASR = newCfg.ASR
	}

	return d
}

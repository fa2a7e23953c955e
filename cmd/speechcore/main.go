// Command speechcore runs the real-time speech-input core as a standalone
// demo process: it loads configuration, wires the VAD and ASR backends
// through the process-lifetime registry, exposes health and metrics
// endpoints, and runs one pipeline session ready to accept frames pushed
// onto its ingress buffer. The transport that pushes those frames (HTTP,
// WebSocket, or otherwise) is an external collaborator, out of scope here;
// this binary demonstrates the wiring the transport would sit in front of.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saletech/speechcore/internal/config"
	"github.com/saletech/speechcore/internal/health"
	"github.com/saletech/speechcore/internal/observe"
	"github.com/saletech/speechcore/internal/pipeline"
	"github.com/saletech/speechcore/internal/resilience"
	"github.com/saletech/speechcore/pkg/asr"
	asrmock "github.com/saletech/speechcore/pkg/asr/mock"
	"github.com/saletech/speechcore/pkg/asr/whisper"
	"github.com/saletech/speechcore/pkg/audio"
	"github.com/saletech/speechcore/pkg/ingress"
	"github.com/saletech/speechcore/pkg/segment"
	"github.com/saletech/speechcore/pkg/turnstate"
	"github.com/saletech/speechcore/pkg/vad"
	vadmock "github.com/saletech/speechcore/pkg/vad/mock"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "speechcore: config file %q not found\n", *configPath)
			return 1
		}
		fmt.Fprintf(os.Stderr, "speechcore: %v\n", err)
		return 1
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(levelFromString(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("speechcore starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "speechcore",
		ServiceVersion: "dev",
	})
	if err != nil {
		slog.Error("failed to init telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	watcher, err := config.NewWatcher(*configPath, func(old, newCfg *config.Config) {
		d := config.Diff(old, newCfg)
		if d.LogLevelChanged {
			levelVar.Set(levelFromString(d.NewLogLevel))
			slog.Info("log level changed via config reload", "new_level", d.NewLogLevel)
		}
		if d.VADChanged {
			slog.Warn("vad config changed on disk; restart the process to apply it", "backend", d.NewVAD.Backend)
		}
		if d.ASRChanged {
			slog.Warn("asr config changed on disk; restart the process to apply it", "backend", d.NewASR.Backend)
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	reg := config.NewRegistry()
	registerBuiltinBackends(reg)

	vadEngine, err := reg.CreateVAD(vadBackendOrDefault(cfg.VAD))
	if err != nil {
		slog.Error("failed to build vad engine", "err", err)
		return 1
	}

	asrEngine := asr.New(asr.Config{
		MaxConcurrentJobs: cfg.ASR.MaxConcurrentJobs,
		Language:          cfg.ASR.Language,
	}, func() (asr.Transcriber, error) {
		return reg.CreateASR(asrBackendOrDefault(cfg.ASR))
	})
	if err := asrEngine.Initialize(ctx); err != nil {
		slog.Error("failed to initialize asr engine", "err", err)
		return 1
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name: "asr-transcribe",
	})

	metrics := observe.DefaultMetrics()

	mux := http.NewServeMux()
	health.New(
		health.Checker{Name: "asr", Check: func(_ context.Context) error { return nil }},
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	var srv *http.Server
	if cfg.Server.ListenAddr != "" {
		srv = &http.Server{Addr: cfg.Server.ListenAddr, Handler: observe.Middleware(metrics)(mux)}
		go func() {
			slog.Info("health/metrics server listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("health server error", "err", err)
			}
		}()
	}

	sessionCfg := pipeline.Config{
		SessionID:  uuid.NewString(),
		SampleRate: cfg.Pipeline.SampleRate,
		VAD:        vadConfigFrom(cfg),
		TurnState: turnstate.Config{
			BaseEoTMs:          float64(cfg.VAD.EoTSilenceDurationMs),
			AdaptiveEoTEnabled: cfg.VAD.EoTAdaptiveEnabled,
		},
		Segment: segmentConfigFrom(cfg),
		Metrics: metrics,
	}

	detector, err := vadEngine.NewSession(sessionCfg.VAD)
	if err != nil {
		slog.Error("failed to build vad session", "err", err)
		return 1
	}
	defer detector.Close()

	frameBytes := audio.ChunkDuration(cfg.Pipeline.SampleRate, cfg.Pipeline.ChunkDurationMs)
	in := ingress.NewWithFrameSize(cfg.Pipeline.MaxFrames, frameBytes)
	session := pipeline.NewSession(sessionCfg, in, detector, asrEngine, breaker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Run(ctx)
	}()
	go consumeResults(session)

	slog.Info("pipeline session ready — press Ctrl+C to shut down", "session_id", sessionCfg.SessionID)

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping…")
	in.Close()
	<-done

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("health server shutdown error", "err", err)
		}
	}

	slog.Info("goodbye")
	return 0
}

// consumeResults logs every transcription a session produces. A real
// deployment would forward these to the dialog manager instead.
func consumeResults(s *pipeline.Session) {
	for tr := range s.Results() {
		if tr.Failed {
			slog.Warn("transcription failed", "audio_ms", tr.AudioDurationMs)
			continue
		}
		slog.Info("transcription", "text", tr.Text, "confidence", tr.Confidence, "latency_ms", tr.LatencyMs)
	}
}

// registerBuiltinBackends wires every VAD/ASR factory the process knows
// about: the whisper.cpp native transcriber (always available), the mock
// backends used when no CGO-backed implementation was built in, and the
// "silero-webrtc" composite VAD engine. The latter only does real work when
// built with -tags onnx,webrtcvad; selecting it in a build without those
// tags fails at construction time with a descriptive error (see
// pkg/vad/silero_webrtc_stub.go).
func registerBuiltinBackends(reg *config.Registry) {
	reg.RegisterASR("whisper-cpp", func(cfg config.ASRConfig) (asr.Transcriber, error) {
		return whisper.New(cfg.ModelPath, cfg.BeamSize, cfg.BestOf)
	})
	reg.RegisterASR("mock", func(config.ASRConfig) (asr.Transcriber, error) {
		return &asrmock.Backend{}, nil
	})
	reg.RegisterVAD("mock", func(config.VADConfig) (vad.Engine, error) {
		return &vadmock.Engine{}, nil
	})
	reg.RegisterVAD("silero-webrtc", func(cfg config.VADConfig) (vad.Engine, error) {
		return vad.NewSileroWebRTCEngine(cfg.OnnxLibraryPath, cfg.ModelPath, cfg.Aggressiveness)
	})
}

// vadConfigFrom derives the vad package's session Config from the process
// configuration's onset/SNR tuning.
func vadConfigFrom(cfg *config.Config) vad.Config {
	return vad.Config{
		SampleRate:         cfg.Pipeline.SampleRate,
		FrameDurationMs:    cfg.Pipeline.ChunkDurationMs,
		BaseOnsetThreshold: cfg.VAD.SpeechOnsetThreshold,
		MinSNR:             cfg.VAD.MinSNR,
	}
}

// segmentConfigFrom converts the process configuration's millisecond-based
// tuning into the segment package's sample-count thresholds, per the spec's
// minimum-speech-check resolution (Open Question 4): sample counts derived
// once at construction from sample_rate and the millisecond parameters.
func segmentConfigFrom(cfg *config.Config) segment.Config {
	sr := cfg.Pipeline.SampleRate
	return segment.Config{
		SampleRate:       sr,
		MinSpeechSamples: sr * cfg.VAD.MinSpeechDurationMs / 1000,
		MaxSpeechSamples: sr * cfg.VAD.MaxSpeechDurationMs / 1000,
		SpeechPadSamples: sr * cfg.VAD.SpeechPadMs / 1000,
	}
}

func vadBackendOrDefault(cfg config.VADConfig) config.VADConfig {
	if cfg.Backend == "" {
		cfg.Backend = "mock"
	}
	return cfg
}

func asrBackendOrDefault(cfg config.ASRConfig) config.ASRConfig {
	if cfg.Backend == "" {
		cfg.Backend = "mock"
	}
	return cfg
}

// levelFromString maps the config's string log level to a slog.Level,
// defaulting to info for an unrecognized value.
func levelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

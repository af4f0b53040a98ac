package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/audio"
	"github.com/atomlabs/atom-console/internal/capture"
	"github.com/atomlabs/atom-console/internal/config"
	"github.com/atomlabs/atom-console/internal/history"
	"github.com/atomlabs/atom-console/internal/observability"
	"github.com/atomlabs/atom-console/internal/resilience"
	"github.com/atomlabs/atom-console/internal/settings"
	"github.com/atomlabs/atom-console/internal/speech"
	"github.com/atomlabs/atom-console/internal/transcribe"
)

// app bundles the wiring every subcommand shares: configuration merged with
// the persisted settings file, the logger, and an HTTP client for the
// backend.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpClient *http.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	path := cfg.SettingsPath
	if path == "" {
		if p, err := settings.DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		persisted, err := settings.Load(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Ignoring unreadable settings file")
		} else {
			cfg.MergeSettings(persisted)
		}
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// newSpeechQueue wires synthesis, the circuit breaker, and the playback sink
// into a queue.
func (a *app) newSpeechQueue() (*speech.Queue, error) {
	player, err := audio.NewExecPlayer(a.cfg.PlayerArgs())
	if err != nil {
		return nil, err
	}

	breaker := resilience.NewCircuitBreaker(
		"tts",
		a.cfg.SynthesisMaxFailures,
		time.Duration(a.cfg.SynthesisResetTimeout)*time.Second,
	)
	synth := speech.NewClient(a.cfg.APIBaseURL, a.httpClient, breaker, a.logger)
	return speech.NewQueue(synth, player, a.logger), nil
}

// newCaptureController wires the recorder device with gain and the minimum
// recording gate.
func (a *app) newCaptureController(opts ...capture.Option) (*capture.Controller, error) {
	device, err := capture.NewExecDevice(a.cfg.RecorderArgs(), a.cfg.CaptureSampleRate)
	if err != nil {
		return nil, err
	}
	return capture.NewController(device, a.cfg.CaptureGain, a.cfg.MinRecordingBytes, a.logger, opts...), nil
}

func (a *app) newTranscriber() *transcribe.Client {
	return transcribe.NewClient(a.cfg.APIBaseURL, a.cfg.STTStreaming, a.httpClient, a.logger)
}

func (a *app) reconnectConfig() *resilience.ReconnectConfig {
	rc := resilience.DefaultReconnectConfig()
	rc.MaxAttempts = a.cfg.ReconnectMaxAttempts
	rc.Backoff = time.Duration(a.cfg.ReconnectBackoff) * time.Millisecond
	return rc
}

func (a *app) newHistoryStore() *history.Store {
	path := a.cfg.HistoryPath
	if path == "" {
		if p, err := history.DefaultPath(); err == nil {
			path = p
		}
	}
	return history.NewStore(path, a.logger)
}

// startMetricsServer exposes prometheus metrics plus health and readiness
// endpoints. Returns the server so the caller can shut it down.
func (a *app) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(
		observability.BackendHealthCheck(a.httpClient, a.cfg.APIBaseURL)))

	server := &http.Server{Addr: ":" + a.cfg.MetricsPort, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	a.logger.Info().Str("port", a.cfg.MetricsPort).Msg("Metrics server started")
	return server
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the console.
type Config struct {
	// Assistant backend
	APIBaseURL string `envconfig:"ATOM_API_URL" default:"http://localhost:8000"`

	// Transport selection
	ChatStreaming bool `envconfig:"CHAT_STREAMING" default:"true"` // NDJSON chat stream vs single JSON body
	STTStreaming  bool `envconfig:"STT_STREAMING" default:"false"` // hint forwarded opaquely to the STT endpoint

	// Capture configuration
	CaptureGain       float64 `envconfig:"CAPTURE_GAIN" default:"6.0"`        // software gain applied to raw samples
	MinRecordingBytes int     `envconfig:"MIN_RECORDING_BYTES" default:"4000"` // recordings below this never reach STT
	RecorderCommand   string  `envconfig:"RECORDER_COMMAND" default:"arecord -q -f S16_LE -r 16000 -c 1 -t raw -"`
	CaptureSampleRate int     `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"`

	// Playback configuration
	PlayerCommand string `envconfig:"PLAYER_COMMAND" default:"aplay -q -"`

	// Speech event channel
	EventTransport       string `envconfig:"EVENT_TRANSPORT" default:"sse"` // sse or websocket
	ReconnectMaxAttempts int    `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectBackoff     int    `envconfig:"RECONNECT_BACKOFF" default:"1000"` // milliseconds

	// Synthesis circuit breaker
	SynthesisMaxFailures  int `envconfig:"SYNTHESIS_MAX_FAILURES" default:"5"`
	SynthesisResetTimeout int `envconfig:"SYNTHESIS_RESET_TIMEOUT" default:"30"` // seconds

	// Client-side persistence
	SettingsPath string `envconfig:"SETTINGS_PATH" default:""` // defaults to ~/.config/atom/settings.yaml
	HistoryPath  string `envconfig:"HISTORY_PATH" default:""`  // defaults to ~/.config/atom/history.msgpack

	// Observability
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9290"`
}

// Load reads configuration from environment variables, first loading a .env
// file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables without
// attempting to load a .env file.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ATOM_API_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.EventTransport != "sse" && c.EventTransport != "websocket" {
		return fmt.Errorf("EVENT_TRANSPORT must be sse or websocket, got %q", c.EventTransport)
	}
	if c.MinRecordingBytes < 0 {
		return fmt.Errorf("MIN_RECORDING_BYTES must not be negative")
	}
	if c.CaptureGain <= 0 {
		return fmt.Errorf("CAPTURE_GAIN must be positive")
	}
	return nil
}

// Settings is the subset of configuration the persisted settings file can
// supply. Environment variables take precedence over the file.
type Settings interface {
	APIBaseURL() string
	ChatStreamingValue() (bool, bool)
	STTStreamingValue() (bool, bool)
}

// MergeSettings overlays persisted settings for fields whose environment
// variables are unset.
func (c *Config) MergeSettings(s Settings) {
	if s == nil {
		return
	}
	if _, set := os.LookupEnv("ATOM_API_URL"); !set {
		if u := s.APIBaseURL(); u != "" {
			c.APIBaseURL = u
		}
	}
	if _, set := os.LookupEnv("CHAT_STREAMING"); !set {
		if v, ok := s.ChatStreamingValue(); ok {
			c.ChatStreaming = v
		}
	}
	if _, set := os.LookupEnv("STT_STREAMING"); !set {
		if v, ok := s.STTStreamingValue(); ok {
			c.STTStreaming = v
		}
	}
}

// RecorderArgs splits the recorder command line into command and arguments.
func (c *Config) RecorderArgs() []string {
	return strings.Fields(c.RecorderCommand)
}

// PlayerArgs splits the player command line into command and arguments.
func (c *Config) PlayerArgs() []string {
	return strings.Fields(c.PlayerCommand)
}

// Package settings persists the small set of client-side preferences the
// pipeline reads: the assistant backend URL and the two streaming flags.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Settings is the on-disk preferences document. Boolean fields are pointers so
// an absent key can be told apart from an explicit false.
type Settings struct {
	APIURL        string `yaml:"api_url,omitempty"`
	ChatStreaming *bool  `yaml:"chat_streaming,omitempty"`
	STTStreaming  *bool  `yaml:"stt_streaming,omitempty"`
}

// DefaultPath returns the default settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "atom", "settings.yaml"), nil
}

// Load reads settings from path. A missing file is not an error; it yields
// empty settings so defaults apply.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &s, nil
}

// Save writes settings to path, creating parent directories as needed.
func Save(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// APIBaseURL implements config.Settings.
func (s *Settings) APIBaseURL() string {
	return s.APIURL
}

// ChatStreamingValue reports the persisted chat streaming preference and
// whether it was set at all.
func (s *Settings) ChatStreamingValue() (bool, bool) {
	if s.ChatStreaming == nil {
		return false, false
	}
	return *s.ChatStreaming, true
}

// STTStreamingValue reports the persisted transcription streaming hint.
func (s *Settings) STTStreamingValue() (bool, bool) {
	if s.STTStreaming == nil {
		return false, false
	}
	return *s.STTStreaming, true
}

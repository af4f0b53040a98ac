// Package history persists conversation transcripts across sessions.
package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/atomlabs/atom-console/internal/chat"
)

// Store reads and writes the conversation transcript as a msgpack file.
// A missing file is an empty history, never an error.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore creates a history store at path. An empty path disables
// persistence.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// DefaultPath is the conventional history location under the user's config
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "atom", "history.msgpack"), nil
}

// Enabled reports whether the store has a backing file.
func (s *Store) Enabled() bool {
	return s.path != ""
}

// Load reads the persisted transcript. A corrupt file is logged and treated
// as empty so a bad write never bricks startup.
func (s *Store) Load() ([]chat.Message, error) {
	if s.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var messages []chat.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("History file is corrupt, starting fresh")
		return nil, nil
	}

	s.logger.Debug().Int("messages", len(messages)).Msg("History loaded")
	return messages, nil
}

// Save writes the transcript atomically: a temp file in the same directory,
// then rename.
func (s *Store) Save(messages []chat.Message) error {
	if s.path == "" {
		return nil
	}

	data, err := msgpack.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history: %w", err)
	}

	s.logger.Debug().Int("messages", len(messages)).Msg("History saved")
	return nil
}

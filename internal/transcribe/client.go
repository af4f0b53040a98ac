// Package transcribe turns recorded audio into text through the backend's
// speech-to-text endpoint.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/observability"
)

// ErrNotUnderstood is returned when the backend could not extract any text
// from the recording, whether it answered with an error status or with an
// empty transcript.
var ErrNotUnderstood = errors.New("could not understand the recording")

// Client calls the backend transcription endpoint.
type Client struct {
	baseURL      string
	useStreaming bool
	httpClient   *http.Client
	logger       zerolog.Logger
}

type request struct {
	Audio        string `json:"audio"`
	UseStreaming bool   `json:"useStreaming"`
}

type response struct {
	Text string `json:"text"`
}

// NewClient creates a transcription client. useStreaming selects the
// backend's streaming recognizer over its batch one.
func NewClient(baseURL string, useStreaming bool, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      baseURL,
		useStreaming: useStreaming,
		httpClient:   httpClient,
		logger:       logger.With().Str("component", "transcribe").Logger(),
	}
}

// Transcribe submits a base64 audio data URL and returns the recognized
// text. An empty transcript is a failure, not an empty success.
func (c *Client) Transcribe(ctx context.Context, audioDataURL string) (string, error) {
	start := time.Now()

	text, err := c.post(ctx, audioDataURL)
	observability.RecordTranscription(start, err == nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Transcription failed")
		return "", err
	}

	c.logger.Info().
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Transcription complete")
	return text, nil
}

func (c *Client) post(ctx context.Context, audioDataURL string) (string, error) {
	body, err := json.Marshal(request{Audio: audioDataURL, UseStreaming: c.useStreaming})
	if err != nil {
		return "", fmt.Errorf("encode transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stt", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: backend returned status %d", ErrNotUnderstood, resp.StatusCode)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotUnderstood, err)
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}

// Package speech owns text-to-speech synthesis and the serialized playback
// queue, plus the server-pushed speech event channel.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/observability"
	"github.com/atomlabs/atom-console/internal/resilience"
)

// Synthesizer turns text into a playable audio payload.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Client synthesizes speech via the assistant backend's generation endpoint.
// A circuit breaker keeps a dead TTS backend from being hammered once per
// queued utterance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     zerolog.Logger
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

// NewClient creates a synthesis client. breaker may be nil to disable
// short-circuiting.
func NewClient(baseURL string, httpClient *http.Client, breaker *resilience.CircuitBreaker, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// Synthesize posts the text and returns the binary audio payload from the
// response body.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()

	var audio []byte
	call := func() error {
		var err error
		audio, err = c.fetch(ctx, text)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(call)
	} else {
		err = call()
	}

	observability.RecordSynthesis(start, err == nil)
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (c *Client) fetch(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tts/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("synthesis endpoint returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesis returned empty audio")
	}

	c.logger.Debug().Int("bytes", len(audio)).Msg("Synthesized utterance")
	return audio, nil
}

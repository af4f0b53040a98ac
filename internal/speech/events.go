package speech

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/observability"
	"github.com/atomlabs/atom-console/internal/resilience"
)

// Event is one server-pushed speech event.
type Event struct {
	Type string `json:"type"` // "speak" or "silence"
	Text string `json:"text,omitempty"`
}

// Sink receives decoded speech events. The playback Queue satisfies it:
// speak events are queued, silence pauses the output immediately.
type Sink interface {
	Enqueue(text string)
	Pause()
}

// Subscriber maintains a persistent subscription to the backend's speech
// event stream over either SSE or WebSocket, reconnecting with backoff when
// the stream drops.
type Subscriber struct {
	baseURL    string
	transport  string // "sse" or "websocket"
	sink       Sink
	httpClient *http.Client
	reconnect  *resilience.ReconnectConfig
	logger     zerolog.Logger
}

// Subscription is a handle to a running subscriber. Cancel tears the stream
// down; it is safe to call more than once.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops the subscription and waits for the consumer to exit.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// NewSubscriber creates a speech event subscriber.
func NewSubscriber(baseURL, transport string, sink Sink, httpClient *http.Client, reconnect *resilience.ReconnectConfig, logger zerolog.Logger) *Subscriber {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Subscriber{
		baseURL:    baseURL,
		transport:  transport,
		sink:       sink,
		httpClient: httpClient,
		reconnect:  reconnect,
		logger:     logger,
	}
}

// Start begins consuming events in the background and returns a cancel
// handle. The subscriber keeps reconnecting until its attempt budget is
// exhausted or the subscription is cancelled.
func (s *Subscriber) Start(parent context.Context) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)

		for ctx.Err() == nil {
			err := resilience.Reconnect(ctx, func() error {
				observability.RecordEventChannelReconnect()
				return s.consumeOnce(ctx)
			}, s.reconnect, s.logger)

			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error().Err(err).Msg("Speech event channel gave up reconnecting")
				}
				return
			}
			// consumeOnce returned nil: the stream ended cleanly. Loop and
			// resubscribe.
		}
	}()

	return sub
}

// consumeOnce opens one stream and consumes it until it ends.
func (s *Subscriber) consumeOnce(ctx context.Context) error {
	if s.transport == "websocket" {
		return s.consumeWebSocket(ctx)
	}
	return s.consumeSSE(ctx)
}

func (s *Subscriber) consumeSSE(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/speech/stream", nil)
	if err != nil {
		return fmt.Errorf("build event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("event stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	s.logger.Info().Str("transport", "sse").Msg("Speech event channel connected")

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		s.dispatch(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream read: %w", err)
	}
	return nil
}

func (s *Subscriber) consumeWebSocket(ctx context.Context) error {
	wsURL, err := toWebSocketURL(s.baseURL + "/api/speech/stream")
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial event stream: %w", err)
	}
	defer conn.Close()

	s.logger.Info().Str("transport", "websocket").Msg("Speech event channel connected")

	// Close the socket when the context ends so ReadMessage unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("event stream read: %w", err)
		}
		s.dispatch(string(payload))
	}
}

// dispatch decodes one event payload and applies it. Bad payloads are logged
// and dropped, never fatal to the stream.
func (s *Subscriber) dispatch(payload string) {
	if payload == "" {
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		observability.RecordSpeechEvent("malformed")
		s.logger.Warn().Str("payload", payload).Err(err).Msg("Bad speech event, skipping")
		return
	}

	switch {
	case ev.Type == "speak" && ev.Text != "":
		observability.RecordSpeechEvent("speak")
		s.sink.Enqueue(ev.Text)
	case ev.Type == "silence":
		observability.RecordSpeechEvent("silence")
		s.sink.Pause()
	default:
		observability.RecordSpeechEvent("malformed")
		s.logger.Debug().Str("type", ev.Type).Msg("Ignoring speech event")
	}
}

func toWebSocketURL(httpURL string) (string, error) {
	u, err := url.Parse(httpURL)
	if err != nil {
		return "", fmt.Errorf("parse event stream URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

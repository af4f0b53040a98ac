package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/observability"
	"github.com/atomlabs/atom-console/internal/stream"
)

// ErrorReplyText is appended as an assistant message whenever an exchange
// fails at the transport level.
const ErrorReplyText = "Sorry, I encountered an error. The backend may be offline."

// ErrBackendUnavailable marks transport-level exchange failures: the request
// never completed or the backend answered with an error status.
var ErrBackendUnavailable = errors.New("assistant backend unavailable")

// EventType classifies session events.
type EventType string

const (
	// EventUpdate carries a message that was appended or mutated.
	EventUpdate EventType = "update"
	// EventAudio carries an inline audio payload shipped in the stream,
	// playable immediately. Distinct from queued speech synthesis.
	EventAudio EventType = "audio"
	// EventDone marks the end of a successful exchange.
	EventDone EventType = "done"
	// EventFailed marks a terminally failed exchange.
	EventFailed EventType = "failed"
)

// Event is one session notification delivered to subscribers in order.
type Event struct {
	Type    EventType
	Message Message // set for EventUpdate
	Audio   string  // set for EventAudio
	Err     error   // set for EventFailed
}

// Speaker receives the final reply text of a non-streaming exchange for
// out-of-band synthesis and playback.
type Speaker interface {
	Enqueue(text string)
}

// Session drives command-to-reply exchanges against the assistant backend.
// Sends are expected to be serialized by the caller; a new Send while a prior
// exchange is still streaming is allowed but leaves the prior assistant
// message streaming until that exchange independently completes.
type Session struct {
	baseURL   string
	streaming bool
	client    *http.Client
	store     *Store
	speaker   Speaker
	logger    zerolog.Logger

	mu   sync.Mutex
	subs []*Subscription
}

// Subscription is a registered event consumer. C is closed after Cancel.
type Subscription struct {
	C      <-chan Event
	c      chan Event
	cancel func()
	once   sync.Once
}

// Cancel unregisters the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// NewSession creates a chat session. speaker may be nil when no out-of-band
// synthesis is wanted.
func NewSession(baseURL string, streaming bool, client *http.Client, store *Store, speaker Speaker, logger zerolog.Logger) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	return &Session{
		baseURL:   baseURL,
		streaming: streaming,
		client:    client,
		store:     store,
		speaker:   speaker,
		logger:    logger,
	}
}

// Store returns the session's message store.
func (s *Session) Store() *Store {
	return s.store
}

// Subscribe registers an event consumer. Events are delivered in order;
// a consumer that stops draining loses newest events rather than blocking
// the exchange.
func (s *Session) Subscribe() *Subscription {
	ch := make(chan Event, 64)
	sub := &Subscription{C: ch, c: ch}
	sub.cancel = func() {
		s.mu.Lock()
		for i, existing := range s.subs {
			if existing == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.c <- ev:
		default:
			s.logger.Warn().Str("type", string(ev.Type)).Msg("Dropping session event for slow subscriber")
		}
	}
}

type commandRequest struct {
	Command string `json:"command"`
}

type chatResponse struct {
	Text  string `json:"text"`
	Audio string `json:"audio,omitempty"`
}

// Send runs one exchange: appends the user message and a streaming assistant
// placeholder, issues the request on the configured transport, and mutates
// the placeholder until the exchange terminates. The returned error is also
// surfaced as an EventFailed and as an apology message, so callers may treat
// it as already-reported.
func (s *Session) Send(ctx context.Context, command string) error {
	exchangeID := observability.NewExchangeID()
	logger := s.logger.With().Str("exchange_id", exchangeID).Logger()
	metrics := observability.NewExchangeMetrics()

	transport := "json"
	if s.streaming {
		transport = "streaming"
	}

	userMsg := s.store.Append(RoleUser, command)
	s.emit(Event{Type: EventUpdate, Message: userMsg})

	assistant := s.store.AppendStreaming()
	s.emit(Event{Type: EventUpdate, Message: assistant})

	err := s.runExchange(ctx, logger, command, assistant.ID)
	if err != nil {
		metrics.RecordOutcome(transport, true)
		logger.Error().Err(err).Msg("Exchange failed")

		// The streaming indicator must not survive a failed exchange.
		if msg, ok := s.store.FinishStreaming(assistant.ID); ok {
			s.emit(Event{Type: EventUpdate, Message: msg})
		}

		errMsg := s.store.Append(RoleAssistant, ErrorReplyText)
		s.emit(Event{Type: EventUpdate, Message: errMsg})
		s.emit(Event{Type: EventFailed, Err: err})
		return err
	}

	metrics.RecordOutcome(transport, false)
	s.emit(Event{Type: EventDone})
	return nil
}

func (s *Session) runExchange(ctx context.Context, logger zerolog.Logger, command, assistantID string) error {
	endpoint := "/api/chat"
	if s.streaming {
		endpoint = "/api/chat/stream"
	}

	body, err := json.Marshal(commandRequest{Command: command})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	if resp.Body == nil {
		return fmt.Errorf("%w: response has no body", ErrBackendUnavailable)
	}

	if s.streaming {
		return s.consumeStream(logger, resp.Body, assistantID)
	}
	return s.consumeJSON(logger, resp.Body, assistantID)
}

// consumeStream applies NDJSON records to the assistant message. Text values
// are the full accumulated reply, so each one replaces the content outright.
func (s *Session) consumeStream(logger zerolog.Logger, body io.Reader, assistantID string) error {
	decoder := stream.NewDecoder(body, logger)

	for {
		rec, err := decoder.Next()
		if err == io.EOF {
			// Stream end without a done record counts as normal completion.
			break
		}
		if err != nil {
			return fmt.Errorf("read chat stream: %w", err)
		}

		observability.RecordStreamRecord(rec.Kind())

		if rec.Audio != "" {
			s.emit(Event{Type: EventAudio, Audio: rec.Audio})
		}
		if rec.Text != "" {
			if msg, ok := s.store.SetContent(assistantID, rec.Text); ok {
				s.emit(Event{Type: EventUpdate, Message: msg})
			}
		}
		if rec.Error != "" {
			// Stream-level errors are advisory; the stream may still
			// continue or end normally afterward.
			logger.Warn().Str("error", rec.Error).Msg("Stream reported an error record")
		}
		if rec.Done {
			break
		}
	}

	if n := decoder.Malformed(); n > 0 {
		observability.RecordStreamRecord("malformed")
		logger.Warn().Int("lines", n).Msg("Discarded malformed stream lines")
	}

	if msg, ok := s.store.FinishStreaming(assistantID); ok {
		s.emit(Event{Type: EventUpdate, Message: msg})
	}
	return nil
}

// consumeJSON handles the non-streaming transport: one JSON body with the
// final text, then an out-of-band synthesis hand-off.
func (s *Session) consumeJSON(logger zerolog.Logger, body io.Reader, assistantID string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read chat response: %w", err)
	}

	var reply chatResponse
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("parse chat response: %w", err)
	}

	if msg, ok := s.store.SetContent(assistantID, reply.Text); ok {
		s.emit(Event{Type: EventUpdate, Message: msg})
	}
	if msg, ok := s.store.FinishStreaming(assistantID); ok {
		s.emit(Event{Type: EventUpdate, Message: msg})
	}

	if reply.Audio != "" {
		s.emit(Event{Type: EventAudio, Audio: reply.Audio})
	} else if s.speaker != nil && reply.Text != "" {
		s.speaker.Enqueue(reply.Text)
	}

	logger.Debug().Int("bytes", len(data)).Msg("Non-streaming exchange complete")
	return nil
}

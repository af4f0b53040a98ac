package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type recordingSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingSpeaker) Enqueue(text string) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
}

func (r *recordingSpeaker) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}

func streamingBackend(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/stream" {
			t.Errorf("Unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		flusher := w.(http.Flusher)
		for _, line := range lines {
			w.Write([]byte(line + "\n"))
			flusher.Flush()
		}
	}))
}

func assistantMessage(t *testing.T, store *Store) Message {
	t.Helper()
	for _, msg := range store.Messages() {
		if msg.Role == RoleAssistant {
			return msg
		}
	}
	t.Fatal("No assistant message found")
	return Message{}
}

func TestSend_CumulativeTextSemantics(t *testing.T) {
	server := streamingBackend(t, []string{
		`{"text":"a"}`,
		`{"text":"a b"}`,
		`{"text":"a b c"}`,
		`{"done":true}`,
	})
	defer server.Close()

	store := NewStore()
	session := NewSession(server.URL, true, server.Client(), store, nil, zerolog.Nop())

	if err := session.Send(context.Background(), "count"); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	msg := assistantMessage(t, store)
	if msg.Content != "a b c" {
		t.Errorf("Expected final content 'a b c', got '%s'", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("IsStreaming must end false")
	}
	if store.Len() != 2 {
		t.Errorf("Expected user + assistant messages, got %d", store.Len())
	}
}

func TestSend_MalformedLineDoesNotFailExchange(t *testing.T) {
	server := streamingBackend(t, []string{
		`{"text":"hello"}`,
		`this is not json`,
		`{"text":"hello world","done":true}`,
	})
	defer server.Close()

	store := NewStore()
	session := NewSession(server.URL, true, server.Client(), store, nil, zerolog.Nop())

	if err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Malformed line must not fail the exchange: %v", err)
	}
	if got := assistantMessage(t, store).Content; got != "hello world" {
		t.Errorf("Expected 'hello world', got '%s'", got)
	}
}

func TestSend_ErrorRecordDoesNotAbortStream(t *testing.T) {
	server := streamingBackend(t, []string{
		`{"text":"partial"}`,
		`{"error":"tool failure"}`,
		`{"text":"recovered","done":true}`,
	})
	defer server.Close()

	store := NewStore()
	session := NewSession(server.URL, true, server.Client(), store, nil, zerolog.Nop())

	if err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Error record must not abort the exchange: %v", err)
	}
	if got := assistantMessage(t, store).Content; got != "recovered" {
		t.Errorf("Expected 'recovered', got '%s'", got)
	}
}

func TestSend_StreamEndWithoutDoneIsSuccess(t *testing.T) {
	server := streamingBackend(t, []string{
		`{"text":"no terminal record"}`,
	})
	defer server.Close()

	store := NewStore()
	session := NewSession(server.URL, true, server.Client(), store, nil, zerolog.Nop())

	if err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Stream end without done must be success: %v", err)
	}
	msg := assistantMessage(t, store)
	if msg.Content != "no terminal record" || msg.IsStreaming {
		t.Errorf("Unexpected terminal state: %+v", msg)
	}
}

func TestSend_InlineAudioEvent(t *testing.T) {
	server := streamingBackend(t, []string{
		`{"audio":"data:audio/wav;base64,UklGRg=="}`,
		`{"text":"spoken","done":true}`,
	})
	defer server.Close()

	store := NewStore()
	session := NewSession(server.URL, true, server.Client(), store, nil, zerolog.Nop())
	sub := session.Subscribe()
	defer sub.Cancel()

	if err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	var sawAudio bool
	for done := false; !done; {
		select {
		case ev := <-sub.C:
			if ev.Type == EventAudio {
				if ev.Audio == "" {
					t.Error("Audio event missing payload")
				}
				sawAudio = true
			}
			if ev.Type == EventDone {
				done = true
			}
		default:
			done = true
		}
	}
	if !sawAudio {
		t.Error("Expected an inline audio event")
	}
}

func TestSend_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewStore()
	session := NewSession(server.URL, true, server.Client(), store, nil, zerolog.Nop())

	err := session.Send(context.Background(), "hi")
	if err == nil {
		t.Fatal("Expected error for HTTP 500")
	}
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}

	// Exactly one apology message, and nothing left streaming.
	var apologies int
	for _, msg := range store.Messages() {
		if msg.Role == RoleAssistant && msg.Content == ErrorReplyText {
			apologies++
		}
	}
	if apologies != 1 {
		t.Errorf("Expected exactly 1 error message, got %d", apologies)
	}
	if store.StreamingCount() != 0 {
		t.Error("IsStreaming must never be left true after a failed exchange")
	}
}

func TestSend_BackendUnreachable(t *testing.T) {
	store := NewStore()
	session := NewSession("http://127.0.0.1:1", true, nil, store, nil, zerolog.Nop())

	if err := session.Send(context.Background(), "hi"); err == nil {
		t.Fatal("Expected error for unreachable backend")
	}
	if store.StreamingCount() != 0 {
		t.Error("Streaming indicator must be cleared on failure")
	}
}

func TestSend_NonStreamingTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"full reply"}`))
	}))
	defer server.Close()

	store := NewStore()
	speaker := &recordingSpeaker{}
	session := NewSession(server.URL, false, server.Client(), store, speaker, zerolog.Nop())

	if err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	msg := assistantMessage(t, store)
	if msg.Content != "full reply" || msg.IsStreaming {
		t.Errorf("Unexpected assistant message: %+v", msg)
	}
	if got := speaker.Texts(); len(got) != 1 || got[0] != "full reply" {
		t.Errorf("Expected out-of-band synthesis of final text, got %v", got)
	}
}

func TestSend_NonStreamingInlineAudioSkipsSpeaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"reply","audio":"data:audio/wav;base64,UklGRg=="}`))
	}))
	defer server.Close()

	store := NewStore()
	speaker := &recordingSpeaker{}
	session := NewSession(server.URL, false, server.Client(), store, speaker, zerolog.Nop())
	sub := session.Subscribe()
	defer sub.Cancel()

	if err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	if len(speaker.Texts()) != 0 {
		t.Error("Inline audio should preempt out-of-band synthesis")
	}
}

func TestSubscription_CancelIsIdempotent(t *testing.T) {
	session := NewSession("http://localhost:0", true, nil, NewStore(), nil, zerolog.Nop())
	sub := session.Subscribe()
	sub.Cancel()
	sub.Cancel() // must not panic on double close
}

package mock

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewServer(zerolog.Nop())
	s.StreamDelay = time.Millisecond
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return server
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_ChatStreamIsCumulative(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/chat/stream", "application/json",
		strings.NewReader(`{"command":"status"}`))
	if err != nil {
		t.Fatalf("Stream request failed: %v", err)
	}
	defer resp.Body.Close()

	var (
		texts     []string
		audio     int
		doneSeen  bool
		scanner   = bufio.NewScanner(resp.Body)
		maxBuffer = 1024 * 1024
	)
	scanner.Buffer(make([]byte, 64*1024), maxBuffer)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec struct {
			Text  string `json:"text"`
			Audio string `json:"audio"`
			Done  bool   `json:"done"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("Stream emitted bad JSON line %q: %v", line, err)
		}
		if rec.Text != "" {
			texts = append(texts, rec.Text)
		}
		if rec.Audio != "" {
			audio++
		}
		if rec.Done {
			doneSeen = true
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Stream read failed: %v", err)
	}

	if audio != 1 {
		t.Errorf("Expected 1 leading audio record, got %d", audio)
	}
	if !doneSeen {
		t.Error("Expected a done record")
	}
	if len(texts) < 2 {
		t.Fatalf("Expected multiple cumulative text records, got %d", len(texts))
	}
	for i := 1; i < len(texts); i++ {
		if !strings.HasPrefix(texts[i], texts[i-1]) {
			t.Errorf("Record %d is not cumulative: %q does not extend %q", i, texts[i], texts[i-1])
		}
	}
}

func TestServer_ChatRequiresCommand(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/chat", "application/json",
		strings.NewReader(`{"command":""}`))
	if err != nil {
		t.Fatalf("Chat request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty command, got %d", resp.StatusCode)
	}
}

func TestServer_SynthesizeReturnsWAV(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/tts/generate", "application/json",
		strings.NewReader(`{"text":"say this"}`))
	if err != nil {
		t.Fatalf("Synthesize request failed: %v", err)
	}
	defer resp.Body.Close()

	var header [4]byte
	if _, err := io.ReadFull(resp.Body, header[:]); err != nil {
		t.Fatalf("Reading audio failed: %v", err)
	}
	if !bytes.Equal(header[:], []byte("RIFF")) {
		t.Errorf("Expected a WAV payload, got header %q", header)
	}
}

func TestServer_Transcribe(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/stt", "application/json",
		strings.NewReader(`{"audio":"data:audio/wav;base64,AAAA","useStreaming":false}`))
	if err != nil {
		t.Fatalf("Transcribe request failed: %v", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("Bad transcription response: %v", err)
	}
	if parsed.Text == "" {
		t.Error("Expected a non-empty canned transcript")
	}
}

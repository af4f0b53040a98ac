// Package mock serves a stand-in backend implementing every endpoint the
// console talks to, for demos and end-to-end testing without a real service.
package mock

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Server is the mock backend.
type Server struct {
	echo   *echo.Echo
	logger zerolog.Logger

	// StreamDelay paces the word-by-word chat stream.
	StreamDelay time.Duration
}

// NewServer builds the mock backend with all routes registered.
func NewServer(logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:        e,
		logger:      logger.With().Str("component", "mock").Logger(),
		StreamDelay: 40 * time.Millisecond,
	}

	e.GET("/api/health", s.handleHealth)
	e.POST("/api/chat", s.handleChat)
	e.POST("/api/chat/stream", s.handleChatStream)
	e.POST("/api/tts/generate", s.handleSynthesize)
	e.POST("/api/stt", s.handleTranscribe)
	e.GET("/api/speech/stream", s.handleSpeechStream)

	return s
}

// Handler exposes the underlying HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Mock backend listening")
	return s.echo.Start(addr)
}

type chatRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "atom-mock"})
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "command is required"})
	}
	return c.JSON(http.StatusOK, map[string]string{"text": cannedReply(req.Command)})
}

// handleChatStream emits newline-delimited JSON records: an initial audio
// record, then the reply growing one word at a time as the full text so far,
// then a done record.
func (s *Server) handleChatStream(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "command is required"})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	write := func(line string) {
		fmt.Fprintln(resp, line)
		resp.Flush()
	}

	write(fmt.Sprintf(`{"audio":%q}`, silentWAVDataURL()))

	words := strings.Fields(cannedReply(req.Command))
	var sofar strings.Builder
	for i, word := range words {
		if i > 0 {
			sofar.WriteByte(' ')
		}
		sofar.WriteString(word)
		write(fmt.Sprintf(`{"text":%q}`, sofar.String()))

		select {
		case <-c.Request().Context().Done():
			return nil
		case <-time.After(s.StreamDelay):
		}
	}

	write(`{"done":true}`)
	return nil
}

func (s *Server) handleSynthesize(c echo.Context) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}
	return c.Blob(http.StatusOK, "audio/wav", silentWAV(200*time.Millisecond))
}

func (s *Server) handleTranscribe(c echo.Context) error {
	var req struct {
		Audio        string `json:"audio"`
		UseStreaming bool   `json:"useStreaming"`
	}
	if err := c.Bind(&req); err != nil || req.Audio == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "audio is required"})
	}
	return c.JSON(http.StatusOK, map[string]string{"text": "what time is it"})
}

// handleSpeechStream pushes a short scripted sequence of speech events over
// SSE, then holds the stream open.
func (s *Server) handleSpeechStream(c echo.Context) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)

	events := []string{
		`{"type":"speak","text":"Mock backend online."}`,
		`{"type":"speak","text":"All systems nominal."}`,
		`{"type":"silence"}`,
	}
	for _, ev := range events {
		fmt.Fprintf(resp, "data: %s\n\n", ev)
		resp.Flush()

		select {
		case <-c.Request().Context().Done():
			return nil
		case <-time.After(300 * time.Millisecond):
		}
	}

	<-c.Request().Context().Done()
	return nil
}

func cannedReply(command string) string {
	lower := strings.ToLower(command)
	switch {
	case strings.Contains(lower, "time"):
		return "It is currently " + time.Now().Format("3:04 PM") + "."
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return "Hello. I am the mock backend, standing in for the real one."
	default:
		return "I received your command and this is the mock backend's reply to it."
	}
}

// silentWAV builds a valid mono 16-bit 16kHz WAV of silence.
func silentWAV(d time.Duration) []byte {
	const sampleRate = 16000
	samples := int(d.Seconds() * sampleRate)
	dataLen := samples * 2

	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	return buf
}

func silentWAVDataURL() string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(silentWAV(50*time.Millisecond))
}

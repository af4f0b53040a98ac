package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/observability"
)

// armDelay is how long after device start the session is considered armed.
// The first samples out of a freshly opened device are often truncated or
// carry a click from the input switching on, so the recording indicator only
// turns on after this settle period.
const armDelay = 300 * time.Millisecond

// Controller owns the capture lifecycle: at most one session at a time,
// classified device errors, software gain, and a minimum-size gate before a
// recording is considered usable.
type Controller struct {
	device   Device
	gain     float64
	minBytes int
	onLevel  func(rms float64, active bool)
	logger   zerolog.Logger

	mu     sync.Mutex
	active *Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithLevelCallback registers a callback invoked per captured frame with the
// post-gain RMS level and voice-activity state. Used to drive a live meter.
func WithLevelCallback(fn func(rms float64, active bool)) Option {
	return func(c *Controller) { c.onLevel = fn }
}

// NewController creates a capture controller. gain is the software boost
// applied to every sample; minBytes is the smallest recording accepted for
// transcription.
func NewController(device Device, gain float64, minBytes int, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		device:   device,
		gain:     gain,
		minBytes: minBytes,
		logger:   logger.With().Str("component", "capture").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartCapture opens the device and begins recording. Device failures come
// back classified so callers can show a specific message.
func (c *Controller) StartCapture(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, errors.New("capture already in progress")
	}

	stream, mimeType, err := c.device.Start(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to open audio input")
		observability.RecordCaptureRejection("device")
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	session := newSession(stream, mimeType, c.gain, c.onLevel, c.logger)
	session.cancel = cancel
	session.wg.Add(1)
	go session.run(runCtx)

	time.AfterFunc(armDelay, session.arm)

	c.active = session
	c.logger.Info().Str("mime_type", mimeType).Msg("Recording started")
	return session, nil
}

// StopCapture ends the session, releases the device, and returns the
// finished recording. Recordings below the minimum size are rejected with
// ErrNoUsableSpeech. Calling StopCapture again on the same session returns
// the same result without touching the device a second time.
func (c *Controller) StopCapture(session *Session) (*Recording, error) {
	session.mu.Lock()
	if session.stopped {
		result, err := session.result, session.err
		session.mu.Unlock()
		return result, err
	}
	session.stopped = true
	session.mu.Unlock()

	session.releaseResources()
	duration := session.Duration()

	c.mu.Lock()
	if c.active == session {
		c.active = nil
	}
	c.mu.Unlock()

	blob := session.buf.Bytes()
	if len(blob) < c.minBytes {
		c.logger.Warn().
			Int("bytes", len(blob)).
			Int("min_bytes", c.minBytes).
			Msg("Recording too short, discarding")
		observability.RecordCaptureRejection("undersized")
		session.setResult(nil, ErrNoUsableSpeech)
		return nil, ErrNoUsableSpeech
	}

	observability.RecordCaptureBytes(len(blob))
	c.logger.Info().
		Int("bytes", len(blob)).
		Dur("duration", duration).
		Msg("Recording finished")

	rec := &Recording{
		Blob:     blob,
		MIMEType: session.mimeType,
		DataURL:  EncodeDataURL(blob, session.mimeType),
		Duration: duration,
	}
	session.setResult(rec, nil)
	return rec, nil
}

// Active reports whether a capture session is currently running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// EncodeDataURL renders an audio blob as a base64 data URL, the transport
// format the transcription endpoint expects.
func EncodeDataURL(blob []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(blob)
}

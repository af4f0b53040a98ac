package capture

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/audio"
)

// frameBytes is the read granularity for the capture loop: 40ms of mono
// 16-bit samples at 16kHz.
const frameBytes = 1280

// Session is one in-progress recording. It accumulates gain-adjusted audio
// until stopped. All resource release is idempotent.
type Session struct {
	stream    io.ReadCloser
	mimeType  string
	gain      float64
	buf       *audio.ChunkBuffer
	meter     *audio.LevelMeter
	onLevel   func(rms float64, active bool)
	logger    zerolog.Logger
	startedAt time.Time
	cancel    context.CancelFunc

	wg      sync.WaitGroup
	release sync.Once

	mu      sync.Mutex
	armed   bool
	stopped bool
	result  *Recording
	err     error
}

// Recording is the finished product of a capture session.
type Recording struct {
	Blob     []byte
	MIMEType string
	DataURL  string
	Duration time.Duration
}

func newSession(stream io.ReadCloser, mimeType string, gain float64, onLevel func(float64, bool), logger zerolog.Logger) *Session {
	return &Session{
		stream:    stream,
		mimeType:  mimeType,
		gain:      gain,
		buf:       audio.NewChunkBuffer(),
		meter:     audio.NewLevelMeter(audio.DefaultLevelConfig()),
		onLevel:   onLevel,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// run reads frames from the device until the stream ends, applying software
// gain and feeding the level meter as it goes.
func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	frame := make([]byte, frameBytes)
	for ctx.Err() == nil {
		n, err := io.ReadFull(s.stream, frame)
		if n > 0 {
			boosted, gerr := audio.ApplyGain(frame[:n], s.gain)
			if gerr != nil {
				s.logger.Warn().Err(gerr).Msg("Dropping malformed capture frame")
			} else {
				s.buf.Append(boosted)
				s.observeLevel(boosted)
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("Capture stream ended with error")
			}
			return
		}
	}
}

func (s *Session) observeLevel(frame []byte) {
	if s.onLevel == nil {
		return
	}
	samples := audio.SamplesFromLE(frame)
	if len(samples) == 0 {
		return
	}
	active := s.meter.ProcessFrame(samples)
	s.onLevel(s.meter.LastRMS(), active)
}

// Armed reports whether the arming delay has elapsed and the session is
// actively listening.
func (s *Session) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

func (s *Session) arm() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

func (s *Session) setResult(rec *Recording, err error) {
	s.mu.Lock()
	s.result = rec
	s.err = err
	s.mu.Unlock()
}

// Duration reports how long the session has been recording.
func (s *Session) Duration() time.Duration {
	return time.Since(s.startedAt)
}

// releaseResources closes the device stream and waits for the read loop.
// Safe to call any number of times.
func (s *Session) releaseResources() {
	s.release.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		_ = s.stream.Close()
		s.wg.Wait()
	})
}

// Package stream decodes the assistant backend's NDJSON chat stream. Each
// newline-terminated line is one JSON record; lines arrive split across
// arbitrary chunk boundaries.
package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Record is one decoded unit of the chat stream. A single record may carry
// any subset of the fields; Text values are cumulative (full text so far),
// never deltas.
type Record struct {
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// Decoder incrementally parses NDJSON records from an underlying reader.
type Decoder struct {
	r         io.Reader
	buf       []byte
	readBuf   []byte
	eof       bool
	malformed int
	logger    zerolog.Logger
}

const readChunkSize = 4096

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader, logger zerolog.Logger) *Decoder {
	return &Decoder{
		r:       r,
		readBuf: make([]byte, readChunkSize),
		logger:  logger,
	}
}

// Next returns the next successfully parsed record in arrival order. Lines
// that fail to parse are logged and skipped, never fatal. Returns io.EOF when
// the stream ends; content after the final newline is dropped at end of
// stream (the wire format terminates every record with a newline, so an
// unterminated tail is at best a truncated record).
func (d *Decoder) Next() (*Record, error) {
	for {
		if line, ok := d.takeLine(); ok {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			var rec Record
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				d.malformed++
				d.logger.Warn().Str("line", line).Err(err).Msg("Invalid NDJSON line, skipping")
				continue
			}
			return &rec, nil
		}

		if d.eof {
			if len(d.buf) > 0 {
				d.logger.Debug().Int("bytes", len(d.buf)).Msg("Dropping unterminated partial line at end of stream")
				d.buf = nil
			}
			return nil, io.EOF
		}

		n, err := d.r.Read(d.readBuf)
		if n > 0 {
			d.buf = append(d.buf, d.readBuf[:n]...)
		}
		if err == io.EOF {
			d.eof = true
		} else if err != nil {
			return nil, err
		}
	}
}

// takeLine extracts the next newline-terminated line from the pending buffer.
func (d *Decoder) takeLine() (string, bool) {
	idx := bytes.IndexByte(d.buf, '\n')
	if idx < 0 {
		return "", false
	}
	line := string(d.buf[:idx])
	d.buf = d.buf[idx+1:]
	return line, true
}

// Malformed returns the number of lines discarded as unparseable.
func (d *Decoder) Malformed() int {
	return d.malformed
}

// Kind classifies a record for logging and metrics. A record carrying several
// fields reports the first of text, audio, done, error.
func (r *Record) Kind() string {
	switch {
	case r.Text != "":
		return "text"
	case r.Audio != "":
		return "audio"
	case r.Done:
		return "done"
	case r.Error != "":
		return "error"
	default:
		return "empty"
	}
}

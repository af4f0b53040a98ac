// Package capture manages microphone acquisition, gain-adjusted recording,
// minimum-duration validation, and hand-off to transcription.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Classified capture failures. Each maps to a distinct user-facing message;
// a generic failure is never surfaced for these cases.
var (
	ErrNoDevice         = errors.New("no audio input device available")
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceBusy       = errors.New("audio input device is busy")
	ErrNoUsableSpeech   = errors.New("no usable speech detected")
)

// UserMessage renders a capture error as the message shown to the user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoDevice):
		return "No microphone was found. Please connect an audio input device."
	case errors.Is(err, ErrPermissionDenied):
		return "Could not access the microphone. Please check your permissions."
	case errors.Is(err, ErrDeviceBusy):
		return "The microphone is in use by another application."
	case errors.Is(err, ErrNoUsableSpeech):
		return "No usable speech detected. Try speaking for at least half a second."
	default:
		return "Recording failed. Please try again."
	}
}

// Device provides raw audio input. Implementations must deliver the signal
// unprocessed: no noise suppression, echo cancellation, or automatic gain
// control. Gain compensation happens in software downstream.
type Device interface {
	// Start begins capture and returns the raw sample stream and its MIME
	// type. Closing the stream stops the capture.
	Start(ctx context.Context) (io.ReadCloser, string, error)
}

// ExecDevice records by running an external capture command (arecord, parec,
// ...) emitting raw 16-bit little-endian PCM on stdout.
type ExecDevice struct {
	command    []string
	sampleRate int
}

// NewExecDevice creates a device from a command line split into command and
// arguments.
func NewExecDevice(command []string, sampleRate int) (*ExecDevice, error) {
	if len(command) == 0 {
		return nil, errors.New("recorder command is empty")
	}
	return &ExecDevice{command: command, sampleRate: sampleRate}, nil
}

// Start launches the recorder process.
func (d *ExecDevice) Start(ctx context.Context) (io.ReadCloser, string, error) {
	cmd := exec.CommandContext(ctx, d.command[0], d.command[1:]...)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", fmt.Errorf("recorder stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, "", classifyStartError(err, stderr.String())
	}

	mime := fmt.Sprintf("audio/l16;rate=%d;channels=1", d.sampleRate)
	return &processStream{reader: stdout, cmd: cmd, stderr: &stderr}, mime, nil
}

// processStream adapts the recorder process to io.ReadCloser. Close kills
// the process and reaps it; calling Close twice is safe.
type processStream struct {
	reader io.ReadCloser
	cmd    *exec.Cmd
	stderr *strings.Builder
	once   sync.Once
}

func (p *processStream) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if err != nil && err != io.EOF {
		return n, classifyStartError(err, p.stderr.String())
	}
	return n, err
}

func (p *processStream) Close() error {
	p.once.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		_ = p.reader.Close()
		_ = p.cmd.Wait()
	})
	return nil
}

// classifyStartError maps recorder failures onto the distinct capture error
// classes.
func classifyStartError(err error, stderr string) error {
	combined := strings.ToLower(err.Error() + " " + stderr)
	switch {
	case errors.Is(err, exec.ErrNotFound) || strings.Contains(combined, "no such device") ||
		strings.Contains(combined, "no such file"):
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	case strings.Contains(combined, "permission denied") || strings.Contains(combined, "not permitted"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case strings.Contains(combined, "busy") || strings.Contains(combined, "in use"):
		return fmt.Errorf("%w: %v", ErrDeviceBusy, err)
	default:
		return fmt.Errorf("recorder: %w", err)
	}
}

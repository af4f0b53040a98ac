package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// Sink is the shared audio output. Play blocks until the payload has finished
// playing or the context is cancelled; exactly one caller owns the sink at a
// time. Pause interrupts whatever is currently playing.
type Sink interface {
	Play(ctx context.Context, data []byte) error
	Pause()
}

// ExecPlayer plays audio by piping the payload to an external player command
// (aplay, ffplay, ...) on stdin.
type ExecPlayer struct {
	command []string

	mu      sync.Mutex
	current *exec.Cmd
	paused  bool
}

// NewExecPlayer creates a player from a command line split into command and
// arguments, e.g. ["aplay", "-q", "-"].
func NewExecPlayer(command []string) (*ExecPlayer, error) {
	if len(command) == 0 {
		return nil, errors.New("player command is empty")
	}
	return &ExecPlayer{command: command}, nil
}

// Play pipes data to the player process and waits for it to exit.
func (p *ExecPlayer) Play(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty audio payload")
	}

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Stdin = bytes.NewReader(data)

	p.mu.Lock()
	if p.current != nil {
		p.mu.Unlock()
		return errors.New("sink is busy")
	}
	p.current = cmd
	p.paused = false
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()
	}()

	if err := cmd.Run(); err != nil {
		p.mu.Lock()
		wasPaused := p.paused
		p.mu.Unlock()
		if wasPaused {
			// Interrupted on purpose; not a playback failure.
			return nil
		}
		return fmt.Errorf("player %s: %w", p.command[0], err)
	}
	return nil
}

// Pause kills the in-flight player process, if any. Safe to call when nothing
// is playing.
func (p *ExecPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.Process != nil {
		p.paused = true
		_ = p.current.Process.Kill()
	}
}

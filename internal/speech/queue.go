package speech

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/audio"
	"github.com/atomlabs/atom-console/internal/observability"
)

// Queue serializes speech playback: strict FIFO, at most one utterance
// playing at a time, and synthesis fetched only for the current head so a
// slow early utterance can never be overtaken by a fast later one. A failed
// head is dropped and the queue advances immediately.
type Queue struct {
	synth  Synthesizer
	sink   audio.Sink
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries []utterance
	playing bool
}

// utterance is one queue entry: either text awaiting synthesis or audio that
// arrived already rendered.
type utterance struct {
	text  string
	audio []byte
}

// NewQueue creates a playback queue that fetches audio from synth and plays
// it through sink.
func NewQueue(synth Synthesizer, sink audio.Sink, logger zerolog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		synth:  synth,
		sink:   sink,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue appends text to the back of the queue and starts the playback loop
// if it is idle.
func (q *Queue) Enqueue(text string) {
	if text == "" {
		return
	}
	q.push(utterance{text: text})
}

// EnqueueAudio appends an already-rendered audio payload, bypassing
// synthesis but keeping its place in the playback order.
func (q *Queue) EnqueueAudio(data []byte) {
	if len(data) == 0 {
		return
	}
	q.push(utterance{audio: data})
}

func (q *Queue) push(u utterance) {
	q.mu.Lock()
	q.entries = append(q.entries, u)
	observability.SetSpeechQueueDepth(len(q.entries))
	start := !q.playing
	if start {
		q.playing = true
	}
	q.mu.Unlock()

	if start {
		q.wg.Add(1)
		go q.playLoop()
	}
}

// playLoop drains the queue one utterance at a time. Only this goroutine
// touches the sink, which keeps the single-writer ownership of the audio
// output.
func (q *Queue) playLoop() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.entries) == 0 || q.ctx.Err() != nil {
			q.playing = false
			q.mu.Unlock()
			return
		}
		next := q.entries[0]
		q.entries = q.entries[1:]
		observability.SetSpeechQueueDepth(len(q.entries))
		q.mu.Unlock()

		data := next.audio
		if data == nil {
			var err error
			data, err = q.synth.Synthesize(q.ctx, next.text)
			if err != nil {
				// The entry is consumed either way; a synthesis failure must
				// not stall the rest of the queue.
				q.logger.Warn().Err(err).Msg("Synthesis failed, dropping utterance")
				continue
			}
		}

		start := time.Now()
		if err := q.sink.Play(q.ctx, data); err != nil {
			q.logger.Warn().Err(err).Msg("Playback failed, advancing queue")
		}
		observability.RecordPlayback(time.Since(start))
	}
}

// Pause interrupts the current playback immediately. Queued utterances are
// unaffected.
func (q *Queue) Pause() {
	q.sink.Pause()
}

// Depth returns the number of utterances waiting (not counting one currently
// playing).
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops the queue and waits for the in-flight utterance to finish or
// be interrupted.
func (q *Queue) Close() {
	q.cancel()
	q.sink.Pause()
	q.wg.Wait()
}

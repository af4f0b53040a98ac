package audio

import (
	"sync"
)

// ChunkBuffer accumulates recorded audio chunks for one capture session. It is
// safe for a producer goroutine to append while the controller inspects size.
type ChunkBuffer struct {
	chunks [][]byte
	total  int
	mu     sync.RWMutex
}

// NewChunkBuffer creates an empty chunk buffer.
func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Append adds one recorded chunk. The chunk is copied so callers may reuse
// their scratch buffer.
func (b *ChunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	c := make([]byte, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	b.chunks = append(b.chunks, c)
	b.total += len(c)
	b.mu.Unlock()
}

// Len returns the total number of accumulated bytes.
func (b *ChunkBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

// ChunkCount returns the number of appended chunks.
func (b *ChunkBuffer) ChunkCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chunks)
}

// Bytes concatenates all chunks into one recording blob.
func (b *ChunkBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]byte, 0, b.total)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// Reset discards all accumulated chunks.
func (b *ChunkBuffer) Reset() {
	b.mu.Lock()
	b.chunks = nil
	b.total = 0
	b.mu.Unlock()
}

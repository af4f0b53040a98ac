package audio

import (
	"bytes"
	"testing"
)

func TestChunkBuffer_AppendAndBytes(t *testing.T) {
	b := NewChunkBuffer()

	b.Append([]byte{1, 2, 3})
	b.Append([]byte{4, 5})

	if b.Len() != 5 {
		t.Errorf("Expected Len 5, got %d", b.Len())
	}
	if b.ChunkCount() != 2 {
		t.Errorf("Expected 2 chunks, got %d", b.ChunkCount())
	}
	if !bytes.Equal(b.Bytes(), []byte{1, 2, 3, 4, 5}) {
		t.Errorf("Unexpected concatenation: %v", b.Bytes())
	}
}

func TestChunkBuffer_CopiesInput(t *testing.T) {
	b := NewChunkBuffer()

	scratch := []byte{1, 2, 3}
	b.Append(scratch)
	scratch[0] = 99

	if b.Bytes()[0] != 1 {
		t.Error("Append must copy the chunk, caller mutation leaked in")
	}
}

func TestChunkBuffer_EmptyChunkIgnored(t *testing.T) {
	b := NewChunkBuffer()
	b.Append(nil)
	b.Append([]byte{})

	if b.Len() != 0 || b.ChunkCount() != 0 {
		t.Errorf("Expected empty buffer, got len=%d chunks=%d", b.Len(), b.ChunkCount())
	}
}

func TestChunkBuffer_Reset(t *testing.T) {
	b := NewChunkBuffer()
	b.Append([]byte{1, 2, 3})
	b.Reset()

	if b.Len() != 0 {
		t.Errorf("Expected Len 0 after Reset, got %d", b.Len())
	}
	if len(b.Bytes()) != 0 {
		t.Errorf("Expected no bytes after Reset, got %v", b.Bytes())
	}
}

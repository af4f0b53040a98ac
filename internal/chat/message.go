package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the conversation. ID and Timestamp are immutable
// once assigned; Content and IsStreaming mutate only while the message is the
// in-flight assistant reply.
type Message struct {
	ID          string    `json:"id" msgpack:"id"`
	Role        Role      `json:"role" msgpack:"role"`
	Content     string    `json:"content" msgpack:"content"`
	Timestamp   time.Time `json:"timestamp" msgpack:"timestamp"`
	IsStreaming bool      `json:"isStreaming,omitempty" msgpack:"is_streaming"`
}

// Store holds the conversation transcript. The list is append-only; the only
// in-place mutation allowed is the streaming assistant message's Content and
// IsStreaming fields, and IsStreaming never returns to true once cleared.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

// NewStore creates an empty message store.
func NewStore() *Store {
	return &Store{}
}

// Restore seeds the store with a previously persisted transcript. Any
// streaming flags left over from an interrupted run are cleared.
func (s *Store) Restore(messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]Message, len(messages))
	copy(s.messages, messages)
	for i := range s.messages {
		s.messages[i].IsStreaming = false
	}
}

// Append adds a completed message and returns it.
func (s *Store) Append(role Role, content string) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	return msg
}

// AppendStreaming adds an empty assistant message marked as streaming and
// returns it. Its ID is stable for the duration of the exchange.
func (s *Store) AppendStreaming() Message {
	msg := Message{
		ID:          uuid.New().String(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	return msg
}

// SetContent replaces the content of the message with the given ID. Stream
// text is cumulative, so this is always a wholesale replace, never an append.
func (s *Store) SetContent(id, content string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// FinishStreaming clears the streaming flag on the message with the given ID.
// Safe to call more than once; the flag is never resurrected.
func (s *Store) FinishStreaming(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].IsStreaming = false
			return s.messages[i], true
		}
	}
	return Message{}, false
}

// Messages returns a snapshot of the transcript.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// StreamingCount returns how many messages currently carry the streaming
// flag. Under serialized sends this is at most one.
func (s *Store) StreamingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.messages {
		if s.messages[i].IsStreaming {
			n++
		}
	}
	return n
}

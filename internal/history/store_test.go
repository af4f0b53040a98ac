package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomlabs/atom-console/internal/chat"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "history.msgpack"), zerolog.Nop())
	messages, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Expected empty history, got %d messages", len(messages))
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atom", "history.msgpack")
	store := NewStore(path, zerolog.Nop())

	in := []chat.Message{
		{ID: "m1", Role: chat.RoleUser, Content: "hello", Timestamp: time.Now().UTC().Truncate(time.Second)},
		{ID: "m2", Role: chat.RoleAssistant, Content: "hi there", Timestamp: time.Now().UTC().Truncate(time.Second)},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(out))
	}
	if out[0].Content != "hello" || out[1].Role != chat.RoleAssistant {
		t.Errorf("Round trip mangled messages: %+v", out)
	}
}

func TestStore_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.msgpack")
	if err := os.WriteFile(path, []byte("not msgpack at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path, zerolog.Nop())
	messages, err := store.Load()
	if err != nil {
		t.Fatalf("Load() must not fail on corrupt history: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Expected empty history from corrupt file, got %d", len(messages))
	}
}

func TestStore_DisabledWithoutPath(t *testing.T) {
	store := NewStore("", zerolog.Nop())
	if store.Enabled() {
		t.Error("Store without a path must be disabled")
	}
	if err := store.Save([]chat.Message{{ID: "x"}}); err != nil {
		t.Errorf("Disabled save must be a no-op, got %v", err)
	}
	if messages, err := store.Load(); err != nil || messages != nil {
		t.Errorf("Disabled load must be empty, got %v, %v", messages, err)
	}
}

package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("tts", 3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Expected wrapped call error, got %v", err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("Expected open state after 3 failures, got %v", cb.State())
	}
	if err := cb.Call(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("tts", 3, time.Minute)

	cb.Call(func() error { return errBoom })
	cb.Call(func() error { return errBoom })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return errBoom })
	cb.Call(func() error { return errBoom })

	if cb.State() != StateClosed {
		t.Errorf("Success must reset the failure streak, state is %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("tts", 1, 10*time.Millisecond)

	cb.Call(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Fatal("Expected open state")
	}

	time.Sleep(20 * time.Millisecond)

	// Three successful probes close the circuit again.
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("Probe %d rejected: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected closed state after successful probes, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("tts", 1, 10*time.Millisecond)

	cb.Call(func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	cb.Call(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Errorf("Half-open failure must reopen the circuit, got %v", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("tts", 1, time.Minute)
	cb.Call(func() error { return errBoom })
	cb.Reset()

	if cb.State() != StateClosed {
		t.Error("Reset must close the circuit")
	}
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Call after Reset failed: %v", err)
	}
}

package resilience

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReconnectConfig holds configuration for reconnection with exponential
// backoff. It drives re-subscription to the speech event channel after the
// server push stream drops.
type ReconnectConfig struct {
	MaxAttempts int           // 0 means unlimited
	Backoff     time.Duration // initial backoff
	Multiplier  float64
	MaxBackoff  time.Duration
}

// DefaultReconnectConfig returns a default reconnection configuration.
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		MaxAttempts: 5,
		Backoff:     1 * time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}
}

// ReconnectFunc attempts one connection.
type ReconnectFunc func() error

// Reconnect calls fn until it succeeds, the attempt budget is exhausted, or
// the context is cancelled. Returns the last error on exhaustion.
func Reconnect(ctx context.Context, fn ReconnectFunc, config *ReconnectConfig, logger zerolog.Logger) error {
	if config == nil {
		config = DefaultReconnectConfig()
	}

	backoff := config.Backoff
	var lastErr error

	for attempt := 0; config.MaxAttempts == 0 || attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err == nil {
			if attempt > 0 {
				logger.Info().Int("attempts", attempt+1).Msg("Reconnected")
			}
			return nil
		} else {
			lastErr = err
		}

		logger.Warn().Int("attempt", attempt+1).Err(lastErr).Dur("backoff", backoff).Msg("Connection attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * config.Multiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return lastErr
}

package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/logger"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Settings tunes a Breaker. Zero values fall back to the defaults below.
type Settings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// Breaker guards calls to an external dependency so a failing upstream is
// short-circuited instead of holding request goroutines on timeouts.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func New(s Settings, logg *logger.Logger) *Breaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}
	threshold := s.ConsecutiveFailures

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations say nothing about upstream health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "circuit breaker state change")
		},
	})
	return &Breaker{cb: cb}
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if b == nil || b.cb == nil {
		return fn(ctx)
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// State reports the current breaker state name.
func (b *Breaker) State() string {
	if b == nil || b.cb == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}

// IsOpen reports whether err was produced by a rejecting breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

package mongodb

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the store circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("mongodb: circuit breaker open")

// Breaker wraps store operations in a circuit breaker so a down MongoDB
// surfaces quickly instead of piling up timed-out calls.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a circuit breaker for lot store operations
func NewBreaker(name string) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do executes op through the breaker. An open breaker returns ErrCircuitOpen.
func (b *Breaker) Do(op func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, op()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State returns the current breaker state name
func (b *Breaker) State() string {
	return b.cb.State().String()
}

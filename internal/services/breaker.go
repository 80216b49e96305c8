package services

import (
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// newBreaker trips after at least 3 requests with a 60% failure ratio and half-opens after a minute
func newBreaker(name string, logger *log.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Printf("Circuit breaker %s: %s -> %s", name, from, to)
			if to == gobreaker.StateOpen {
				logger.Printf("⚠️  %s circuit opened, failing fast for 60s", name)
			}
		},
	})
}

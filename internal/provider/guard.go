package provider

import (
	"errors"
	"sync"
	"time"

	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
)

const (
	guardMaxFailures = 5
	guardCooldown    = 5 * time.Minute
)

// Guard is a lightweight circuit breaker shared by all calls to one provider.
// It tracks consecutive provider-level failures and temporarily blocks calls
// after repeated outages. Semantic errors (invalid response, empty result)
// pass through without tripping the circuit.
type Guard struct {
	name string

	mu                  sync.Mutex
	consecutiveFailures int
	lastFailure         time.Time
}

// NewGuard creates a circuit breaker for the named provider.
func NewGuard(name string) *Guard {
	return &Guard{name: name}
}

// Do executes fn through the circuit breaker.
func (g *Guard) Do(fn func() error) error {
	if !g.canCall() {
		return apperrors.WithMessagef(apperrors.ErrProviderUnavailable,
			"%s is temporarily unavailable (circuit open)", g.name)
	}

	err := fn()
	switch {
	case err == nil:
		g.recordSuccess()
	case errors.Is(err, apperrors.ErrProviderUnavailable) || errors.Is(err, apperrors.ErrRateLimited):
		g.recordFailure(err)
	default:
		// Semantic or data errors do not count against the circuit.
	}
	return err
}

func (g *Guard) canCall() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.consecutiveFailures < guardMaxFailures {
		return true
	}
	return time.Since(g.lastFailure) > guardCooldown
}

func (g *Guard) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveFailures = 0
}

func (g *Guard) recordFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveFailures++
	g.lastFailure = time.Now()
	logger.Get().Warnw("provider failure",
		"provider", g.name,
		"consecutive_failures", g.consecutiveFailures,
		"error", err,
	)
}

package transport

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// limiterRegistry hands out one politeness rate limiter per endpoint. A nil
// registry disables limiting entirely.
type limiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// newLimiterRegistry creates a registry limiting each endpoint to rps
// requests per second. A non-positive rps disables limiting; a non-positive
// burst defaults to the ceiling of rps.
func newLimiterRegistry(rps float64, burst int) *limiterRegistry {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(math.Ceil(rps))
		if burst < 1 {
			burst = 1
		}
	}
	return &limiterRegistry{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// get retrieves an existing limiter for an endpoint or creates a new one.
func (l *limiterRegistry) get(endpoint string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[endpoint]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[endpoint]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.rps, l.burst)
	l.limiters[endpoint] = limiter
	return limiter
}

// wait blocks until the endpoint's limiter admits one request or the
// context ends.
func (l *limiterRegistry) wait(ctx context.Context, endpoint string) error {
	if l == nil {
		return nil
	}
	return l.get(endpoint).Wait(ctx)
}

package ratelimit

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ProviderStatus is a point-in-time snapshot of one provider's budget
type ProviderStatus struct {
	RequestsPerSecond float64
	Burst             int
	Available         float64
}

// Limiter throttles outbound calls per external provider. Each provider
// has an independent token bucket so one overloaded provider does not
// starve the others. Safe for concurrent use from any worker.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	logger   *logrus.Logger
}

// NewLimiter creates an empty per-provider rate limiter
func NewLimiter(logger *logrus.Logger) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		logger:   logger,
	}
}

// Register sets the budget for a provider, replacing any existing one
func (l *Limiter) Register(provider string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[provider] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	l.logger.WithFields(logrus.Fields{
		"provider": provider,
		"rps":      requestsPerSecond,
		"burst":    burst,
	}).Debug("Rate limit registered")
}

// Wait blocks the caller until the provider's bucket has capacity or
// the context is done. Unregistered providers pass through unthrottled.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	l.mu.RLock()
	limiter := l.limiters[provider]
	l.mu.RUnlock()

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// Status reports every registered provider's current budget
func (l *Limiter) Status() map[string]ProviderStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	status := make(map[string]ProviderStatus, len(l.limiters))
	for provider, limiter := range l.limiters {
		status[provider] = ProviderStatus{
			RequestsPerSecond: float64(limiter.Limit()),
			Burst:             limiter.Burst(),
			Available:         limiter.Tokens(),
		}
	}
	return status
}

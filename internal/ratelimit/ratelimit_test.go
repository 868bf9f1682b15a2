package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLimiter() *Limiter {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewLimiter(logger)
}

func TestWaitUnregisteredPassesThrough(t *testing.T) {
	limiter := testLimiter()

	start := time.Now()
	if err := limiter.Wait(context.Background(), "unknown"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("Expected an unregistered provider to pass through immediately")
	}
}

func TestWaitThrottlesBeyondBurst(t *testing.T) {
	limiter := testLimiter()
	limiter.Register("slow", 10, 1)

	ctx := context.Background()
	if err := limiter.Wait(ctx, "slow"); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "slow"); err != nil {
		t.Fatalf("Second wait failed: %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("Expected the second call to wait for the bucket to refill")
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	limiter := testLimiter()
	limiter.Register("slow", 0.1, 1)

	ctx := context.Background()
	if err := limiter.Wait(ctx, "slow"); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(cancelled, "slow"); err == nil {
		t.Error("Expected the cancelled wait to fail")
	}
}

func TestStatusReportsBudgets(t *testing.T) {
	limiter := testLimiter()
	limiter.Register("tmdb", 4, 2)
	limiter.Register("jikan", 1, 1)

	status := limiter.Status()
	if len(status) != 2 {
		t.Fatalf("Expected 2 providers, got %d", len(status))
	}
	if status["tmdb"].RequestsPerSecond != 4 || status["tmdb"].Burst != 2 {
		t.Errorf("Expected tmdb budget 4/2, got %.1f/%d",
			status["tmdb"].RequestsPerSecond, status["tmdb"].Burst)
	}
}

func TestRegisterReplacesBudget(t *testing.T) {
	limiter := testLimiter()
	limiter.Register("tmdb", 4, 2)
	limiter.Register("tmdb", 8, 4)

	status := limiter.Status()
	if status["tmdb"].RequestsPerSecond != 8 {
		t.Errorf("Expected the budget replaced, got %.1f rps", status["tmdb"].RequestsPerSecond)
	}
}

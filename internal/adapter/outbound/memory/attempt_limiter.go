package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lumenshop/storefront/internal/domain/ratelimit"
)

// AttemptLimiter implements ratelimit.Limiter with GCRA over an in-memory
// map of theoretical arrival times. Safe for concurrent use. Idle keys are
// dropped by the cleanup goroutine started with StartCleanup.
type AttemptLimiter struct {
	cells map[string]time.Time
	mu    sync.Mutex
	now   func() time.Time

	cleanupInterval time.Duration
	maxIdle         time.Duration
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
}

// LimiterOption configures an AttemptLimiter.
type LimiterOption func(*AttemptLimiter)

// WithLimiterClock replaces time.Now.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *AttemptLimiter) { l.now = now }
}

// WithCleanup sets how often idle keys are swept and how long a key may be idle.
func WithCleanup(interval, maxIdle time.Duration) LimiterOption {
	return func(l *AttemptLimiter) {
		l.cleanupInterval = interval
		l.maxIdle = maxIdle
	}
}

// NewAttemptLimiter creates a limiter. Defaults: sweep every 5 minutes,
// drop keys idle for an hour.
func NewAttemptLimiter(opts ...LimiterOption) *AttemptLimiter {
	l := &AttemptLimiter{
		cells:           make(map[string]time.Time),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		maxIdle:         time.Hour,
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one attempt for key. A disabled limit always allows.
func (l *AttemptLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (ratelimit.Result, error) {
	if !limit.Enabled() {
		return ratelimit.Result{Allowed: true}, nil
	}
	burst := limit.Burst
	if burst <= 0 {
		burst = limit.Rate
	}
	emission := limit.Period / time.Duration(limit.Rate)
	burstOffset := time.Duration(burst) * emission

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	tat, ok := l.cells[key]
	if !ok || tat.Before(now) {
		tat = now
	}

	// The attempt fits when the TAT after it stays within the burst window.
	newTAT := tat.Add(emission)
	allowAt := newTAT.Add(-burstOffset)
	if now.Before(allowAt) {
		return ratelimit.Result{RetryAfter: allowAt.Sub(now)}, nil
	}
	l.cells[key] = newTAT

	remaining := int((burstOffset - newTAT.Sub(now)) / emission)
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Result{Allowed: true, Remaining: remaining}, nil
}

// StartCleanup runs the idle-key sweep until ctx is done or Stop is called.
func (l *AttemptLimiter) StartCleanup(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopChan:
				return
			case <-ticker.C:
				l.cleanup()
			}
		}
	}()
}

func (l *AttemptLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.maxIdle)
	cleaned := 0
	for key, tat := range l.cells {
		if tat.Before(cutoff) {
			delete(l.cells, key)
			cleaned++
		}
	}
	if cleaned > 0 {
		slog.Debug("attempt limiter cleanup completed",
			"cleaned_keys", cleaned,
			"remaining_keys", len(l.cells))
	}
}

// Stop stops the cleanup goroutine and waits for it. Safe to call more than once.
func (l *AttemptLimiter) Stop() {
	l.once.Do(func() { close(l.stopChan) })
	l.wg.Wait()
}

// Size returns the number of tracked keys.
func (l *AttemptLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cells)
}

var _ ratelimit.Limiter = (*AttemptLimiter)(nil)

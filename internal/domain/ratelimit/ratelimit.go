// Package ratelimit defines attempt throttling for credential endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limit is a GCRA limit: Rate events per Period, allowing bursts of Burst.
type Limit struct {
	Rate   int
	Burst  int
	Period time.Duration
}

// PerMinute returns a limit of n events per minute with a burst of n.
// n <= 0 yields the zero Limit, which disables limiting.
func PerMinute(n int) Limit {
	if n <= 0 {
		return Limit{}
	}
	return Limit{Rate: n, Burst: n, Period: time.Minute}
}

// Enabled reports whether l limits anything.
func (l Limit) Enabled() bool {
	return l.Rate > 0 && l.Period > 0
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed bool

	// Remaining is the number of further events allowed right now.
	Remaining int

	// RetryAfter is how long to wait before the next event is allowed.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter decides whether an event identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, limit Limit) (Result, error)
}

// Scope names the operation a key counts attempts for.
type Scope string

const (
	ScopeSignIn Scope = "signin"
	ScopeSignUp Scope = "signup"
)

// Key returns the limiter key for attempts on scope from client.
// Format: "ratelimit:{scope}:{client}".
func Key(scope Scope, client string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, client)
}

package server

import (
	"fmt"
	"sync"
	"time"
)

// Limits bounds per-client usage. Zero disables a limit.
type Limits struct {
	RequestsPerMinute int
	RequestsPerHour   int
	RequestsPerDay    int
	BytesPerDay       int64
}

// RateLimiter tracks per-client request timestamps in sliding windows and
// daily upload volume.
type RateLimiter struct {
	mu      sync.Mutex
	limits  Limits
	clients map[string]*clientUsage
	now     func() time.Time
}

type clientUsage struct {
	// requests holds timestamps within the last hour, oldest first.
	requests []time.Time
	day      time.Time
	dayCount int
	dayBytes int64
}

// Usage is a snapshot of one client's consumption.
type Usage struct {
	LastMinute int
	LastHour   int
	Today      int
	BytesToday int64
}

// NewRateLimiter creates a limiter enforcing limits.
func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		clients: make(map[string]*clientUsage),
		now:     time.Now,
	}
}

// Allow records a request of size bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.usage(client, now)

	if n := rl.limits.RequestsPerMinute; n > 0 {
		if recent := since(u.requests, now.Add(-time.Minute)); len(recent) >= n {
			return &RateLimitError{Window: "minute", Limit: n, RetryAfter: recent[0].Add(time.Minute).Sub(now)}
		}
	}
	if n := rl.limits.RequestsPerHour; n > 0 && len(u.requests) >= n {
		return &RateLimitError{Window: "hour", Limit: n, RetryAfter: u.requests[0].Add(time.Hour).Sub(now)}
	}

	resets := u.day.AddDate(0, 0, 1)
	if n := rl.limits.RequestsPerDay; n > 0 && u.dayCount >= n {
		return &QuotaExceededError{Kind: "requests", Limit: int64(n), Used: int64(u.dayCount), Resets: resets}
	}
	if n := rl.limits.BytesPerDay; n > 0 && u.dayBytes+size > n {
		return &QuotaExceededError{Kind: "data", Limit: n, Used: u.dayBytes, Resets: resets}
	}

	u.requests = append(u.requests, now)
	u.dayCount++
	u.dayBytes += size
	return nil
}

// Usage returns the current consumption of client.
func (rl *RateLimiter) Usage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.clients[client]
	if !ok {
		return Usage{}
	}
	rl.expire(u, now)
	return Usage{
		LastMinute: len(since(u.requests, now.Add(-time.Minute))),
		LastHour:   len(u.requests),
		Today:      u.dayCount,
		BytesToday: u.dayBytes,
	}
}

func (rl *RateLimiter) usage(client string, now time.Time) *clientUsage {
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{day: startOfDay(now)}
		rl.clients[client] = u
	}
	rl.expire(u, now)
	return u
}

func (rl *RateLimiter) expire(u *clientUsage, now time.Time) {
	u.requests = since(u.requests, now.Add(-time.Hour))
	if today := startOfDay(now); !today.Equal(u.day) {
		u.day = today
		u.dayCount = 0
		u.dayBytes = 0
	}
}

// since returns the suffix of ts newer than cutoff.
func since(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RateLimitError reports an exceeded request rate.
type RateLimitError struct {
	Window     string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Window, e.Limit, e.RetryAfter)
}

// QuotaExceededError reports an exhausted daily quota.
type QuotaExceededError struct {
	Kind   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Kind, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}

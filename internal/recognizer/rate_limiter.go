package recognizer

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces outbound provider calls so a burst of scanned images
// does not trip the vision API's per-second quota. Each caller reserves the
// next free slot and blocks until it arrives.
type RateLimiter struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RateLimiter{interval: time.Second / time.Duration(requestsPerSecond)}
}

// Wait blocks until this caller's reserved slot, or returns early when ctx
// is cancelled. The slot stays consumed either way.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	slot := r.next
	if now := time.Now(); slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	sleep := time.Until(slot)
	if sleep <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

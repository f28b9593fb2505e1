package api

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// RequestLimiter is a token bucket that smooths the ingress rate. Requests
// wait for a token rather than being rejected; the caller's context bounds
// the wait.
type RequestLimiter struct {
	mu     sync.Mutex
	rate   time.Duration
	burst  int
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	onWait func(time.Duration)

	tokens int
	last   time.Time
}

// NewRequestLimiter admits burst requests immediately and one more per
// rate interval after that. onWait observes time spent waiting; nil
// disables the callback.
func NewRequestLimiter(rate time.Duration, burst int, onWait func(time.Duration)) *RequestLimiter {
	now := time.Now
	limiter := &RequestLimiter{
		rate:   rate,
		burst:  burst,
		now:    now,
		sleep:  sleepWithContext,
		onWait: onWait,
	}
	limiter.tokens = burst
	limiter.last = now()
	return limiter
}

// Wait blocks until a token is available or ctx expires. A nil limiter or
// a disabled configuration admits immediately.
func (r *RequestLimiter) Wait(ctx context.Context) error {
	if r == nil || r.rate <= 0 || r.burst <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mu.Lock()
		now := r.now()
		r.refill(now)
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		wait := r.rate - now.Sub(r.last)
		r.mu.Unlock()
		if wait <= 0 {
			continue
		}
		if r.onWait != nil {
			r.onWait(wait)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *RequestLimiter) refill(now time.Time) {
	if r.rate <= 0 {
		r.tokens = r.burst
		r.last = now
		return
	}
	elapsed := now.Sub(r.last)
	if elapsed < r.rate {
		return
	}
	add := int(elapsed / r.rate)
	if add <= 0 {
		return
	}
	r.tokens += add
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = r.last.Add(time.Duration(add) * r.rate)
}

// instrument wraps a handler with a call span and the ingress limiter.
func (s *Server) instrument(route string, handler func(http.ResponseWriter, *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := s.metrics.Start(route)
		if err := s.limiter.Wait(r.Context()); err != nil {
			span.End(err)
			writeDetail(w, http.StatusServiceUnavailable, "request admission cancelled")
			return
		}
		start := time.Now()
		err := handler(w, r)
		span.End(err)
		if err != nil {
			s.logf("http %s error after %v: %v", route, time.Since(start), err)
		}
	})
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

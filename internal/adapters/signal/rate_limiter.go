package signal

import (
	"sync"
	"time"

	"github.com/dkeye/relay/internal/domain"
	"golang.org/x/time/rate"
)

// OfferRateLimiter bounds how often one client may renegotiate. Every offer
// replaces the client's session, so a burst would churn transports.
type OfferRateLimiter struct {
	mu       sync.Mutex
	limiters map[domain.SessionID]*rate.Limiter
	every    rate.Limit
	burst    int
	now      func() time.Time
}

// NewOfferRateLimiter allows limit offers per interval, refilled evenly.
// A non-positive limit disables limiting.
func NewOfferRateLimiter(limit int, interval time.Duration) *OfferRateLimiter {
	rl := &OfferRateLimiter{
		limiters: make(map[domain.SessionID]*rate.Limiter),
		every:    rate.Inf,
		burst:    limit,
		now:      time.Now,
	}
	if limit > 0 && interval > 0 {
		rl.every = rate.Every(interval / time.Duration(limit))
	}
	return rl
}

// Allow records an attempt for sid and reports whether it is within budget.
func (rl *OfferRateLimiter) Allow(sid domain.SessionID) bool {
	if rl.burst <= 0 {
		return true
	}
	rl.mu.Lock()
	lim, ok := rl.limiters[sid]
	if !ok {
		lim = rate.NewLimiter(rl.every, rl.burst)
		rl.limiters[sid] = lim
	}
	rl.mu.Unlock()
	return lim.AllowN(rl.now(), 1)
}

// Forget drops the state of a disconnected client.
func (rl *OfferRateLimiter) Forget(sid domain.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, sid)
}

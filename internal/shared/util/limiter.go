package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket that throttles repeated analysis runs. A nil
// Limiter, or one built with a non-positive rate, never throttles.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter allows perSecond events per second with the given burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{inner: rate.NewLimiter(limit, burst)}
}

// Allow reports whether one event may happen now, consuming a token if so.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.inner.AllowN(time.Now(), 1)
}

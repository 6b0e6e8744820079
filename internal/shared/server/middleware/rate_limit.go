package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"doc-assistant/internal/shared/server/respond"
)

// GenerationLimitConfig bounds how often one browser session may start a generation.
type GenerationLimitConfig struct {
	// Rate is the sustained number of generations per second; Burst is how many may start back to back.
	Rate  float64
	Burst int
	// IdleTTL drops buckets of sessions that stopped generating. Usually the session TTL.
	IdleTTL time.Duration
	Limiter *GenerationLimiter
	// OnLimited renders the 429 body; the Retry-After header is already set.
	OnLimited func(c *gin.Context, retryAfterMs int)
}

// GenerationLimiter is a token bucket per session.
type GenerationLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rateBucket
	now       func() time.Time
	idle      time.Duration
	lastSweep time.Time
}

type rateBucket struct {
	tokens float64
	last   time.Time
}

// NewGenerationLimiter builds a limiter that forgets sessions idle for longer than idle.
// A zero idle keeps buckets only as long as they need to refill.
func NewGenerationLimiter(idle time.Duration, now func() time.Time) *GenerationLimiter {
	if now == nil {
		now = time.Now
	}
	return &GenerationLimiter{
		buckets:   make(map[string]*rateBucket),
		now:       now,
		idle:      idle,
		lastSweep: now(),
	}
}

// GenerationLimit rejects generation requests of a session that ran out of tokens.
// Requests without a session (the Session middleware did not run) are keyed by client IP.
func GenerationLimit(cfg GenerationLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewGenerationLimiter(cfg.IdleTTL, nil)
	}
	return func(c *gin.Context) {
		key := SessionIDFromContext(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		allowed, retryAfter := cfg.Limiter.Allow(key, cfg.Rate, cfg.Burst)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(float64(retryAfterMs)/1000.0))))
		if cfg.OnLimited != nil {
			cfg.OnLimited(c, retryAfterMs)
			c.Abort()
			return
		}
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many generation requests", gin.H{
			"retryAfterMs": retryAfterMs,
		})
	}
}

// Allow takes one token from the session's bucket, refilling it at rate per second up to burst.
// A non-positive rate or burst disables limiting.
func (l *GenerationLimiter) Allow(sessionKey string, rate float64, burst int) (bool, time.Duration) {
	if l == nil || rate <= 0 || burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now, rate, burst)

	bucket, ok := l.buckets[sessionKey]
	if !ok {
		bucket = &rateBucket{tokens: float64(burst), last: now}
		l.buckets[sessionKey] = bucket
	}
	if elapsed := now.Sub(bucket.last).Seconds(); elapsed > 0 {
		bucket.tokens = math.Min(float64(burst), bucket.tokens+elapsed*rate)
		bucket.last = now
	}
	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, 0
	}
	waitSec := (1 - bucket.tokens) / rate
	return false, time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond
}

// Len reports how many sessions currently hold a bucket.
func (l *GenerationLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweepLocked drops buckets untouched for the idle window. The window is never
// shorter than a full refill, so a dropped bucket would have been full anyway.
func (l *GenerationLimiter) sweepLocked(now time.Time, rate float64, burst int) {
	idle := l.idle
	if refill := time.Duration(float64(burst) / rate * float64(time.Second)); idle < refill {
		idle = refill
	}
	if now.Sub(l.lastSweep) < idle {
		return
	}
	l.lastSweep = now
	for key, bucket := range l.buckets {
		if now.Sub(bucket.last) >= idle {
			delete(l.buckets, key)
		}
	}
}

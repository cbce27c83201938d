package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter tracks one token bucket per client IP. Buckets idle past the
// expiry are dropped to keep the map bounded.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipBucket
	limit    rate.Limit
	burst    int
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketExpiry = 10 * time.Minute

func newIPLimiter(rpm, burst int) *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*ipBucket),
		limit:    rate.Limit(float64(rpm) / 60.0),
		burst:    burst,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.limiters[ip]
	if !ok {
		bucket = &ipBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = bucket
	}
	bucket.lastSeen = time.Now()

	// Opportunistic cleanup keeps the map from growing unbounded.
	if len(l.limiters) > 1000 {
		for key, b := range l.limiters {
			if time.Since(b.lastSeen) > bucketExpiry {
				delete(l.limiters, key)
			}
		}
	}

	return bucket.limiter.Allow()
}

// RateLimit limits each client IP to rpm requests per minute with a small
// burst allowance. Health checks are exempt. The counters are in-process, so
// multi-replica deployments get a per-replica limit.
func RateLimit(rpm int) gin.HandlerFunc {
	limiter := newIPLimiter(rpm, maxInt(rpm/6, 1))
	return func(c *gin.Context) {
		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error_code": "rate_limit_exceeded",
				"message":    "Too many requests. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/parcelreview/backend/internal/interfaces/http/dto"
)

// RateLimiter keeps one token bucket per client: limit requests may burst,
// then tokens refill evenly over period. Clients idle for a full period
// hold a full bucket and are evicted on the next call.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   int
	period  time.Duration
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows limit requests per key in every period.
// limit is at least 1.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	limit = max(limit, 1)
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow consumes one token for key. It returns whether the request fits,
// the tokens left, and how long to wait when it does not.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, c := range rl.clients {
		if now.Sub(c.lastSeen) >= rl.period {
			delete(rl.clients, k)
		}
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Every(rl.period/time.Duration(rl.limit)), rl.limit)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	if c.limiter.AllowN(now, 1) {
		return true, int(c.limiter.TokensAt(now)), 0
	}

	r := c.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, 0, wait
}

// RateLimit rejects callers that exceeded the limiter with 429
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, wait := limiter.Allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(max(1, int(wait.Round(time.Second)/time.Second))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests, try again later",
				requestID(c),
			))
			return
		}
		c.Next()
	}
}

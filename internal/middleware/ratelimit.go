package middleware

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter admits at most limit requests per key within a sliding window. Keys are
// "user:<id>" for authenticated callers and "ip:<addr>" for the public unsubscribe links.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time // ascending
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	go rl.sweep()
	return rl
}

// inWindow drops hits at or before cutoff. hits is sorted, so the survivors are a suffix.
func inWindow(hits []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(hits), func(i int) bool { return hits[i].After(cutoff) })
	return hits[i:]
}

// Take records a request for key. When the key is over its limit it returns false and how long
// until the oldest hit leaves the window.
func (rl *RateLimiter) Take(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	hits := inWindow(rl.hits[key], now.Add(-rl.window))
	if len(hits) >= rl.limit {
		rl.hits[key] = hits
		return false, hits[0].Add(rl.window).Sub(now)
	}
	rl.hits[key] = append(hits, now)
	return true, 0
}

// Allow is Take without the wait.
func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.Take(key)
	return ok
}

// sweep forgets idle keys once per window.
func (rl *RateLimiter) sweep() {
	every := rl.window
	if every < time.Minute {
		every = time.Minute
	}
	for range time.Tick(every) {
		rl.mu.Lock()
		cutoff := rl.now().Add(-rl.window)
		for key, hits := range rl.hits {
			if hits = inWindow(hits, cutoff); len(hits) == 0 {
				delete(rl.hits, key)
			} else {
				rl.hits[key] = hits
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit keys by the authenticated user when AuthRequired ran first, else by client IP.
// Rejected requests get 429 with Retry-After in whole seconds.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := GetUserID(c); id != 0 {
			key = "user:" + strconv.FormatUint(uint64(id), 10)
		}
		ok, wait := rl.Take(key)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"status": "error", "message": "rate limit exceeded", "reason": "rate_limited"})
			return
		}
		c.Next()
	}
}

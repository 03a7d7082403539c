package middleware

import (
	"sync"
	"time"

	"flipmail/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client keeps its bucket
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client IP
type visitors struct {
	mu      sync.Mutex
	byIP    map[string]*visitor
	every   rate.Limit
	burst   int
	swept   time.Time
	nowFunc func() time.Time
}

func newVisitors(requests int, window time.Duration) *visitors {
	return &visitors{
		byIP:    make(map[string]*visitor),
		every:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
		nowFunc: time.Now,
	}
}

// allow takes a token from ip's bucket. Idle buckets are swept inline at
// most once per visitorTTL instead of from a background goroutine.
func (v *visitors) allow(ip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.nowFunc()
	if now.Sub(v.swept) > visitorTTL {
		for key, vis := range v.byIP {
			if now.Sub(vis.lastSeen) > visitorTTL {
				delete(v.byIP, key)
			}
		}
		v.swept = now
	}

	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.every, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now
	return vis.limiter.AllowN(now, 1)
}

// RateLimiter allows a burst of requests per window for each client IP,
// refilling evenly across the window
func RateLimiter(requests int, window time.Duration) fiber.Handler {
	clients := newVisitors(requests, window)

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if clients.allow(ip) {
			return c.Next()
		}

		utils.RateLimited.Inc()
		RequestLogger(c).WithField("ip", ip).Warn("Rate limit exceeded on %s", c.Path())
		return utils.NewAppError(fiber.StatusTooManyRequests, "error_rate_limited", nil).
			WithContext("ip", ip)
	}
}

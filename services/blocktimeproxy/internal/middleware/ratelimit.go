package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/greymass/workutils/libraries/server"
	"github.com/greymass/workutils/services/blocktimeproxy/internal/metrics"
	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows each client limit requests per window, refilled
// continuously, and reports the budget in X-RateLimit-* headers.
type RateLimiter struct {
	limit  int
	window time.Duration
	every  time.Duration

	mu      sync.Mutex
	clients map[string]*client
	stop    chan struct{}
	once    sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		every:   window / time.Duration(limit),
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
	}
	go rl.janitor(10 * time.Minute)
	return rl
}

func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) janitor(idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now, idle)
		}
	}
}

// sweep forgets clients not seen for idle; they come back with a full budget.
func (rl *RateLimiter) sweep(now time.Time, idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > idle {
			delete(rl.clients, ip)
		}
	}
	metrics.RateLimitClients.Set(float64(len(rl.clients)))
}

// allow spends one request for ip and returns the remaining budget and the
// time until the budget is full again.
func (rl *RateLimiter) allow(ip string, now time.Time) (bool, int, time.Duration) {
	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Every(rl.every), rl.limit)}
		rl.clients[ip] = c
		metrics.RateLimitClients.Set(float64(len(rl.clients)))
	}
	c.lastSeen = now
	rl.mu.Unlock()

	allowed := c.limiter.AllowN(now, 1)
	tokens := c.limiter.TokensAt(now)
	remaining := int(math.Max(0, math.Floor(tokens)))
	reset := time.Duration((float64(rl.limit) - tokens) * float64(rl.every))
	return allowed, remaining, reset
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, reset := rl.allow(GetRealIP(r), time.Now())

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(reset.Seconds()))))

		if !allowed {
			metrics.RateLimitExceeded.Inc()
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.every.Seconds()))))
			server.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

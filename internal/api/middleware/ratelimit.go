package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterMaxIdle       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters tracks one token bucket per client IP. Entries idle longer than
// limiterMaxIdle are swept on access so the map stays bounded by the set of
// recently active clients.
type ipLimiters struct {
	mu        sync.Mutex
	perSecond float64
	burst     int
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func newIPLimiters(perSecond float64, burst int) *ipLimiters {
	return &ipLimiters{
		perSecond: perSecond,
		burst:     burst,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		l.sweepLocked(now)
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

// sweepLocked drops entries that have been idle past limiterMaxIdle. Callers
// hold l.mu.
func (l *ipLimiters) sweepLocked(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterMaxIdle {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

// RateLimit throttles requests per client IP. Used on the auth endpoints to
// slow down code-guessing and signup spam.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	limiters := newIPLimiters(perSecond, burst)

	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP(), time.Now()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

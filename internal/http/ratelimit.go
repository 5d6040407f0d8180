package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter throttles login attempts per client IP. Entries idle for an
// hour are dropped on the next sweep.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipClient
	limit   rate.Limit
	burst   int
	lastGC  time.Time
}

type ipClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute, burst int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &ipLimiter{
		clients: make(map[string]*ipClient),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		lastGC:  time.Now(),
	}
}

func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > time.Hour {
		for key, client := range l.clients {
			if now.Sub(client.lastSeen) > time.Hour {
				delete(l.clients, key)
			}
		}
		l.lastGC = now
	}

	client, ok := l.clients[ip]
	if !ok {
		client = &ipClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.Allow()
}

package p2p

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/time/rate"
)

// peerRateLimiter keeps one token bucket per peer.
type peerRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[peer.ID]*rate.Limiter
}

func newPeerRateLimiter(limit rate.Limit, burst int) *peerRateLimiter {
	return &peerRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[peer.ID]*rate.Limiter),
	}
}

// Allow takes a token from the bucket of id, creating the bucket on first use.
func (l *peerRateLimiter) Allow(id peer.ID) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[id]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[id] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Remove forgets the bucket of a disconnected peer.
func (l *peerRateLimiter) Remove(id peer.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, id)
}

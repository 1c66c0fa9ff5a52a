// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package chat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sendLimiter is a token bucket per sending member.
type sendLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newSendLimiter(perSec float64, burst int) *sendLimiter {
	if burst < 1 {
		burst = 1
	}
	r := rate.Limit(perSec)
	if perSec <= 0 {
		r = rate.Inf
	}
	return &sendLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    burst,
		idle:     time.Hour,
	}
}

func (l *sendLimiter) allow(memberID string, now time.Time) bool {
	l.mu.Lock()
	entry, ok := l.limiters[memberID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[memberID] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// prune drops limiters idle for longer than l.idle.
func (l *sendLimiter) prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := now.Add(-l.idle)
	removed := 0
	for id, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, id)
			removed++
		}
	}
	return removed
}

// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package authz

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// maxCachedDecisions bounds the decision cache. Each (member or role,
// object, action) triple costs one.
const maxCachedDecisions = 50_000

// decisionCache memoizes Casbin decisions in a ristretto cache with a TTL.
//
// Role changes for a member bump that member's generation, which is part of
// every key, so stale decisions stop matching at once and are evicted by
// ristretto in their own time.
type decisionCache struct {
	ttl       time.Duration
	decisions *ristretto.Cache[string, bool]

	mu          sync.RWMutex
	generations map[string]uint64
}

func newDecisionCache(ttl time.Duration) (*decisionCache, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	decisions, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: 10 * maxCachedDecisions,
		MaxCost:     maxCachedDecisions,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create decision cache: %w", err)
	}
	return &decisionCache{ttl: ttl, decisions: decisions, generations: make(map[string]uint64)}, nil
}

func (c *decisionCache) key(subject, object, action string) string {
	c.mu.RLock()
	gen := c.generations[subject]
	c.mu.RUnlock()

	var b strings.Builder
	b.Grow(len(subject) + len(object) + len(action) + 8)
	b.WriteString(subject)
	b.WriteByte(0)
	b.WriteString(strconv.FormatUint(gen, 36))
	b.WriteByte(0)
	b.WriteString(object)
	b.WriteByte(0)
	b.WriteString(action)
	return b.String()
}

func (c *decisionCache) get(subject, object, action string) (allowed, ok bool) {
	return c.decisions.Get(c.key(subject, object, action))
}

// set stores a decision and waits for ristretto's write buffer so the next
// request for the same triple is a hit.
func (c *decisionCache) set(subject, object, action string, allowed bool) {
	if c.decisions.SetWithTTL(c.key(subject, object, action), allowed, 1, c.ttl) {
		c.decisions.Wait()
	}
}

// forgetMember makes every decision cached for member unreachable.
func (c *decisionCache) forgetMember(member string) {
	c.mu.Lock()
	c.generations[member]++
	c.mu.Unlock()
}

// reset drops every decision after a policy reload.
func (c *decisionCache) reset() {
	c.decisions.Clear()
	c.mu.Lock()
	c.generations = make(map[string]uint64)
	c.mu.Unlock()
}

func (c *decisionCache) close() {
	c.decisions.Close()
}

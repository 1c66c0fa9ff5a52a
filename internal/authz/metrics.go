// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthzDecisionsTotal counts authorization decisions by object, action and outcome.
	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberhub_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"object", "action", "decision"},
	)

	// AuthzDecisionDuration tracks enforcement latency.
	AuthzDecisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "memberhub_authz_decision_duration_seconds",
			Help:    "Duration of authorization decisions in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	authzCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memberhub_authz_cache_hits_total",
		Help: "Authorization decisions served from cache",
	})

	authzCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memberhub_authz_cache_misses_total",
		Help: "Authorization decisions evaluated by casbin",
	})
)

func recordDecision(object, action string, allowed bool, d time.Duration) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisionsTotal.WithLabelValues(object, action, decision).Inc()
	AuthzDecisionDuration.Observe(d.Seconds())
}

// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package membership gates features by membership tier.
//
// Each tier unlocks a fixed set of features (config.Membership.Tiers).
// Admins bypass every gate. The provider also answers the frontend's
// feature-flag query for the current caller.
package membership

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
)

// ErrFeatureDisabled is returned when the caller's tier lacks a feature.
var ErrFeatureDisabled = errors.New("feature not included in membership tier")

// TierLookup returns a member's current tier. Tokens carry the tier at login
// time; the lookup lets tier changes apply before the token is renewed.
type TierLookup func(ctx context.Context, memberID string) (string, error)

// Provider maps tiers to features.
type Provider struct {
	defaultTier string
	tiers       map[string]map[string]bool
	known       []string
	lookup      TierLookup
}

// NewProvider builds a provider from configuration.
func NewProvider(cfg config.MembershipConfig) *Provider {
	p := &Provider{
		defaultTier: cfg.DefaultTier,
		tiers:       make(map[string]map[string]bool, len(cfg.Tiers)),
	}

	known := map[string]bool{
		config.FeatureChat:           true,
		config.FeatureEvents:         true,
		config.FeatureDocuments:      true,
		config.FeatureSearch:         true,
		config.FeaturePremiumContent: true,
	}
	for tier, features := range cfg.Tiers {
		set := make(map[string]bool, len(features))
		for _, f := range features {
			set[f] = true
			known[f] = true
		}
		p.tiers[tier] = set
	}
	for f := range known {
		p.known = append(p.known, f)
	}
	sort.Strings(p.known)
	return p
}

// WithTierLookup installs a live tier lookup.
func (p *Provider) WithTierLookup(lookup TierLookup) *Provider {
	p.lookup = lookup
	return p
}

// DefaultTier returns the tier assigned to new members.
func (p *Provider) DefaultTier() string {
	return p.defaultTier
}

// HasTier reports whether tier is configured.
func (p *Provider) HasTier(tier string) bool {
	_, ok := p.tiers[tier]
	return ok
}

// Tiers returns the configured tier names, sorted.
func (p *Provider) Tiers() []string {
	out := make([]string, 0, len(p.tiers))
	for t := range p.tiers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Enabled reports whether tier includes feature. Unknown tiers include nothing.
func (p *Provider) Enabled(tier, feature string) bool {
	return p.tiers[tier][feature]
}

// Features returns the features of tier, sorted.
func (p *Provider) Features(tier string) []string {
	out := make([]string, 0, len(p.tiers[tier]))
	for f := range p.tiers[tier] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Flags is the feature-flag view returned to the frontend.
type Flags struct {
	Tier     string          `json:"tier"`
	Features map[string]bool `json:"features"`
}

// FlagsFor returns every known feature flag for subject. Anonymous callers
// get all flags off; admins get all flags on.
func (p *Provider) FlagsFor(ctx context.Context, subject *auth.Subject) Flags {
	flags := Flags{Features: make(map[string]bool, len(p.known))}
	if subject == nil {
		for _, f := range p.known {
			flags.Features[f] = false
		}
		return flags
	}

	flags.Tier = p.tierOf(ctx, subject)
	admin := subject.IsAdmin()
	for _, f := range p.known {
		flags.Features[f] = admin || p.Enabled(flags.Tier, f)
	}
	return flags
}

// Allowed reports whether subject may use feature.
func (p *Provider) Allowed(ctx context.Context, subject *auth.Subject, feature string) bool {
	if subject == nil {
		return false
	}
	if subject.IsAdmin() {
		return true
	}
	return p.Enabled(p.tierOf(ctx, subject), feature)
}

// Check returns ErrFeatureDisabled when subject may not use feature.
func (p *Provider) Check(ctx context.Context, subject *auth.Subject, feature string) error {
	if !p.Allowed(ctx, subject, feature) {
		return ErrFeatureDisabled
	}
	return nil
}

func (p *Provider) tierOf(ctx context.Context, subject *auth.Subject) string {
	tier := subject.Tier
	if p.lookup != nil {
		current, err := p.lookup(ctx, subject.ID)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Tier lookup failed, using token tier")
		} else {
			tier = current
		}
	}
	if tier == "" {
		tier = p.defaultTier
	}
	return tier
}

// RequireFeature rejects callers whose tier lacks feature with 403
// FEATURE_DISABLED. Must run after auth.Middleware.Authenticate.
func (p *Provider) RequireFeature(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				auth.WriteError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required")
				return
			}
			if !p.Allowed(r.Context(), subject, feature) {
				auth.WriteError(w, http.StatusForbidden, "FEATURE_DISABLED",
					"Your membership tier does not include "+feature)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

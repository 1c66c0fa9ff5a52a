// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/tomtom215/memberhub/internal/logging"
)

// MinJWTSecretLength is the minimum accepted JWT_SECRET length.
const MinJWTSecretLength = 32

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateMembership(); err != nil {
		return err
	}
	if err := c.validateUploads(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	switch c.Server.Role {
	case RoleAPI, RoleFrontend, RoleAdmin, RoleAll:
	default:
		return fmt.Errorf("SERVER_ROLE must be one of api, frontend, admin, all (got %q)", c.Server.Role)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !c.ServesAPI() {
		return nil
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required unless DATABASE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.Security.RateLimitReqs < 1 && !c.Security.RateLimitDisabled {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if (c.Security.AdminEmail == "") != (c.Security.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.Security.AdminPassword != "" && len(c.Security.AdminPassword) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}
	for _, key := range c.Security.APIKeys {
		if len(key) < 16 {
			return fmt.Errorf("API_KEYS entries must be at least 16 characters")
		}
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if !c.ServesFrontend() && !c.ServesAdmin() {
		return nil
	}
	if err := validateHTTPURL(c.Upstream.BaseURL); err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL is invalid: %w", err)
	}
	if c.Upstream.BreakerFailureRatio <= 0 || c.Upstream.BreakerFailureRatio > 1 {
		return fmt.Errorf("upstream.breaker_failure_ratio must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateMembership() error {
	if len(c.Membership.Tiers) == 0 {
		return fmt.Errorf("membership.tiers must define at least one tier")
	}
	if _, ok := c.Membership.Tiers[c.Membership.DefaultTier]; !ok {
		return fmt.Errorf("MEMBERSHIP_DEFAULT_TIER %q is not a configured tier", c.Membership.DefaultTier)
	}
	return nil
}

func (c *Config) validateUploads() error {
	if c.Uploads.MaxSizeBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE_BYTES must be positive")
	}
	for _, t := range c.Uploads.AllowedTypes {
		if !strings.Contains(t, "/") {
			return fmt.Errorf("UPLOAD_ALLOWED_TYPES entry %q is not a MIME type", t)
		}
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.PublishSchedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Events.PublishSchedule); err != nil {
		return fmt.Errorf("EVENTS_PUBLISH_SCHEDULE is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package config loads Memberhub configuration with Koanf v2.
//
// Configuration Loading Order (highest priority wins):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: config.yaml (or CONFIG_PATH)
//  3. Environment Variables: see envMappings in koanf.go
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"time"
)

// Server roles select which surfaces a process serves.
const (
	RoleAPI      = "api"
	RoleFrontend = "frontend"
	RoleAdmin    = "admin"
	RoleAll      = "all"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Security   SecurityConfig   `koanf:"security"`
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Membership MembershipConfig `koanf:"membership"`
	Uploads    UploadsConfig    `koanf:"uploads"`
	Events     EventsConfig     `koanf:"events"`
	Chat       ChatConfig       `koanf:"chat"`
	Search     SearchConfig     `koanf:"search"`
	Analytics  AnalyticsConfig  `koanf:"analytics"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - SERVER_ROLE: api, frontend, admin, all (default: all)
//   - HTTP_HOST / HTTP_PORT / HTTP_TIMEOUT
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Role            string        `koanf:"role"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
	// PublicURL is used for absolute links in rendered pages.
	PublicURL string `koanf:"public_url"`
}

// DatabaseConfig configures the Badger document store.
type DatabaseConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// SecurityConfig holds authentication, authorization and abuse limits.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	// APIKeys are accepted in X-API-Key for server-to-server calls from the frontend proxy.
	APIKeys       []string `koanf:"api_keys"`
	AdminEmail    string   `koanf:"admin_email"`
	AdminPassword string   `koanf:"admin_password"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CookieSecure      bool          `koanf:"cookie_secure"`
	BcryptCost        int           `koanf:"bcrypt_cost"`

	Casbin CasbinConfig `koanf:"casbin"`
}

// CasbinConfig configures the RBAC enforcer.
type CasbinConfig struct {
	ModelPath      string        `koanf:"model_path"`
	PolicyPath     string        `koanf:"policy_path"`
	DefaultRole    string        `koanf:"default_role"`
	AutoReload     bool          `koanf:"auto_reload"`
	ReloadInterval time.Duration `koanf:"reload_interval"`
	CacheEnabled   bool          `koanf:"cache_enabled"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

// UpstreamConfig is the backend API the frontend and admin proxy routes forward to.
type UpstreamConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
}

// MembershipConfig maps tiers to the features they unlock.
type MembershipConfig struct {
	DefaultTier string              `koanf:"default_tier"`
	Tiers       map[string][]string `koanf:"tiers"`
}

// UploadsConfig configures document storage.
type UploadsConfig struct {
	Dir          string   `koanf:"dir"`
	MaxSizeBytes int64    `koanf:"max_size_bytes"`
	AllowedTypes []string `koanf:"allowed_types"`
}

// EventsConfig configures the scheduled publishing sweep.
type EventsConfig struct {
	// PublishSchedule is a cron spec (robfig/cron syntax, e.g. "@every 1m").
	PublishSchedule string `koanf:"publish_schedule"`
}

// ChatConfig limits chat traffic.
type ChatConfig struct {
	MaxMessageLength int     `koanf:"max_message_length"`
	SendRatePerSec   float64 `koanf:"send_rate_per_sec"`
	SendBurst        int     `koanf:"send_burst"`
	HistoryLimit     int     `koanf:"history_limit"`
}

// SearchConfig configures search result caching.
type SearchConfig struct {
	CacheTTL   time.Duration `koanf:"cache_ttl"`
	MaxResults int           `koanf:"max_results"`
}

// AnalyticsConfig configures the tracker event bus.
type AnalyticsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Topic      string `koanf:"topic"`
	BufferSize int64  `koanf:"buffer_size"`
}

// APIConfig holds pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ServesAPI reports whether this process serves the backend API.
func (c *Config) ServesAPI() bool {
	return c.Server.Role == RoleAPI || c.Server.Role == RoleAll
}

// ServesFrontend reports whether this process serves the public frontend.
func (c *Config) ServesFrontend() bool {
	return c.Server.Role == RoleFrontend || c.Server.Role == RoleAll
}

// ServesAdmin reports whether this process serves the admin portal.
func (c *Config) ServesAdmin() bool {
	return c.Server.Role == RoleAdmin || c.Server.Role == RoleAll
}

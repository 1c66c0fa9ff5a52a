// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/memberhub/config.yaml",
	"/etc/memberhub/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Membership features. Tier definitions refer to these names.
const (
	FeatureChat           = "chat"
	FeatureEvents         = "events"
	FeatureDocuments      = "documents"
	FeatureSearch         = "search"
	FeaturePremiumContent = "premium_content"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Role:            RoleAll,
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
			PublicURL:       "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path:     "/data/memberhub",
			InMemory: false,
		},
		Security: SecurityConfig{
			SessionTimeout:  24 * time.Hour,
			CORSOrigins:     []string{},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CookieSecure:    true,
			BcryptCost:      12,
			Casbin: CasbinConfig{
				DefaultRole:    "member",
				AutoReload:     false,
				ReloadInterval: 30 * time.Second,
				CacheEnabled:   true,
				CacheTTL:       5 * time.Minute,
			},
		},
		Upstream: UpstreamConfig{
			BaseURL:             "http://127.0.0.1:8080",
			Timeout:             15 * time.Second,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      30 * time.Second,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
		},
		Membership: MembershipConfig{
			DefaultTier: "free",
			Tiers: map[string][]string{
				"free":    {FeatureEvents, FeatureSearch},
				"basic":   {FeatureEvents, FeatureSearch, FeatureChat, FeatureDocuments},
				"premium": {FeatureEvents, FeatureSearch, FeatureChat, FeatureDocuments, FeaturePremiumContent},
			},
		},
		Uploads: UploadsConfig{
			Dir:          "/data/uploads",
			MaxSizeBytes: 10 << 20, // 10MB
			AllowedTypes: []string{
				"application/pdf",
				"image/png",
				"image/jpeg",
				"image/gif",
				"text/plain",
				"text/csv",
				"application/zip",
			},
		},
		Events: EventsConfig{
			PublishSchedule: "@every 1m",
		},
		Chat: ChatConfig{
			MaxMessageLength: 4000,
			SendRatePerSec:   2,
			SendBurst:        10,
			HistoryLimit:     50,
		},
		Search: SearchConfig{
			CacheTTL:   30 * time.Second,
			MaxResults: 50,
		},
		Analytics: AnalyticsConfig{
			Enabled:    true,
			Topic:      "analytics.events",
			BufferSize: 1024,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File (optional)
//  3. Environment Variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"security.api_keys",
	"security.cors_origins",
	"uploads.allowed_types",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so the host environment cannot pollute config.
var envMappings = map[string]string{
	"server_role":             "server.role",
	"http_host":               "server.host",
	"http_port":               "server.port",
	"http_timeout":            "server.timeout",
	"shutdown_timeout":        "server.shutdown_timeout",
	"environment":             "server.environment",
	"public_url":              "server.public_url",
	"database_path":           "database.path",
	"database_in_memory":      "database.in_memory",
	"jwt_secret":              "security.jwt_secret",
	"session_timeout":         "security.session_timeout",
	"api_keys":                "security.api_keys",
	"admin_email":             "security.admin_email",
	"admin_password":          "security.admin_password",
	"cors_origins":            "security.cors_origins",
	"rate_limit_requests":     "security.rate_limit_reqs",
	"rate_limit_window":       "security.rate_limit_window",
	"disable_rate_limit":      "security.rate_limit_disabled",
	"cookie_secure":           "security.cookie_secure",
	"bcrypt_cost":             "security.bcrypt_cost",
	"casbin_model_path":       "security.casbin.model_path",
	"casbin_policy_path":      "security.casbin.policy_path",
	"casbin_default_role":     "security.casbin.default_role",
	"casbin_auto_reload":      "security.casbin.auto_reload",
	"casbin_reload_interval":  "security.casbin.reload_interval",
	"casbin_cache_enabled":    "security.casbin.cache_enabled",
	"casbin_cache_ttl":        "security.casbin.cache_ttl",
	"upstream_base_url":       "upstream.base_url",
	"upstream_api_key":        "upstream.api_key",
	"upstream_timeout":        "upstream.timeout",
	"membership_default_tier": "membership.default_tier",
	"upload_dir":              "uploads.dir",
	"upload_max_size_bytes":   "uploads.max_size_bytes",
	"upload_allowed_types":    "uploads.allowed_types",
	"events_publish_schedule": "events.publish_schedule",
	"chat_max_message_length": "chat.max_message_length",
	"chat_send_rate":          "chat.send_rate_per_sec",
	"chat_send_burst":         "chat.send_burst",
	"search_cache_ttl":        "search.cache_ttl",
	"search_max_results":      "search.max_results",
	"analytics_enabled":       "analytics.enabled",
	"analytics_topic":         "analytics.topic",
	"api_default_page_size":   "api.default_page_size",
	"api_max_page_size":       "api.max_page_size",
	"log_level":               "logging.level",
	"log_format":              "logging.format",
	"log_caller":              "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

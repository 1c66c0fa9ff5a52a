// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/memberhub/internal/config"
)

func portalConfig(role string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Role: role},
		Upstream: config.UpstreamConfig{BaseURL: "http://127.0.0.1:1", APIKey: "upstream-key"},
		Chat:     config.ChatConfig{MaxMessageLength: 500},
	}
}

func TestMountPortals_Roles(t *testing.T) {
	tests := []struct {
		role   string
		path   string
		status int
	}{
		{config.RoleFrontend, "/static/site.css", http.StatusOK},
		{config.RoleFrontend, "/admin/login", http.StatusNotFound},
		{config.RoleAdmin, "/admin/login", http.StatusOK},
		{config.RoleAdmin, "/admin/", http.StatusSeeOther},
		{config.RoleAdmin, "/static/site.css", http.StatusOK},
		{config.RoleAdmin, "/events", http.StatusNotFound},
		{config.RoleAll, "/admin/login", http.StatusOK},
		{config.RoleAll, "/static/site.css", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.role+tt.path, func(t *testing.T) {
			r := chi.NewRouter()
			if err := mountPortals(r, portalConfig(tt.role)); err != nil {
				t.Fatalf("mountPortals() error = %v", err)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.status)
			}
		})
	}
}

func TestMountPortals_InvalidUpstream(t *testing.T) {
	cfg := portalConfig(config.RoleFrontend)
	cfg.Upstream.BaseURL = "not a url"
	if err := mountPortals(chi.NewRouter(), cfg); err == nil {
		t.Error("mountPortals() accepted an invalid upstream URL")
	}
}

// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/models"
)

// HealthLive reports that the process is serving requests. It does not
// touch the store.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondData(w, http.StatusOK, h.healthStatus("ok"), start)
}

// HealthReady reports whether the store is usable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.healthStatus("ok")
	status.Checks = map[string]string{"store": "ok"}
	status.Database = true

	code := http.StatusOK
	if err := h.store.Ping(); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		status.Status = "degraded"
		status.Checks["store"] = "unavailable"
		status.Database = false
		code = http.StatusServiceUnavailable
	}
	if h.hub != nil {
		status.Checks["websocket_clients"] = strconv.Itoa(h.hub.GetClientCount())
	}
	respondData(w, code, status, start)
}

func (h *Handler) healthStatus(status string) models.HealthStatus {
	return models.HealthStatus{
		Status:  status,
		Role:    h.cfg.Server.Role,
		Version: Version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}
}

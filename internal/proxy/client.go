// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/models"
)

const maxClientBody = 4 << 20

// ErrUnavailable is returned by GetJSON while the circuit is open.
var ErrUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// GetJSON calls GET path on the backend and decodes the envelope's data
// into out. token, when set, is sent as a bearer token. Server-rendered
// pages use it so they read through the same API as the browser.
func (p *Proxy) GetJSON(ctx context.Context, path string, query url.Values, token string, out interface{}) error {
	start := time.Now()
	target := *p.base
	target.Path = p.base.Path + path
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set(auth.APIKeyHeader, p.apiKey)
	}
	if token != "" {
		req.Header.Set(authorization, "Bearer "+token)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := p.breaker.Execute(func() (*http.Response, error) {
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &upstreamStatusError{code: resp.StatusCode}
		}
		return resp, nil
	})
	var statusErr *upstreamStatusError
	if err != nil && !errors.As(err, &statusErr) {
		metrics.RecordProxyRequest("render", "error", time.Since(start))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return fmt.Errorf("backend GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.RecordProxyRequest("render", strconv.Itoa(resp.StatusCode), time.Since(start))

	var envelope struct {
		Status string           `json:"status"`
		Data   json.RawMessage  `json:"data"`
		Error  *models.APIError `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxClientBody)).Decode(&envelope); err != nil {
		return fmt.Errorf("decode backend response for %s: %w", path, err)
	}
	if resp.StatusCode >= 300 || envelope.Status == "error" {
		apiErr := &APIError{Status: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode backend data for %s: %w", path, err)
	}
	return nil
}

// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStoreOperation(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("insert", "members"))

	RecordStoreOperation("insert", "members", 2*time.Millisecond, nil)
	RecordStoreOperation("insert", "members", 3*time.Millisecond, errors.New("conflict"))

	if got := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("insert", "members")); got != before+1 {
		t.Errorf("errors = %v, want %v", got, before+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		method, endpoint, status string
	}{
		{"GET", "/api/v1/content/pages/{slug}", "200"},
		{"POST", "/api/v1/auth/login", "401"},
		{"DELETE", "/api/v1/documents/{id}", "404"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.endpoint, func(t *testing.T) {
			c := APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.status)
			before := testutil.ToFloat64(c)
			RecordAPIRequest(tt.method, tt.endpoint, tt.status, 10*time.Millisecond)
			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("counter = %v, want %v", got, before+1)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("upstream", "closed", "open", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("upstream")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("upstream", "closed", "open")); got < 1 {
		t.Errorf("transitions = %v", got)
	}
}

func TestRecordUpload(t *testing.T) {
	bytesBefore := testutil.ToFloat64(UploadBytes)
	RecordUpload("accepted", 1024)
	RecordUpload("too_large", 1<<30)
	if got := testutil.ToFloat64(UploadBytes); got != bytesBefore+1024 {
		t.Errorf("bytes = %v, want %v", got, bytesBefore+1024)
	}
}

func TestRecordProxyRequest(t *testing.T) {
	c := ProxyRequestsTotal.WithLabelValues("content.page", "502")
	before := testutil.ToFloat64(c)
	RecordProxyRequest("content.page", "502", time.Second)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}

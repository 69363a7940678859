// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package txlink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AleutianAI/txlink/services/txlink/candidate"
	"github.com/AleutianAI/txlink/services/txlink/telemetry"
)

type candidatesBody struct {
	RequestID         string     `json:"request_id"`
	Candidates        [][]uint32 `json:"candidates"`
	Count             int        `json:"count"`
	PartitionsVisited uint64     `json:"partitions_visited"`
	Strategy          string     `json:"strategy"`
	Boundary          string     `json:"boundary"`
	Cached            bool       `json:"cached"`
}

func setupRouter(t *testing.T, mutate func(*ServiceConfig)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t, mutate, true)
	return NewRouter(NewHandlers(svc, nil), nil, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// TestHandleCandidates_OK verifies a successful computation and the cache flag.
func TestHandleCandidates_OK(t *testing.T) {
	router := setupRouter(t, nil)
	body := map[string]any{"values": []uint64{300, 200, 200, 300}, "input_len": 1}

	rec := doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp candidatesBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, [][]uint32{{0, 3}}, resp.Candidates)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, uint64(15), resp.PartitionsVisited)
	assert.Equal(t, "partitions", resp.Strategy)
	assert.Equal(t, "exclusive", resp.Boundary)
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, rec.Header().Get("X-Request-ID"))

	rec = doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, [][]uint32{{0, 3}}, resp.Candidates)
}

// TestHandleCandidates_Options verifies strategy and boundary overrides.
func TestHandleCandidates_Options(t *testing.T) {
	router := setupRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", map[string]any{
		"values":             []uint64{100, 200, 300},
		"input_len":          1,
		"strategy":           "subsets",
		"inclusive_boundary": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp candidatesBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, [][]uint32{{0, 1, 2}}, resp.Candidates)
	assert.Equal(t, "subsets", resp.Strategy)
	assert.Equal(t, "inclusive", resp.Boundary)
}

// TestHandleCandidates_EmptyResult verifies an empty set encodes as [].
func TestHandleCandidates_EmptyResult(t *testing.T) {
	router := setupRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", map[string]any{
		"values": []uint64{1, 2, 3}, "input_len": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"candidates":[]`)
}

// TestHandleCandidates_Errors verifies error mapping to status and code.
func TestHandleCandidates_Errors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*ServiceConfig)
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "boundary past end",
			body:       map[string]any{"values": []uint64{1, 2}, "input_len": 3},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidBoundary,
		},
		{
			name:       "negative boundary",
			body:       map[string]any{"values": []uint64{1, 2}, "input_len": -1},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidBoundary,
		},
		{
			name:       "missing input_len",
			body:       map[string]any{"values": []uint64{1, 2}},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidRequest,
		},
		{
			name:       "unknown strategy",
			body:       map[string]any{"values": []uint64{1, 2}, "input_len": 1, "strategy": "greedy"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidRequest,
		},
		{
			name:       "negative value",
			body:       map[string]any{"values": []int{-1, 2}, "input_len": 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidRequest,
		},
		{
			name:       "too many values",
			mutate:     func(c *ServiceConfig) { c.MaxValues = 2 },
			body:       map[string]any{"values": []uint64{1, 2, 3}, "input_len": 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeTooManyValues,
		},
		{
			name: "timeout",
			mutate: func(c *ServiceConfig) {
				c.RequestTimeout = time.Nanosecond
				c.Computer = &candidate.ComputerConfig{Workers: 1, CheckInterval: 1}
			},
			body:       map[string]any{"values": []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, "input_len": 6},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   CodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(t, tt.mutate)
			rec := doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

// TestHandleCandidates_RateLimited verifies 429 once the bucket is empty.
func TestHandleCandidates_RateLimited(t *testing.T) {
	router := setupRouter(t, func(c *ServiceConfig) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})
	body := map[string]any{"values": []uint64{1, 1}, "input_len": 1}

	rec := doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeRateLimited, decodeError(t, rec).Code)
}

// TestHandleCandidates_RequestIDEcho verifies a caller-supplied request id is kept.
func TestHandleCandidates_RequestIDEcho(t *testing.T) {
	router := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/txlink/candidates",
		bytes.NewBufferString(`{"values":[1,1],"input_len":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-42"`)
}

// TestHandlePartitionCount verifies Bell numbers over HTTP.
func TestHandlePartitionCount(t *testing.T) {
	router := setupRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/v1/txlink/partitions/count?n=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PartitionCountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, PartitionCountResponse{N: 5, Count: "52"}, resp)

	rec = doJSON(t, router, http.MethodGet, "/v1/txlink/partitions/count?n=26", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "49631246523618756274", resp.Count)

	for _, q := range []string{"", "?n=abc", "?n=-1", "?n=100000"} {
		rec = doJSON(t, router, http.MethodGet, "/v1/txlink/partitions/count"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, CodeInvalidRequest, decodeError(t, rec).Code)
	}
}

// TestHandleHealth verifies the health payload.
func TestHandleHealth(t *testing.T) {
	router := setupRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/v1/txlink/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.True(t, resp.Cache)
	assert.Equal(t, 16, resp.MaxValues)
}

// TestNewRouter_Metrics verifies /metrics is mounted only with a handler and
// that request metrics flow through the middleware.
func TestNewRouter_Metrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(t, nil, false)

	router := NewRouter(NewHandlers(svc, nil), nil, nil)
	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := telemetry.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	scrape := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	router = NewRouter(NewHandlers(svc, metrics), metrics, scrape)

	rec = doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/v1/txlink/candidates", map[string]any{"values": []uint64{1, 1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	assert.Contains(t, names, "txlink_http_requests_total")
	assert.Contains(t, names, "txlink_errors_total")
}

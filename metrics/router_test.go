package metrics_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-portal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Healthz(t *testing.T) {
	tests := []struct {
		name   string
		checks []metrics.HealthCheck
		code   int
		status string
	}{
		{name: "no checks", code: http.StatusOK, status: "ok"},
		{
			name: "healthy",
			checks: []metrics.HealthCheck{
				{Name: "redis", Check: func(context.Context) error { return nil }},
			},
			code:   http.StatusOK,
			status: "ok",
		},
		{
			name: "failing",
			checks: []metrics.HealthCheck{
				{Name: "redis", Check: func(context.Context) error { return nil }},
				{Name: "sqlite", Check: func(context.Context) error { return errors.New("database is locked") }},
			},
			code:   http.StatusServiceUnavailable,
			status: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := metrics.Router(metrics.New(), tt.checks...)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, tt.code, rec.Code)

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
			for _, hc := range tt.checks {
				assert.Contains(t, body.Checks, hc.Name)
			}
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	m := metrics.New()
	m.SessionCleared("guard")

	rec := httptest.NewRecorder()
	metrics.Router(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portal_sessions_cleared_total{source="guard"} 1`)
}

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_CountsGuardDecisions(t *testing.T) {
	m := metrics.New()

	m.GuardDecision(portal.GuardRuleAllow)
	m.GuardDecision(portal.GuardRuleAllow)
	m.GuardDecision(portal.GuardRuleAuthRequired)
	m.SessionCleared("guard")

	expected := `
# HELP portal_guard_decisions_total Navigation guard decisions by rule
# TYPE portal_guard_decisions_total counter
portal_guard_decisions_total{decision="allow"} 2
portal_guard_decisions_total{decision="auth_required"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "portal_guard_decisions_total"))

	count, err := testutil.GatherAndCount(m.Registry(), "portal_sessions_cleared_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheus_UpstreamResponses(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("acme"))

	m.UpstreamResponse("GET", 200, 20*time.Millisecond)
	m.UpstreamResponse("GET", 401, 5*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "acme_upstream_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "acme_upstream_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheus_Handler(t *testing.T) {
	m := metrics.New()
	m.SessionCleared("apiclient")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `portal_sessions_cleared_total{source="apiclient"} 1`)
}

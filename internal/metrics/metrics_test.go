package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordAuthOutcome(metrics.OutcomeRenewed)
	c.RecordAuthOutcome(metrics.OutcomeRenewed)
	c.RecordAuthOutcome(metrics.OutcomeEmpty)
	c.RecordLogin("ok")
	c.RecordStoreOp("get", "not_found", 3*time.Millisecond)
	c.RecordRateLimited()

	expected := `
# HELP session_auth_requests_total Requests seen by the authentication middleware, by outcome
# TYPE session_auth_requests_total counter
session_auth_requests_total{outcome="empty"} 1
session_auth_requests_total{outcome="renewed"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "session_auth_requests_total"))

	count, err := testutil.GatherAndCount(reg, "session_store_operations_total", "session_store_latency_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.RecordLogin("invalid_credentials")

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `session_auth_logins_total{result="invalid_credentials"} 1`)
}

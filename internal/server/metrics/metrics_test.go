package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveCheckout("created")
	c.ObserveCheckout("created")
	c.ObserveCheckout("gateway_error")
	c.ObserveWebhook("confirmed", "recorded")
	c.ObserveTokenRefresh("rejected")
	c.SetPendingSessions(3)

	assert.InDelta(t, 2, testutil.ToFloat64(c.checkoutSessions.WithLabelValues("created")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.checkoutSessions.WithLabelValues("gateway_error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.webhookEvents.WithLabelValues("confirmed", "recorded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.tokenRefresh.WithLabelValues("rejected")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.pendingSessions), 0)

	c.SetPendingSessions(0)
	assert.InDelta(t, 0, testutil.ToFloat64(c.pendingSessions), 0)
}

func TestCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	assert.Panics(t, func() {
		_ = NewCollector(reg)
	})
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTPRequest(http.MethodGet, http.StatusOK, 15*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `themeshop_http_requests_total{method="GET",status_code="200"} 1`)
	assert.Contains(t, string(body), "themeshop_http_request_duration_seconds")
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/iudanet/themeshop/pkg/api"
)

func newTestLimiter(t *testing.T, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            rate.Every(time.Hour), // пополнение не успевает за тест
		Burst:           burst,
		CleanupInterval: time.Hour,
	}, setupTestLogger())
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// другой клиент не затронут
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := newTestLimiter(t, 2)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:51234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusOK, send().Code)

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, api.CodeRateLimited, resp.Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newTestLimiter(t, 1)
	rl.Allow("10.0.0.1")
	require.Equal(t, 1, rl.Len())

	rl.cleanup(time.Now())
	assert.Equal(t, 1, rl.Len(), "recently used limiter must survive")

	rl.cleanup(time.Now().Add(3 * time.Hour))
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1}, setupTestLogger())
	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		headers    map[string]string
		name       string
		remoteAddr string
		want       string
		trustProxy bool
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{
			name:       "forwarded ignored without trust",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			want:       "192.0.2.1",
		},
		{
			name:       "forwarded for with trust",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"},
			want:       "203.0.113.5",
			trustProxy: true,
		},
		{
			name:       "real ip with trust",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
			trustProxy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trustProxy))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(rate.Limit(5)))
	assert.Equal(t, 2, retryAfterSeconds(rate.Limit(0.5)))
	assert.Equal(t, 1, retryAfterSeconds(rate.Inf))
	assert.Equal(t, 1, retryAfterSeconds(0))
}

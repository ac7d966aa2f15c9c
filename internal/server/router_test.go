package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/iudanet/themeshop/internal/server/handlers"
	"github.com/iudanet/themeshop/internal/server/metrics"
	"github.com/iudanet/themeshop/internal/server/middleware"
	"github.com/iudanet/themeshop/internal/server/payment"
	"github.com/iudanet/themeshop/internal/server/storage/memory"
	"github.com/iudanet/themeshop/internal/server/storage/sqlite"
	"github.com/iudanet/themeshop/internal/server/token"
	"github.com/iudanet/themeshop/pkg/api"
)

// stubGateway принимает события в виде JSON payment.Event без подписи
type stubGateway struct {
	seq atomic.Int64
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, p *payment.CheckoutParams) (*payment.GatewaySession, error) {
	id := fmt.Sprintf("cs_test_%d", g.seq.Add(1))
	return &payment.GatewaySession{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (g *stubGateway) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	if signature != "ok" {
		return nil, payment.ErrSignature
	}
	var ev payment.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrSignature, err)
	}
	return &ev, nil
}

type testServer struct {
	handler http.Handler
	store   *sqlite.Storage
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := token.NewService(token.Config{
		Issuer:          "themeshop",
		Secret:          []byte("router-test-secret"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}, store)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	coordinator := payment.NewCoordinator(payment.Config{}, &stubGateway{}, memory.NewOrderStorage(), logger)
	coordinator.SetRecorder(collector)

	authHandler := handlers.NewAuthHandler(logger, store, tokens)
	authHandler.SetPasswordCost(bcrypt.MinCost)
	authHandler.SetRefreshObserver(collector)

	return &testServer{
		store: store,
		handler: NewRouter(Options{
			Logger:    logger,
			Auth:      authHandler,
			Checkout:  handlers.NewCheckoutHandler(logger, coordinator, store),
			Health:    handlers.NewHealthHandler(logger, store, "test"),
			Verifier:  tokens,
			Observer:  collector,
			Gatherer:  reg,
			AuthLimit: limiter,
		}),
	}
}

func (s *testServer) do(t *testing.T, method, path, accessToken string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:4000"
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email, password string) api.TokenResponse {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", api.RegisterRequest{Email: email, Password: password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	return resp
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Code
}

func TestRouter_CheckoutFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	tokens := srv.login(t, "buyer@example.com", "password123")

	w := srv.do(t, http.MethodPost, "/api/v1/checkout/session", tokens.AccessToken, api.CheckoutRequest{
		LineItems: []api.CheckoutItem{{ProductID: "theme-1", Name: "Aurora", Price: 149, Quantity: 1}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session api.CheckoutResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&session))
	assert.NotEmpty(t, session.SessionReference)
	assert.Equal(t, "cs_test_1", session.SessionID)

	event, err := json.Marshal(payment.Event{
		ID:               "evt_1",
		Type:             "checkout.session.completed",
		Reference:        session.SessionReference,
		GatewaySessionID: session.SessionID,
		Kind:             payment.EventConfirmed,
	})
	require.NoError(t, err)

	// повторная доставка не создает вторую покупку
	for i := 0; i < 2; i++ {
		w = srv.do(t, http.MethodPost, "/api/v1/webhook", "", event, "Stripe-Signature", "ok")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = srv.do(t, http.MethodGet, "/api/v1/orders", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var orders api.OrdersResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
	require.Len(t, orders.Purchases, 1)
	assert.Equal(t, int64(14900), orders.Purchases[0].Total)
	assert.Equal(t, session.SessionReference, orders.Purchases[0].SessionReference)
	assert.Empty(t, orders.Cancellations)

	w = srv.do(t, http.MethodGet, "/api/v1/orders/canceled", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"purchases":[],"cancellations":[]}`, w.Body.String())
}

func TestRouter_WebhookBadSignature(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/api/v1/webhook", "", []byte(`{}`), "Stripe-Signature", "forged")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeSignature, decodeCode(t, w))
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodPost, "/api/v1/checkout/session"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders/purchases"},
		{http.MethodGet, "/api/v1/orders/canceled"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := srv.do(t, rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, api.CodeUnauthenticated, decodeCode(t, w))

			w = srv.do(t, rt.method, rt.path, "not-a-jwt", nil)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, api.CodeForbidden, decodeCode(t, w))
		})
	}
}

func TestRouter_RefreshAndLogout(t *testing.T) {
	srv := newTestServer(t, nil)
	tokens := srv.login(t, "buyer@example.com", "password123")

	w := srv.do(t, http.MethodPost, "/api/v1/auth/refresh", "", api.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rotated api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// старый refresh токен одноразовый
	w = srv.do(t, http.MethodPost, "/api/v1/auth/refresh", "", api.RefreshRequest{RefreshToken: tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeRejected, decodeCode(t, w))

	w = srv.do(t, http.MethodPost, "/api/v1/auth/logout", rotated.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/auth/refresh", "", api.RefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_HealthMetricsNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = srv.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeNotFound, decodeCode(t, w))

	w = srv.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "themeshop_http_requests_total")
}

func TestRouter_AuthRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  rate.Every(time.Hour),
		Burst: 2,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(limiter.Stop)

	srv := newTestServer(t, limiter)
	creds := api.LoginRequest{Email: "nobody@example.com", Password: "password123"}

	for i := 0; i < 2; i++ {
		w := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health не ограничивается
	w = srv.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

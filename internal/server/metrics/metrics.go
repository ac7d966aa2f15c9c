// Package metrics собирает Prometheus метрики сервера и отдает их на /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector - Prometheus метрики платежей, токенов и HTTP запросов.
// Реализует payment.Recorder.
type Collector struct {
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	tokenRefresh     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	pendingSessions  prometheus.Gauge
	httpDuration     *prometheus.HistogramVec
}

// NewCollector создает Collector и регистрирует метрики в reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "themeshop_checkout_sessions_total",
			Help: "Checkout session creation attempts by result",
		}, []string{"result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "themeshop_webhook_events_total",
			Help: "Payment gateway webhook events by kind and outcome",
		}, []string{"kind", "outcome"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "themeshop_token_refresh_total",
			Help: "Refresh token exchanges by result",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "themeshop_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status_code"}),
		pendingSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "themeshop_pending_sessions",
			Help: "Payment sessions awaiting gateway confirmation",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "themeshop_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.checkoutSessions,
		c.webhookEvents,
		c.tokenRefresh,
		c.httpRequests,
		c.pendingSessions,
		c.httpDuration,
	)

	return c
}

// ObserveCheckout учитывает попытку создания checkout-сессии
func (c *Collector) ObserveCheckout(result string) {
	c.checkoutSessions.WithLabelValues(result).Inc()
}

// ObserveWebhook учитывает обработанное событие webhook
func (c *Collector) ObserveWebhook(kind, outcome string) {
	c.webhookEvents.WithLabelValues(kind, outcome).Inc()
}

// SetPendingSessions выставляет текущее число ожидающих сессий
func (c *Collector) SetPendingSessions(n int) {
	c.pendingSessions.Set(float64(n))
}

// ObserveTokenRefresh учитывает обмен refresh токена
func (c *Collector) ObserveTokenRefresh(result string) {
	c.tokenRefresh.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest учитывает завершенный HTTP запрос
func (c *Collector) ObserveHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler возвращает HTTP handler для scrape
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

package monitor

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector collects storefront business and system metrics
type MetricsCollector struct {
	// HTTP metrics
	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Catalog / pricing metrics
	discountApplyTotal  *prometheus.CounterVec
	discountRemoveTotal *prometheus.CounterVec
	bulkUpdateFailures  prometheus.Counter

	// Checkout metrics
	orderCreationTotal *prometheus.CounterVec
	paymentTotal       *prometheus.CounterVec
	refundTotal        *prometheus.CounterVec

	// Chat metrics
	chatMessagesTotal   *prometheus.CounterVec
	aiEscalationTotal   *prometheus.CounterVec
	aiGenerationSeconds prometheus.Histogram
	presenceGauge       *prometheus.GaugeVec
}

// NewMetricsCollector creates and registers the metrics collector
func NewMetricsCollector(namespace string) *MetricsCollector {
	return &MetricsCollector{
		httpRequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		discountApplyTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_apply_total",
			Help:      "Bulk discount apply operations by outcome",
		}, []string{"outcome"}),
		discountRemoveTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_remove_total",
			Help:      "Bulk discount remove operations by outcome",
		}, []string{"outcome"}),
		bulkUpdateFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_update_record_failures_total",
			Help:      "Individual record failures inside bulk discount updates",
		}),
		orderCreationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_creation_total",
			Help:      "Order creations by outcome",
		}, []string{"outcome"}),
		paymentTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_total",
			Help:      "Payment intent creations by outcome",
		}, []string{"outcome"}),
		refundTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_total",
			Help:      "Refunds by outcome",
		}, []string{"outcome"}),
		chatMessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages persisted, by sender kind",
		}, []string{"kind"}),
		aiEscalationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_ai_escalation_total",
			Help:      "AI escalations by outcome",
		}, []string{"outcome"}),
		aiGenerationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_ai_generation_seconds",
			Help:      "Latency of AI reply generation",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		presenceGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_presences",
			Help:      "Currently tracked presences per room",
		}, []string{"room"}),
	}
}

// ObserveHTTPRequest records an HTTP request
func (m *MetricsCollector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// CountDiscountApply records a bulk apply outcome ("ok", "partial", "failed")
func (m *MetricsCollector) CountDiscountApply(outcome string) {
	m.discountApplyTotal.WithLabelValues(outcome).Inc()
}

// CountDiscountRemove records a bulk remove outcome
func (m *MetricsCollector) CountDiscountRemove(outcome string) {
	m.discountRemoveTotal.WithLabelValues(outcome).Inc()
}

// CountBulkFailure records a single failed record inside a bulk update
func (m *MetricsCollector) CountBulkFailure() {
	m.bulkUpdateFailures.Inc()
}

// CountOrderCreation records an order creation outcome
func (m *MetricsCollector) CountOrderCreation(outcome string) {
	m.orderCreationTotal.WithLabelValues(outcome).Inc()
}

// CountPayment records a payment outcome
func (m *MetricsCollector) CountPayment(outcome string) {
	m.paymentTotal.WithLabelValues(outcome).Inc()
}

// CountRefund records a refund outcome
func (m *MetricsCollector) CountRefund(outcome string) {
	m.refundTotal.WithLabelValues(outcome).Inc()
}

// CountChatMessage records a persisted chat message ("user", "admin", "ai")
func (m *MetricsCollector) CountChatMessage(kind string) {
	m.chatMessagesTotal.WithLabelValues(kind).Inc()
}

// CountEscalation records an AI escalation outcome ("replied", "failed", "skipped")
func (m *MetricsCollector) CountEscalation(outcome string) {
	m.aiEscalationTotal.WithLabelValues(outcome).Inc()
}

// ObserveAIGeneration records the latency of one AI generation call
func (m *MetricsCollector) ObserveAIGeneration(duration time.Duration) {
	m.aiGenerationSeconds.Observe(duration.Seconds())
}

// SetPresences sets the presence gauge for a room
func (m *MetricsCollector) SetPresences(room string, n int) {
	m.presenceGauge.WithLabelValues(room).Set(float64(n))
}

// GinMiddleware records HTTP metrics for every request
func (m *MetricsCollector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Handler returns the /metrics HTTP handler
func (m *MetricsCollector) Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

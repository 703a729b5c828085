package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one service. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	orderCreationTotal  *prometheus.CounterVec
	orderStatusTotal    *prometheus.CounterVec
	stockOperationTotal *prometheus.CounterVec
	paymentTotal        *prometheus.CounterVec
	gatewayDuration     *prometheus.HistogramVec
	notificationTotal   *prometheus.CounterVec
	userLoginTotal      *prometheus.CounterVec
	registrationTotal   *prometheus.CounterVec

	peerRequestTotal    *prometheus.CounterVec
	peerRequestDuration *prometheus.HistogramVec
	bestEffortTotal     *prometheus.CounterVec
	queueSize           *prometheus.GaugeVec
}

// NewMetrics creates collectors on a private registry
func NewMetrics(namespace, service string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"service": service}, reg))
	return &Metrics{
		registry: reg,

		httpRequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		orderCreationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_creation_total",
			Help:      "Order creation attempts by outcome",
		}, []string{"outcome"}),
		orderStatusTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_updates_total",
			Help:      "Order status changes by target status",
		}, []string{"status"}),
		stockOperationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_operations_total",
			Help:      "Stock reservations and releases",
		}, []string{"operation", "outcome"}),
		paymentTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payments by method and resulting status",
		}, []string{"payment_method", "status"}),
		gatewayDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_gateway_duration_seconds",
			Help:      "Duration of simulated gateway calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5},
		}, []string{"operation"}),
		notificationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatches by delivery method and status",
		}, []string{"delivery_method", "status"}),
		userLoginTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_login_total",
			Help:      "Total number of user logins",
		}, []string{"outcome"}),
		registrationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_registration_total",
			Help:      "Total number of user registrations",
		}, []string{"outcome"}),

		peerRequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_requests_total",
			Help:      "Calls to other services by peer and outcome",
		}, []string{"peer", "outcome"}),
		peerRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "peer_request_duration_seconds",
			Help:      "Duration of calls to other services",
			Buckets:   prometheus.DefBuckets,
		}, []string{"peer"}),
		bestEffortTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_total",
			Help:      "Best-effort side effects by task and outcome",
		}, []string{"task", "outcome"}),
		queueSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Pending messages per queue topic",
		}, []string{"topic"}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records a served request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordOrderCreation(outcome string) {
	if m == nil {
		return
	}
	m.orderCreationTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordOrderStatus(status string) {
	if m == nil {
		return
	}
	m.orderStatusTotal.WithLabelValues(status).Inc()
}

// RecordStockOperation operation is reserve or release
func (m *Metrics) RecordStockOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.stockOperationTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordPayment(method, status string) {
	if m == nil {
		return
	}
	m.paymentTotal.WithLabelValues(method, status).Inc()
}

func (m *Metrics) RecordGatewayDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordNotification(deliveryMethod, status string) {
	if m == nil {
		return
	}
	m.notificationTotal.WithLabelValues(deliveryMethod, status).Inc()
}

func (m *Metrics) RecordUserLogin(outcome string) {
	if m == nil {
		return
	}
	m.userLoginTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordUserRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrationTotal.WithLabelValues(outcome).Inc()
}

// RecordPeerRequest records one call to another service
func (m *Metrics) RecordPeerRequest(peer, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.peerRequestTotal.WithLabelValues(peer, outcome).Inc()
	m.peerRequestDuration.WithLabelValues(peer).Observe(duration.Seconds())
}

// RecordBestEffort records the outcome of a best-effort task
func (m *Metrics) RecordBestEffort(task, outcome string) {
	if m == nil {
		return
	}
	m.bestEffortTotal.WithLabelValues(task, outcome).Inc()
}

func (m *Metrics) UpdateQueueSize(topic string, size int) {
	if m == nil {
		return
	}
	m.queueSize.WithLabelValues(topic).Set(float64(size))
}

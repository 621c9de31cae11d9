package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockflow_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	stockMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_stock_movements_total",
		Help: "Committed stock movements by action and transaction type",
	}, []string{"action", "type"})

	stockUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_stock_units_total",
		Help: "Units moved by committed transactions",
	}, []string{"type"})

	skuRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_sku_allocation_retries_total",
		Help: "SKU allocations repeated after a unique conflict",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_cache_lookups_total",
		Help: "List cache lookups by result",
	}, []string{"result"})

	identityEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_identity_events_total",
		Help: "Identity webhook events by type and result",
	}, []string{"type", "result"})
)

// ObserveHTTPRequest records HTTP metrics
func ObserveHTTPRequest(method, path, status string, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// RecordStockMovement counts a committed transaction change
func RecordStockMovement(action, txType string, quantity int) {
	stockMovements.WithLabelValues(action, txType).Inc()
	stockUnits.WithLabelValues(txType).Add(float64(quantity))
}

func RecordSKURetry() {
	skuRetries.Inc()
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

func RecordIdentityEvent(eventType, result string) {
	identityEvents.WithLabelValues(eventType, result).Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	UsersCreated     prometheus.Counter
	AddressesCreated prometheus.Counter
	AuditWrites      *prometheus.CounterVec
	AuditPurged      prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "erpcore_users_created_total",
			Help: "Total number of users created.",
		}),
		AddressesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "erpcore_addresses_created_total",
			Help: "Total number of addresses created.",
		}),
		AuditWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "erpcore_audit_writes_total",
			Help: "Audit rows written, by result.",
		}, []string{"result"}),
		AuditPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "erpcore_audit_purged_total",
			Help: "Audit rows removed by the retention sweeper.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "erpcore_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erpcore_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Nop returns metrics bound to a private registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) IncUsersCreated() {
	if m != nil {
		m.UsersCreated.Inc()
	}
}

func (m *Metrics) IncAddressesCreated() {
	if m != nil {
		m.AddressesCreated.Inc()
	}
}

func (m *Metrics) AddAuditWrites(result string, n int) {
	if m != nil {
		m.AuditWrites.WithLabelValues(result).Add(float64(n))
	}
}

func (m *Metrics) AddAuditPurged(n int64) {
	if m != nil {
		m.AuditPurged.Add(float64(n))
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

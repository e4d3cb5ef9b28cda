package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solarpower"

// Metrics holds every collector of the service.
//
// Thread Safety: All methods are safe for concurrent use.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	values        *prometheus.GaugeVec
	deviceErrors  *prometheus.CounterVec
	registrations *prometheus.CounterVec
}

// New creates the collectors and registers them in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "status"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "property_value",
			Help:      "Last numeric value seen for each device property.",
		}, []string{"property"}),
		deviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Failed device operations, by property and operation.",
		}, []string{"property", "op"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Thing Description registrations, by directory and outcome.",
		}, []string{"directory", "outcome"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.values,
		m.deviceErrors,
		m.registrations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// DeviceError counts one failed device operation.
func (m *Metrics) DeviceError(property, op string) {
	m.deviceErrors.WithLabelValues(property, op).Inc()
}

// SetPropertyValue records the latest numeric value of a property.
func (m *Metrics) SetPropertyValue(property string, v float64) {
	m.values.WithLabelValues(property).Set(v)
}

// ObserveRegistration counts one registration attempt.
func (m *Metrics) ObserveRegistration(directory string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.registrations.WithLabelValues(directory, outcome).Inc()
}

// Package metrics exports request and field-access counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/artpar/postmeta/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "postmeta"

var latencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Collector holds every postmeta series. Construct it once per registry;
// registering twice panics.
type Collector struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	AuthFailures *prometheus.CounterVec

	FieldReads   *prometheus.CounterVec
	FieldWrites  *prometheus.CounterVec
	FieldDenials *prometheus.CounterVec

	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New registers with the global Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &Collector{
		RequestsTotal: counter("requests_total", "HTTP requests by method, route pattern and status class.",
			"method", "route", "status"),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   latencyBuckets,
		}, []string{"method", "route"}),
		RequestsInFlight: gauge("requests_in_flight", "HTTP requests currently being served."),

		AuthFailures: counter("auth_failures_total", "Rejected credentials by scheme.", "scheme"),

		FieldReads:   counter("field_reads_total", "Registered field values returned to callers.", "field"),
		FieldWrites:  counter("field_writes_total", "Registered field writes by result.", "field", "result"),
		FieldDenials: counter("field_denials_total", "Field accesses refused by the permission gate.", "field", "op"),

		ConfigReloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "config_reloads_total", Help: "Config reloads that were applied.",
		}),
		ConfigReloadErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "config_reload_errors_total", Help: "Config reloads that were rejected.",
		}),
		ConfigLastReload: gauge("config_last_reload_timestamp", "Unix time of the last applied config reload."),
	}
}

func (c *Collector) FieldRead(name string) {
	c.FieldReads.WithLabelValues(name).Inc()
}

func (c *Collector) FieldWrite(name, result string) {
	c.FieldWrites.WithLabelValues(name, result).Inc()
}

func (c *Collector) FieldDenied(name, op string) {
	c.FieldDenials.WithLabelValues(name, op).Inc()
}

// ConfigReloaded matches config.Holder.OnReload.
func (c *Collector) ConfigReloaded(at time.Time, err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

// StatusClass maps 404 to "4xx". Codes below 200 report "1xx".
func StatusClass(status int) string {
	if status < 200 {
		return "1xx"
	}
	if status > 599 {
		status = 599
	}
	return strconv.Itoa(status/100) + "xx"
}

var _ ports.FieldObserver = (*Collector)(nil)

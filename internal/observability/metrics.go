package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the navigation server and
// provides helpers to wire them into HTTP handlers, the registry and the
// ephemeris provider.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	FleetSpacecraft  prometheus.Gauge
	SpacecraftFuel   *prometheus.GaugeVec
	Burns            *prometheus.CounterVec
	EphemerisQueries *prometheus.CounterVec
}

// NewCollector registers metrics against the provided registerer, defaulting
// to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route", "method"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	fleet, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_spacecraft",
		Help: "Current number of spacecraft in the registry.",
	}), "fleet_spacecraft")
	if err != nil {
		return nil, err
	}

	fuel, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spacecraft_fuel",
		Help: "Remaining delta-v budget per spacecraft in km/s.",
	}, []string{"id"}), "spacecraft_fuel")
	if err != nil {
		return nil, err
	}

	burns, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "burns_total",
		Help: "Burn commands processed, labeled by result.",
	}, []string{"result"}), "burns_total")
	if err != nil {
		return nil, err
	}

	queries, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ephemeris_queries_total",
		Help: "Ephemeris provider queries, labeled by operation and result.",
	}, []string{"op", "result"}), "ephemeris_queries_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		HTTPRequests:     requests,
		HTTPDurations:    durations,
		FleetSpacecraft:  fleet,
		SpacecraftFuel:   fuel,
		Burns:            burns,
		EphemerisQueries: queries,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// InstrumentRoute records request counts and durations for one route. route
// is the mux pattern, which keeps label cardinality bounded.
func (c *Collector) InstrumentRoute(route string, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.Status)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

// SetFleetSize satisfies the registry MetricsRecorder interface.
func (c *Collector) SetFleetSize(n int) {
	if c == nil || c.FleetSpacecraft == nil {
		return
	}
	c.FleetSpacecraft.Set(float64(n))
}

// SetFuel records the remaining fuel of one spacecraft.
func (c *Collector) SetFuel(id string, fuel float64) {
	if c == nil || c.SpacecraftFuel == nil {
		return
	}
	c.SpacecraftFuel.WithLabelValues(id).Set(fuel)
}

// ObserveBurn counts one burn outcome.
func (c *Collector) ObserveBurn(result string) {
	if c == nil || c.Burns == nil {
		return
	}
	c.Burns.WithLabelValues(result).Inc()
}

// ObserveEphemerisQuery satisfies the ephemeris QueryRecorder interface.
func (c *Collector) ObserveEphemerisQuery(op, result string) {
	if c == nil || c.EphemerisQueries == nil {
		return
	}
	c.EphemerisQueries.WithLabelValues(op, result).Inc()
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// WriteHeader records the status before delegating.
func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestInstrumentRouteRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	h := collector.InstrumentRoute("GET /api/nav/state/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/nav/state/alice", nil))

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET /api/nav/state/{id}", "GET", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "http_request_duration_seconds", map[string]string{
		"route":  "GET /api/nav/state/{id}",
		"method": "GET",
	}); count != 1 {
		t.Fatalf("http_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestInstrumentRouteRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	h := collector.InstrumentRoute("POST /api/cmd/burn/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient fuel", http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/cmd/burn/alice", nil))

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("POST /api/cmd/burn/{id}", "POST", "400")); got != 1 {
		t.Fatalf("http_requests_total error label = %v, want 1", got)
	}
}

func TestCollectorIsReusableAcrossRegistrations(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	first.ObserveBurn("ok")
	if got := testutil.ToFloat64(second.Burns.WithLabelValues("ok")); got != 1 {
		t.Fatalf("shared burns_total = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesFleetGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	collector.SetFleetSize(3)
	collector.SetFuel("alice", 999.5)
	collector.ObserveBurn("insufficient_fuel")
	collector.ObserveEphemerisQuery("body_state", "ok")
	collector.HTTPRequests.WithLabelValues("GET /api/health", "GET", "200").Inc()
	collector.HTTPDurations.WithLabelValues("GET /api/health", "GET").Observe(0.01)

	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"fleet_spacecraft 3",
		`spacecraft_fuel{id="alice"} 999.5`,
		`burns_total{result="insufficient_fuel"} 1`,
		`ephemeris_queries_total{op="body_state",result="ok"} 1`,
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.SetFleetSize(1)
	c.SetFuel("x", 1)
	c.ObserveBurn("ok")
	c.ObserveEphemerisQuery("op", "ok")
	h := c.InstrumentRoute("GET /", http.NotFoundHandler())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

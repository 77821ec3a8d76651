package nav

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/astrogator/internal/observability"
)

func newTestServer(t *testing.T, opts ...ServerOption) (*httptest.Server, *observability.Collector) {
	t.Helper()
	f := newFixture(t, newCircularDataset())
	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	opts = append([]ServerOption{WithCollector(collector), WithDatasetName("CIRCULAR")}, opts...)
	srv := httptest.NewServer(NewServer(f.service, f.users, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv, collector
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServerRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		code   int
	}{
		{"health is public", http.MethodGet, "/api/health", "", "", http.StatusOK},
		{"stars need auth", http.MethodGet, "/api/nav/stars", "", "", http.StatusUnauthorized},
		{"stars", http.MethodGet, "/api/nav/stars", "tok-alice", "", http.StatusOK},
		{"orrery live", http.MethodGet, "/api/nav/orrery/live", "tok-bob", "", http.StatusOK},
		{"orrery static", http.MethodGet, "/api/nav/orrery/static?points=4", "tok-bob", "", http.StatusOK},
		{"orrery static bad points", http.MethodGet, "/api/nav/orrery/static?points=x", "tok-bob", "", http.StatusBadRequest},
		{"own state", http.MethodGet, "/api/nav/state/alice", "tok-alice", "", http.StatusOK},
		{"foreign state", http.MethodGet, "/api/nav/state/alice", "tok-bob", "", http.StatusForbidden},
		{"admin state", http.MethodGet, "/api/nav/state/bob", "tok-admin", "", http.StatusOK},
		{"missing state", http.MethodGet, "/api/nav/state/nobody", "tok-admin", "", http.StatusNotFound},
		{"burn", http.MethodPost, "/api/cmd/burn/alice", "tok-alice", `{"delta_v":{"x":0.1,"y":0,"z":0}}`, http.StatusOK},
		{"burn bad body", http.MethodPost, "/api/cmd/burn/alice", "tok-alice", `{"delta_v":`, http.StatusBadRequest},
		{"burn missing dv", http.MethodPost, "/api/cmd/burn/alice", "tok-alice", `{}`, http.StatusBadRequest},
		{"burn too large", http.MethodPost, "/api/cmd/burn/bob", "tok-bob", `{"delta_v":{"x":2000}}`, http.StatusBadRequest},
		{"burn foreign", http.MethodPost, "/api/cmd/burn/alice", "tok-bob", `{"delta_v":{"x":0.1}}`, http.StatusForbidden},
		{"truth forbidden", http.MethodGet, "/api/admin/truth/alice", "tok-alice", "", http.StatusForbidden},
		{"truth", http.MethodGet, "/api/admin/truth/alice", "tok-admin", "", http.StatusOK},
		{"fleet forbidden", http.MethodGet, "/api/admin/fleet", "tok-bob", "", http.StatusForbidden},
		{"fleet", http.MethodGet, "/api/admin/fleet", "tok-admin", "", http.StatusOK},
		{"wrong method", http.MethodGet, "/api/cmd/burn/alice", "tok-alice", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, srv.URL+tc.path, tc.token, tc.body)
			if resp.StatusCode != tc.code {
				t.Fatalf("%s %s = %d, want %d", tc.method, tc.path, resp.StatusCode, tc.code)
			}
		})
	}
}

func TestServerBurnResponse(t *testing.T) {
	srv, collector := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/cmd/burn/alice", "tok-alice", `{"delta_v":{"x":0.1,"y":0,"z":0}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out BurnResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "Burn executed" || out.RemainingFuel < 999.89 || out.RemainingFuel > 999.91 {
		t.Fatalf("burn response = %+v", out)
	}
	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("POST /api/cmd/burn/{id}", "POST", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestServerFleetJSONOrder(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/admin/fleet", "tok-admin", "")
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := string(raw)
	a, b := strings.Index(s, `"alice"`), strings.Index(s, `"bob"`)
	if a < 0 || b < 0 || a > b {
		t.Fatalf("fleet JSON order wrong: %s", s)
	}
	if strings.Contains(s, `"admin"`) {
		t.Fatalf("admin must not appear in fleet: %s", s)
	}
}

func TestServerRequestIDAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc123" {
		t.Fatalf("X-Request-ID = %q, want abc123", got)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != HealthMessage || body["ephemeris"] != "CIRCULAR" {
		t.Fatalf("health body = %v", body)
	}

	fresh := do(t, http.MethodGet, srv.URL+"/api/health", "", "")
	if fresh.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/api/health", "", "")

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), `http_requests_total{code="200",method="GET",route="GET /api/health"} 1`) {
		t.Fatalf("health request not counted:\n%s", body)
	}
}

func TestServerStaticDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>astrogator</h1>"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	srv, _ := newTestServer(t, WithStaticDir(dir))

	resp := do(t, http.MethodGet, srv.URL+"/", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("static status = %d", resp.StatusCode)
	}
	if unauth := do(t, http.MethodGet, srv.URL+"/api/nav/stars", "", ""); unauth.StatusCode != http.StatusUnauthorized {
		t.Fatalf("api routes must stay protected, got %d", unauth.StatusCode)
	}
}

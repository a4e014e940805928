package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"

	"github.com/khanhnv2901/domaindiag/internal/report"
	"go.uber.org/zap/zaptest"
)

type fakeBuilder struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeBuilder) Build(ctx context.Context, domain string) report.Report {
	f.mu.Lock()
	f.calls = append(f.calls, domain)
	f.mu.Unlock()

	if strings.HasPrefix(domain, "down.") {
		return report.Report{}
	}
	version := "edge 1.2"
	return report.Report{
		HTTPStatus:   200,
		CertValid:    true,
		LayerVersion: &version,
		LayerTimings: map[string]uint16{"edget": 4},
		IPs:          []netip.Addr{netip.MustParseAddr("192.0.2.1")},
	}
}

func newTestServer(t *testing.T, cfg Config) (*Server, *fakeBuilder) {
	t.Helper()
	fb := &fakeBuilder{}
	if cfg.Builder == nil {
		cfg.Builder = fb
	}
	cfg.Logger = zaptest.NewLogger(t)
	srv := NewServer(cfg)
	t.Cleanup(srv.Close)
	return srv, fb
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Config{Version: "1.2.3"})
	rec := do(t, srv, http.MethodGet, "/api/v1/health", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "1.2.3" {
		t.Errorf("unexpected body %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID on the response")
	}
}

func TestGetReport(t *testing.T) {
	srv, fb := newTestServer(t, Config{})
	rec := do(t, srv, http.MethodGet, "/api/v1/reports/example.com", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := `{"http_status":200,"cert_valid":true,"layer_version":"edge 1.2","layer_timings":{"edget":4},"ips":["192.0.2.1"]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if len(fb.calls) != 1 || fb.calls[0] != "example.com" {
		t.Errorf("unexpected builder calls %v", fb.calls)
	}
}

func TestGetReportUnreachableIsStillOK(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	rec := do(t, srv, http.MethodGet, "/api/v1/reports/down.example", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := `{"http_status":0,"cert_valid":false,"layer_version":null,"layer_timings":null,"ips":[]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestBatchReports(t *testing.T) {
	srv, fb := newTestServer(t, Config{Concurrency: 2})
	rec := do(t, srv, http.MethodPost, "/api/v1/reports",
		`{"domains":["a.example","down.example"," a.example ","b.example"]}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]report.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique reports, got %d", len(got))
	}
	if got["down.example"].HTTPStatus != 0 || got["a.example"].HTTPStatus != 200 {
		t.Errorf("unexpected reports %+v", got)
	}
	if len(fb.calls) != 3 {
		t.Errorf("expected 3 builds, got %d", len(fb.calls))
	}
}

func TestBatchValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "empty list", body: `{"domains":[]}`, wantMsg: "no domains"},
		{name: "only blanks", body: `{"domains":["", "  "]}`, wantMsg: "no domains"},
		{name: "too many", body: `{"domains":["a.example","b.example","c.example"]}`, wantMsg: "too many domains"},
		{name: "bad json", body: `{"domains":`, wantMsg: "invalid request body"},
		{name: "wrong type", body: `{"domains":"a.example"}`, wantMsg: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, fb := newTestServer(t, Config{MaxBatch: 2})
			rec := do(t, srv, http.MethodPost, "/api/v1/reports", tt.body, nil)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantMsg) {
				t.Errorf("expected %q in %s", tt.wantMsg, rec.Body.String())
			}
			if len(fb.calls) != 0 {
				t.Errorf("builder should not run for rejected requests, got %v", fb.calls)
			}
		})
	}
}

func TestBatchBodyLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	huge := fmt.Sprintf(`{"domains":["%s"]}`, strings.Repeat("a", 2<<20))
	rec := do(t, srv, http.MethodPost, "/api/v1/reports", huge, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestAuthToken(t *testing.T) {
	srv, _ := newTestServer(t, Config{AuthToken: "s3cret"})

	if rec := do(t, srv, http.MethodGet, "/api/v1/health", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	rec := do(t, srv, http.MethodGet, "/api/v1/health", "", map[string]string{"X-Auth-Token": "s3cret"})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{RateLimit: 1, RateBurst: 1})

	first := do(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	second := do(t, srv, http.MethodGet, "/api/v1/health", "", nil)
	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
}

func TestRoutingErrors(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	if rec := do(t, srv, http.MethodGet, "/api/v1/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/v1/reports/example.com"},
		{http.MethodPost, "/api/v1/reports/example.com"},
		{http.MethodPut, "/api/v1/health"},
		{http.MethodDelete, "/api/v1/reports"},
		{http.MethodGet, "/api/v1/reports"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, "", nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "method not allowed") {
				t.Errorf("unexpected body %s", rec.Body.String())
			}
		})
	}
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	srv, _ := newTestServer(t, Config{RateLimit: 1, RateBurst: 1})

	for i, hop := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		req.Header.Set("X-Forwarded-For", hop)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
}

func TestRateLimitTrustProxy(t *testing.T) {
	srv, _ := newTestServer(t, Config{RateLimit: 1, RateBurst: 1, TrustProxy: true})

	for _, hop := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		req.Header.Set("X-Forwarded-For", hop)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("hop %s: expected its own bucket, got %d", hop, rec.Code)
		}
	}
}

func TestMissingBuilder(t *testing.T) {
	srv := NewServer(Config{Logger: zaptest.NewLogger(t)})
	defer srv.Close()

	rec := do(t, srv, http.MethodGet, "/api/v1/reports/example.com", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("5xx message should be sanitized, got %s", rec.Body.String())
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content-type, got %s", got)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWriteErrorClient(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	s.writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadRequest, errors.New("bad input"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bad input") {
		t.Fatalf("expected original error message, got %s", rr.Body.String())
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nvtrung/certprobe-cli/internal/probe"
	"go.uber.org/zap/zaptest"
)

// stubProbeService echoes one ok result per host, or fails wholesale.
type stubProbeService struct {
	err error
}

func (s *stubProbeService) ProbeHosts(ctx context.Context, hosts []string) ([]probe.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	results := make([]probe.Result, len(hosts))
	for i, h := range hosts {
		results[i] = probe.Result{Host: h, Status: probe.StatusOK, CheckedAt: time.Now().UTC()}
	}
	return results, nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Probes == nil {
		cfg.Probes = &stubProbeService{}
	}
	return NewServer(cfg)
}

func doCheckSSL(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/check-ssl", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestCheckSSLMissingHosts(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doCheckSSL(t, srv, `{}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "Missing hosts in request body" {
		t.Fatalf("unexpected error message: %q", resp["error"])
	}
}

func TestCheckSSLEmptyHostsArray(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doCheckSSL(t, srv, `{"hosts": []}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for explicit empty list, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp CheckSSLResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("expected success true")
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty results array, got %+v", resp.Results)
	}
}

func TestCheckSSLNullHosts(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doCheckSSL(t, srv, `{"hosts": null}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for null hosts, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Missing hosts in request body") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestCheckSSLInvalidJSON(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doCheckSSL(t, srv, `{not json`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Missing hosts in request body") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestCheckSSLSingleStringNormalized(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doCheckSSL(t, srv, `{"hosts": "example.com"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp CheckSSLResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("expected success true")
	}
	if len(resp.Results) != 1 || resp.Results[0].Host != "example.com" {
		t.Fatalf("expected one result for example.com, got %+v", resp.Results)
	}
}

func TestCheckSSLPreservesInputOrder(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doCheckSSL(t, srv, `{"hosts": ["c.com", "a.com", "b.com"]}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp CheckSSLResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"c.com", "a.com", "b.com"}
	if len(resp.Results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(resp.Results))
	}
	for i, host := range want {
		if resp.Results[i].Host != host {
			t.Errorf("result %d: expected %s, got %s", i, host, resp.Results[i].Host)
		}
	}
}

func TestCheckSSLInternalError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	srv := newTestServer(t, Config{
		Probes: &stubProbeService{err: errors.New("boom")},
		Logger: logger,
	})
	rr := doCheckSSL(t, srv, `{"hosts": "example.com"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if success, _ := resp["success"].(bool); success {
		t.Error("expected success false")
	}
	if msg, _ := resp["error"].(string); strings.Contains(msg, "boom") {
		t.Errorf("internal error leaked to caller: %q", msg)
	}
}

func TestCheckSSLMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/api/check-ssl", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCheckSSLVersionedRoute(t *testing.T) {
	srv := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check-ssl", strings.NewReader(`{"hosts": "example.com"}`))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on versioned route, got %d", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestAuthTokenRequired(t *testing.T) {
	srv := newTestServer(t, Config{AuthToken: "secret"})

	rr := doCheckSSL(t, srv, `{"hosts": "example.com"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/check-ssl", strings.NewReader(`{"hosts": "example.com"}`))
	req.Header.Set("X-Auth-Token", "secret")
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	srv := newTestServer(t, Config{})
	rr := doCheckSSL(t, srv, `{"hosts": "example.com"}`)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
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

func TestWriteErrorSanitizesInternal(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := &Server{cfg: Config{Logger: logger}}

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	s.writeError(rr, r, http.StatusInternalServerError, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal server error") {
		t.Fatalf("expected sanitized message, got %s", rr.Body.String())
	}
}

func TestWriteErrorKeepsClientMessage(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	s.writeError(rr, r, http.StatusBadRequest, errors.New("bad input"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bad input") {
		t.Fatalf("expected original error message, got %s", rr.Body.String())
	}
}

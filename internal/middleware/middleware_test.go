package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw := Metrics(WithRegistry(reg))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/safeframe/ws", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418 passed through", rec.Code)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"safehost_http_requests_total",
		"safehost_http_request_duration_seconds",
	} {
		if !found[name] {
			t.Errorf("metric %q not recorded after a request", name)
		}
	}
}

func TestMiddlewarePreservesHijack(t *testing.T) {
	metrics := Metrics(WithRegistry(prometheus.NewRegistry()))
	tracing := OpenTelemetry()

	// Both middlewares wrap the ResponseWriter; a WebSocket-style handler
	// underneath must still be able to hijack the connection.
	handler := metrics(tracing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijack unsupported", http.StatusInternalServerError)
			return
		}
		conn, rw, err := hj.Hijack()
		if err != nil {
			t.Errorf("Hijack() error: %v", err)
			return
		}
		defer conn.Close()
		rw.WriteString("HTTP/1.1 204 No Content\r\nConnection: close\r\n\r\n")
		rw.Flush()
	})))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/safeframe/ws")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204 written on the hijacked connection", resp.StatusCode)
	}
}

func TestOpenTelemetryPassesThrough(t *testing.T) {
	mw := OpenTelemetry()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/safeframe/ws", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 passed through", rec.Code)
	}
}

func TestOpenTelemetryFilterSkips(t *testing.T) {
	called := false
	mw := OpenTelemetry(WithRequestFilter(func(*http.Request) bool { return false }))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !called {
		t.Error("filtered request never reached the handler")
	}
}

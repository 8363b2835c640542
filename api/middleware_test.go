package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/talentflow/api"
	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/errs"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	api.SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer api.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})
	w := httptest.NewRecorder()
	api.LoggingMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs", nil))

	if w.Code != http.StatusCreated || w.Body.String() != "ok" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Body.String())
	}
	var entry struct {
		Msg    string `json:"msg"`
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry.Msg != "request" || entry.Method != "POST" || entry.Path != "/api/jobs" || entry.Status != http.StatusCreated {
		t.Fatalf("unexpected log entry %+v", entry)
	}
}

func TestCORSMiddleware(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	handler := api.CORSMiddleware(next)

	wOpt := httptest.NewRecorder()
	handler.ServeHTTP(wOpt, httptest.NewRequest(http.MethodOptions, "/api/jobs", nil))
	if wOpt.Code != http.StatusNoContent || called {
		t.Fatalf("preflight: expected 204 without calling next, got %d (called=%v)", wOpt.Code, called)
	}
	if got := wOpt.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS header set, got %q", got)
	}

	wGet := httptest.NewRecorder()
	handler.ServeHTTP(wGet, httptest.NewRequest(http.MethodPatch, "/api/jobs/1", nil))
	if wGet.Code != http.StatusOK || !called {
		t.Fatalf("expected pass through, got %d", wGet.Code)
	}
	for _, m := range []string{"GET", "POST", "PATCH", "DELETE"} {
		if got := wGet.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, m) {
			t.Fatalf("expected Allow-Methods to include %s, got %q", m, got)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	api.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	pan := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	w := httptest.NewRecorder()
	api.RecoveryMiddleware(pan).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from panic recovery, got %d", w.Code)
	}
	var body struct {
		Success   bool   `json:"success"`
		Error     string `json:"error"`
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error != "Internal Server Error" || body.Code != errs.CodeServer || !body.Retryable {
		t.Fatalf("unexpected recovery body %+v", body)
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	w2 := httptest.NewRecorder()
	api.RecoveryMiddleware(ok).ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for normal path, got %d", w2.Code)
	}
}

func TestChaosMiddleware_FailsBeforeHandler(t *testing.T) {
	called := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusOK)
	})
	chaos := api.NewChaos(config.NetworkConfig{ErrorRate: 1, Seed: 7}, api.NewMetrics())
	handler := chaos.Middleware(next)

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs", nil))
		res := w.Result()
		if res.StatusCode != http.StatusInternalServerError && res.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("expected 500 or 503, got %d", res.StatusCode)
		}
		var env struct {
			Success   bool   `json:"success"`
			Code      string `json:"code"`
			Retryable bool   `json:"retryable"`
		}
		if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		res.Body.Close()
		if env.Success || !env.Retryable || env.Code == "" {
			t.Fatalf("unexpected envelope: %+v", env)
		}
	}
	if called != 0 {
		t.Fatalf("handler ran %d times behind a failing network", called)
	}
}

func TestChaosMiddleware_Latency(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	chaos := api.NewChaos(config.NetworkConfig{MinLatency: 20 * time.Millisecond, MaxLatency: 30 * time.Millisecond, Seed: 1}, nil)
	handler := chaos.Middleware(next)

	start := time.Now()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("expected at least 20ms of latency, got %v", elapsed)
	}

	// a cancelled request stops waiting
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/jobs", nil).WithContext(ctx))
	if w2.Result().StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 for cancelled request, got %d", w2.Result().StatusCode)
	}
}

func TestChaosMiddleware_ZeroRatePassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	handler := api.NewChaos(config.NetworkConfig{}, nil).Middleware(next)
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
		if w.Result().StatusCode != http.StatusTeapot {
			t.Fatalf("expected pass-through, got %d", w.Result().StatusCode)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := api.NewMetrics()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/things", nil))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	b, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(b), `talentflow_http_requests_total{method="POST",route="/things",status="201"} 1`) {
		t.Fatalf("request counter missing from metrics output")
	}
}

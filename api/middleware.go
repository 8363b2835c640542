package api

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/errs"
)

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// statusRecorder remembers the status written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func recorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := recorder(w)
		next.ServeHTTP(rec, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err))
				writeJSON(w, errEnvelope{Error: "Internal Server Error", Code: errs.CodeServer, Retryable: true}, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Chaos simulates an unreliable network in front of the /api handlers: every
// request waits a uniform random latency in [MinLatency, MaxLatency] and
// fails with probability ErrorRate before reaching the handler.
type Chaos struct {
	cfg     config.NetworkConfig
	mu      sync.Mutex
	rng     *rand.Rand
	metrics *Metrics
}

func NewChaos(cfg config.NetworkConfig, metrics *Metrics) *Chaos {
	seed := uint64(cfg.Seed)
	if cfg.Seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Chaos{cfg: cfg, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), metrics: metrics}
}

func (c *Chaos) roll() (time.Duration, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delay := c.cfg.MinLatency
	if span := c.cfg.MaxLatency - c.cfg.MinLatency; span > 0 {
		delay += time.Duration(c.rng.Int64N(int64(span) + 1))
	}
	fail := c.cfg.ErrorRate > 0 && c.rng.Float64() < c.cfg.ErrorRate
	return delay, c.rng.Float64(), fail
}

func (c *Chaos) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delay, pick, fail := c.roll()
		if delay > 0 && !sleep(r.Context(), delay) {
			writeError(w, r, errs.New(errs.KindTimeout, "request cancelled"))
			return
		}
		if fail {
			kind := errs.KindServer
			if pick < 0.5 {
				kind = errs.KindNetwork
			}
			if c.metrics != nil {
				c.metrics.injected.WithLabelValues(kind.Code()).Inc()
			}
			logger.Debug("injected failure", slog.String("path", r.URL.Path), slog.String("code", kind.Code()))
			writeError(w, r, errs.New(kind, "simulated %s failure", kind))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

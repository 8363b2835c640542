// Package remote is the HTTP client of the talentflow REST service. Every
// call may fail: errors are normalized to errs kinds and retryable ones are
// retried with exponential backoff.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/query"
)

// package-level logger for internal/remote; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/remote. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

const apiPrefix = "/api"

type Client struct {
	base   *url.URL
	cfg    config.RemoteConfig
	client *http.Client
	closed int32

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// envelope is the body of every /api response.
type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data,omitempty"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
	Error      string            `json:"error,omitempty"`
	Code       string            `json:"code,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// New creates a client for the service at cfg.BaseURL. A nil httpClient gets
// a default one with cfg.Timeout.
func New(cfg config.RemoteConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	logger.Debug("remote: client created", slog.String("base_url", cfg.BaseURL), slog.Int("retries", cfg.Retries))
	return &Client{base: u, cfg: cfg, client: httpClient, sleep: sleepCtx}, nil
}

// NewDefault creates a client with a pooled transport.
func NewDefault(cfg config.RemoteConfig) (*Client, error) {
	return New(cfg, &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			MaxIdleConns:        20,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	})
}

// Close releases idle connections. It is idempotent.
func (c *Client) Close() error {
	if c == nil || !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
		}
	}
	return nil
}

// Backoff is the wait before retry number attempt (0-based): base doubled per
// attempt, capped at ceiling.
func Backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return min(d, ceiling)
}

// Backoff returns the wait before retry number attempt for this client.
func (c *Client) Backoff(attempt int) time.Duration {
	return Backoff(c.cfg.Backoff, c.cfg.MaxBackoff, attempt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// call performs one logical request with retries and decodes data into out
// (when non-nil). It returns the pagination block of list responses.
func (c *Client) call(ctx context.Context, method, path string, q url.Values, body, out any) (*query.Pagination, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return nil, errs.New(errs.KindNetwork, "client closed")
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, err, "encode request")
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			wait := c.Backoff(attempt - 1)
			logger.Warn("remote: retrying",
				slog.String("method", method), slog.String("path", path),
				slog.Int("attempt", attempt), slog.Duration("backoff", wait), slog.Any("err", lastErr))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, errs.Normalize(err)
			}
		}
		env, err := c.once(ctx, method, path, q, payload)
		if err == nil {
			if out != nil && len(env.Data) > 0 {
				if err := json.Unmarshal(env.Data, out); err != nil {
					return nil, errs.Wrap(errs.KindServer, err, "decode %s %s", method, path)
				}
			}
			return env.Pagination, nil
		}
		lastErr = err
		if !errs.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, path string, q url.Values, payload []byte) (*envelope, error) {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimRight(c.base.Path, "/") + apiPrefix + path})
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errs.Normalize(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Normalize(err)
	}
	var env envelope
	if jerr := json.Unmarshal(raw, &env); jerr != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, errs.Wrap(errs.KindServer, jerr, "malformed response from %s", path)
		}
		env = envelope{}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && (env.Success || env.Error == "") {
		return &env, nil
	}
	return nil, decodeError(resp.StatusCode, env)
}

// decodeError rebuilds an *errs.Error from an error envelope, falling back to
// the status code when the body carries no code.
func decodeError(status int, env envelope) error {
	kind := errs.KindFromCode(env.Code)
	if kind == errs.KindUnknown {
		kind = errs.KindFromStatus(status)
	}
	if kind == errs.KindUnknown {
		kind = errs.KindServer
	}
	msg := env.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	e := errs.New(kind, "%s", msg)
	if env.Code != "" {
		e.Retryable = env.Retryable
	}
	e.Fields = env.Fields
	return e
}

func get[T any](ctx context.Context, c *Client, path string, q url.Values) (T, *query.Pagination, error) {
	var out T
	p, err := c.call(ctx, http.MethodGet, path, q, nil, &out)
	return out, p, err
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	_, err := c.call(ctx, method, path, nil, body, &out)
	return out, err
}

func list[T any](ctx context.Context, c *Client, path string, q url.Values) (query.Page[T], error) {
	data, p, err := get[[]T](ctx, c, path, q)
	if err != nil {
		return query.Page[T]{}, err
	}
	if data == nil {
		data = []T{}
	}
	page := query.Page[T]{Data: data}
	if p != nil {
		page.Pagination = *p
	}
	return page, nil
}

package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbeacon/beacon/internal/model"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// Paths whose 401 answers are part of the normal sign-in flow and must not
// be reported as an expired session.
var sessionExemptPaths = map[string]struct{}{
	"/auth/login":  {},
	"/auth/signup": {},
	"/auth/me":     {},
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client. Its Jar is replaced when nil.
	HTTPClient *http.Client
	Logger     *zap.Logger
	// OnSessionExpired runs whenever a request outside the auth endpoints is
	// answered with 401.
	OnSessionExpired func()
}

// Client talks to the campus REST collaborator. The session cookie set by
// the login endpoint is kept in a cookie jar and sent on every request.
type Client struct {
	base             *url.URL
	http             *http.Client
	logger           *zap.Logger
	onSessionExpired atomic.Pointer[func()]
}

// New builds a Client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = model.DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("restclient: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("restclient: unsupported scheme %q", base.Scheme)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = model.DefaultRequestTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("restclient: cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		base:   base,
		http:   hc,
		logger: logger,
	}
	c.SetSessionExpiredHandler(opts.OnSessionExpired)
	return c, nil
}

// BaseURL returns the collaborator root the client was built with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// SetSessionExpiredHandler replaces the 401 callback. It is safe to call
// while requests are in flight; nil disables the callback.
func (c *Client) SetSessionExpiredHandler(fn func()) {
	if fn == nil {
		c.onSessionExpired.Store(nil)
		return
	}
	c.onSessionExpired.Store(&fn)
}

// Do performs one request against path and decodes a successful JSON answer
// into dest. body may be nil, a *Multipart, or any JSON-marshalable value.
// An empty answer leaves dest untouched.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any, dest any) error {
	return c.do(ctx, method, path, query, body, dest, false)
}

// DoRecord is Do for endpoints that must answer with the affected record.
// An empty 2xx answer fails with ErrEmptyBody.
func (c *Client) DoRecord(ctx context.Context, method, path string, body any, dest any) error {
	return c.do(ctx, method, path, nil, body, dest, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, dest any, requireBody bool) error {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("restclient: encode %s %s: %w", method, path, err)
	}

	target := c.resolve(path, query)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("restclient: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		return c.failure(resp, method, path)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if requireBody {
			return fmt.Errorf("restclient: decode %s %s: %w", method, path, ErrEmptyBody)
		}
		return nil
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("restclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) failure(resp *http.Response, method, path string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env errorEnvelope
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode == http.StatusUnauthorized {
		key := "/" + strings.Trim(path, "/")
		if _, exempt := sessionExemptPaths[key]; !exempt {
			if fn := c.onSessionExpired.Load(); fn != nil {
				c.logger.Info("session expired", zap.String("path", path))
				(*fn)()
			}
		}
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: env.text(),
		Method:  method,
		Path:    path,
	}
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		if b == nil {
			return nil, "", nil
		}
		buf, contentType, err := b.Encode()
		if err != nil {
			return nil, "", err
		}
		return buf, contentType, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

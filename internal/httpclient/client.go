// Package httpclient is the transport used by every API call: it attaches the
// bearer token, normalizes failures into *errors.AppError and recovers from an
// expired access token with a single refresh-and-retry.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campusdesk/portal/internal/metrics"
	"github.com/campusdesk/portal/internal/token"
	apperrors "github.com/campusdesk/portal/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// RefreshPath is the token refresh endpoint
const RefreshPath = "/api/token/refresh/"

const maxResponseBytes = 10 << 20

// TokenStore is where tokens are read and written. *tokenstore.Store
// satisfies it.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Clear(ctx context.Context, keys ...string)
}

// Resetter is told when authentication cannot be recovered.
// *session.Session satisfies it.
type Resetter interface {
	Reset(ctx context.Context)
}

// Client issues requests against the college API
type Client struct {
	baseURL  string
	http     *http.Client
	store    TokenStore
	resetter Resetter
	logger   *zap.Logger

	refreshes singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the transport timeout of the default *http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithResetter registers who is told about unrecoverable auth failures
func WithResetter(r Resetter) Option {
	return func(c *Client) { c.resetter = r }
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("httpclient")
	return c
}

// BaseURL returns the API origin
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOption adjusts a single request
type RequestOption func(*request)

// SkipAuth sends the request without a bearer token and returns a 401 as is,
// without attempting a refresh. Used for the token endpoints.
func SkipAuth() RequestOption {
	return func(r *request) { r.skipAuth = true }
}

type request struct {
	method      string
	path        string
	payload     []byte
	contentType string
	out         any
	skipAuth    bool
}

// Get issues a GET and decodes the response into out
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST with body and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put issues a PUT with body and decodes the response into out
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}

// Do sends a request. body may be nil, a *Multipart or any JSON-encodable
// value; out may be nil. Failures are *errors.AppError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return err
	}

	r := &request{
		method:      method,
		path:        path,
		payload:     payload,
		contentType: contentType,
		out:         out,
	}
	for _, opt := range opts {
		opt(r)
	}

	return c.send(ctx, r, 0)
}

// send performs one attempt. attempt is 0 for the original request and 1
// for the replay after a refresh; there is never a second refresh.
func (c *Client) send(ctx context.Context, r *request, attempt int) error {
	status, body, usedToken, err := c.roundTrip(ctx, r)
	if err != nil {
		return err
	}

	if status >= 200 && status < 300 {
		return decode(status, body, r.out)
	}

	if status == http.StatusUnauthorized && !r.skipAuth {
		if attempt > 0 {
			c.logger.Warn("request unauthorized after refresh",
				zap.String("method", r.method),
				zap.String("path", r.path),
			)
			return apperrors.Unauthorized(apperrors.FromStatus(status, body))
		}
		if err := c.refresh(ctx, usedToken); err != nil {
			return err
		}
		return c.send(ctx, r, attempt+1)
	}

	return apperrors.FromStatus(status, body)
}

// roundTrip sends r once and returns the status, the body and the access
// token that was attached.
func (c *Client) roundTrip(ctx context.Context, r *request) (int, []byte, string, error) {
	var reader io.Reader
	if r.payload != nil {
		reader = bytes.NewReader(r.payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, reader)
	if err != nil {
		return 0, nil, "", fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	var access string
	if !r.skipAuth {
		if v, ok := c.store.Get(ctx, token.KeyAccess); ok && v != "" {
			access = v
			tok := &oauth2.Token{AccessToken: access, TokenType: token.TokenTypeBearer}
			tok.SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordRequest(r.method, r.path, 0, duration)
		c.logger.Warn("request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.String("request_id", requestID),
			zap.Duration("latency", duration),
			zap.Error(err),
		)
		return 0, nil, access, apperrors.Network(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordRequest(r.method, r.path, 0, duration)
		return 0, nil, access, apperrors.Network(fmt.Errorf("read response: %w", err))
	}

	metrics.RecordRequest(r.method, r.path, resp.StatusCode, duration)
	c.logger.Debug("request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", duration),
		zap.Bool("authenticated", access != ""),
	)

	return resp.StatusCode, body, access, nil
}

func decode(status int, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeServerError,
			Message: apperrors.MsgServerError,
			Status:  status,
			Err:     fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	"github.com/naveenspark/household/internal/logging"
)

// DefaultTimeout bounds every request when no other timeout is configured.
const DefaultTimeout = 10 * time.Second

const maxBodySize = 10 << 20

// TokenSource supplies the bearer token for outgoing requests.
// A nil token means the request is sent unauthenticated.
type TokenSource interface {
	Read() (*oauth2.Token, error)
}

// Kind classifies a successful response body.
type Kind int

const (
	KindEmpty Kind = iota
	KindJSON
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// Response is a successful (2xx) API response.
type Response struct {
	StatusCode int
	Kind       Kind
	Body       []byte
}

// Text returns the raw body.
func (r *Response) Text() string {
	return string(r.Body)
}

// Decode unmarshals a JSON body into out.
func (r *Response) Decode(out any) error {
	if r.Kind != KindJSON {
		return fmt.Errorf("decode response: expected json body, got %s", r.Kind)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client is the household API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	maxBody    int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the single per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client. tokens may be nil for unauthenticated use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{Jar: jar},
		logger:     slog.Default(),
		maxBody:    maxBodySize,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With(logging.FieldComponent, logging.ComponentAPI)
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs one API call. body, when non-nil, is sent as JSON.
// The call is cancelled once the client timeout, or an earlier deadline on
// ctx, elapses.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	begin := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	budget := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		budget = dl.Sub(begin).Round(time.Millisecond)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, method, path, budget, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	// One byte past the limit tells a full body from a truncated one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, c.transportError(ctx, method, path, budget, err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, &ResponseTooLargeError{Method: method, Path: path, Limit: c.maxBody}
	}

	c.logger.Debug("api request",
		logging.FieldMethod, method,
		logging.FieldPath, path,
		logging.FieldStatus, resp.StatusCode,
		logging.FieldDuration, time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, data)
	}

	out := &Response{StatusCode: resp.StatusCode, Body: data}
	switch {
	case resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0:
		out.Kind = KindEmpty
		out.Body = nil
	case json.Valid(data):
		out.Kind = KindJSON
	default:
		out.Kind = KindText
	}
	return out, nil
}

func (c *Client) bearer() string {
	if c.tokens == nil {
		return ""
	}
	tok, err := c.tokens.Read()
	if err != nil {
		c.logger.Warn("read token", logging.FieldError, err)
		return ""
	}
	if tok == nil {
		return ""
	}
	return tok.AccessToken
}

// transportError classifies a failed round trip. budget is the time the
// request was allowed, which is shorter than the client timeout when the
// caller's deadline came first.
func (c *Client) transportError(ctx context.Context, method, path string, budget time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("api request timed out",
			logging.FieldMethod, method,
			logging.FieldPath, path,
		)
		return &RequestTimeoutError{Method: method, Path: path, Timeout: budget}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("do request: %w", ctx.Err())
	}
	return &UnreachableError{URL: c.baseURL, Err: err}
}

// classify turns a non-2xx response into an error. FastAPI sends
// {"detail": "..."} or, for validation failures, {"detail": [{"loc": [...], "msg": "..."}]}.
func classify(status int, body []byte) error {
	msg := errorDetail(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	httpErr := &HTTPError{StatusCode: status, Message: msg}
	if status == http.StatusServiceUnavailable {
		return &BackendUnavailableError{Detail: msg, Remediation: backendRemediation, Err: httpErr}
	}
	return httpErr
}

func errorDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil && len(items) > 0 {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if field := lastLoc(it.Loc); field != "" {
					parts = append(parts, field+": "+it.Msg)
				} else {
					parts = append(parts, it.Msg)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

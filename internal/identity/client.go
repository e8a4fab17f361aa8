// Package identity is a client for the hosted identity service (Supabase GoTrue).
//
// It starts interactive sign-in in the browser, validates redirect tokens,
// refreshes expiring tokens and publishes session-change events. The token
// itself lives in a tokenstore.Store.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/naveenspark/household/internal/browser"
	"github.com/naveenspark/household/internal/logging"
	"github.com/naveenspark/household/internal/tokenstore"
	"github.com/naveenspark/household/pkg/domain"
)

// Client talks to the identity service REST API.
type Client struct {
	authURL    string
	anonKey    string
	store      tokenstore.Store
	httpClient *http.Client
	preflight  *http.Client
	open       browser.Opener
	logger     *slog.Logger
	now        func() time.Time

	refreshMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOpener replaces the browser opener.
func WithOpener(o browser.Opener) Option {
	return func(c *Client) { c.open = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates an identity client for the service at authURL.
func New(authURL, anonKey string, store tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		authURL:    strings.TrimRight(authURL, "/"),
		anonKey:    anonKey,
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		open:       browser.Open,
		logger:     slog.Default(),
		now:        time.Now,
		subs:       make(map[int]chan Event),
	}
	for _, o := range opts {
		o(c)
	}
	c.preflight = &http.Client{
		Transport: c.httpClient.Transport,
		Timeout:   c.httpClient.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c.logger = c.logger.With(logging.FieldComponent, logging.ComponentIdentity)
	return c
}

// AuthorizeURL is the provider page that starts interactive sign-in.
func (c *Client) AuthorizeURL(provider, redirectTarget string) string {
	params := url.Values{}
	params.Set("provider", provider)
	params.Set("redirect_to", redirectTarget)
	return c.authURL + "/auth/v1/authorize?" + params.Encode()
}

// BeginInteractiveSignIn checks that the provider accepts the sign-in request
// and then opens the authorize page in the browser. It returns an
// AuthProviderError when the provider is disabled or rejects redirectTarget.
func (c *Client) BeginInteractiveSignIn(ctx context.Context, provider, redirectTarget string) error {
	target := c.AuthorizeURL(provider, redirectTarget)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("identity.BeginInteractiveSignIn: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.preflight.Do(req)
	if err != nil {
		return fmt.Errorf("identity.BeginInteractiveSignIn: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // best-effort read for error message
	resp.Body.Close()                                        //nolint:errcheck

	if err := classifyAuthorize(resp, body, provider, redirectTarget); err != nil {
		c.logger.Warn("sign-in preflight rejected",
			logging.FieldProvider, provider,
			logging.FieldStatus, resp.StatusCode,
			logging.FieldError, err,
		)
		return err
	}

	c.logger.Info("opening sign-in page", logging.FieldProvider, provider)
	if err := c.open(target); err != nil {
		return fmt.Errorf("identity.BeginInteractiveSignIn: open browser: %w", err)
	}
	return nil
}

func classifyAuthorize(resp *http.Response, body []byte, provider, redirectTarget string) error {
	location := resp.Header.Get("Location")
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if isRedirectMismatch(location) {
			return &RedirectMismatchError{RedirectTarget: redirectTarget, Detail: "provider refused redirect_uri"}
		}
		if u, err := url.Parse(location); err == nil {
			q := u.Query()
			if e := q.Get("error"); e != "" && strings.Contains(strings.ToLower(q.Get("error_description")), "provider") {
				return &ProviderConfigError{Provider: provider, Detail: q.Get("error_description")}
			}
		}
		return nil
	}
	if resp.StatusCode < 400 {
		return nil
	}

	msg := providerMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	lower := strings.ToLower(msg)
	switch {
	case isRedirectMismatch(lower) || strings.Contains(lower, "redirect"):
		return &RedirectMismatchError{RedirectTarget: redirectTarget, Detail: msg}
	case resp.StatusCode < 500:
		return &ProviderConfigError{Provider: provider, Detail: msg}
	default:
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
}

func isRedirectMismatch(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "redirect_uri_mismatch") || strings.Contains(s, "redirect_uri mismatch")
}

// providerMessage extracts the message from a GoTrue error body.
func providerMessage(body []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) != nil {
		return strings.TrimSpace(string(body))
	}
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// claims are the fields read from a provider access token.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// parseClaims decodes an access token without verifying its signature.
// The provider already validated the token; only the identity fields are needed.
func parseClaims(access string) (*claims, error) {
	var cl claims
	if _, _, err := jwt.NewParser().ParseUnverified(access, &cl); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if cl.Subject == "" {
		return nil, errors.New("parse access token: missing subject")
	}
	return &cl, nil
}

// expiryOf returns when tok stops being valid, or zero if unknown.
func expiryOf(tok *oauth2.Token) time.Time {
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	if cl, err := parseClaims(tok.AccessToken); err == nil && cl.ExpiresAt != nil {
		return cl.ExpiresAt.Time
	}
	return time.Time{}
}

// CurrentSession returns the stored session, or nil when none is usable.
// An expired token is refreshed once when a refresh token is available.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	tok, err := c.store.Read()
	if err != nil {
		return nil, fmt.Errorf("identity.CurrentSession: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, nil
	}

	exp := expiryOf(tok)
	if !exp.IsZero() && !c.now().Before(exp) {
		if tok.RefreshToken == "" {
			c.logger.Info("stored token expired without refresh token")
			return nil, nil
		}
		sess, err := c.Refresh(ctx)
		if errors.Is(err, ErrTokenRejected) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("identity.CurrentSession: %w", err)
		}
		return sess, nil
	}

	if cl, err := parseClaims(tok.AccessToken); err == nil {
		if tok.Expiry.IsZero() && cl.ExpiresAt != nil {
			tok.Expiry = cl.ExpiresAt.Time
		}
		return &domain.Session{Token: tok, User: domain.AuthenticatedUser{ID: cl.Subject, Email: cl.Email}}, nil
	}

	// Opaque token: ask the provider who it belongs to.
	user, err := c.fetchUser(ctx, tok.AccessToken)
	if errors.Is(err, ErrTokenRejected) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity.CurrentSession: %w", err)
	}
	return &domain.Session{Token: tok, User: *user}, nil
}

// EstablishSession validates redirect tokens with the provider, stores them
// and publishes SignedIn.
func (c *Client) EstablishSession(ctx context.Context, access, refresh string) (*domain.Session, error) {
	if access == "" {
		return nil, fmt.Errorf("identity.EstablishSession: %w", ErrTokenRejected)
	}
	user, err := c.fetchUser(ctx, access)
	if err != nil {
		return nil, fmt.Errorf("identity.EstablishSession: %w", err)
	}

	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	tok.Expiry = expiryOf(tok)
	if err := c.store.Save(tok); err != nil {
		return nil, fmt.Errorf("identity.EstablishSession: %w", err)
	}

	sess := &domain.Session{Token: tok, User: *user}
	c.logger.Info("session established", logging.FieldUserID, user.ID)
	c.publish(Event{Kind: SignedIn, Session: sess})
	return sess, nil
}

// LoadUser fetches the profile of the session's user.
func (c *Client) LoadUser(ctx context.Context, sess *domain.Session) (*domain.AuthenticatedUser, error) {
	if sess == nil || sess.AccessToken() == "" {
		return nil, fmt.Errorf("identity.LoadUser: %w", ErrTokenRejected)
	}
	user, err := c.fetchUser(ctx, sess.AccessToken())
	if err != nil {
		return nil, fmt.Errorf("identity.LoadUser: %w", err)
	}
	return user, nil
}

func (c *Client) fetchUser(ctx context.Context, access string) (*domain.AuthenticatedUser, error) {
	var user domain.AuthenticatedUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", access, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("user response missing id")
	}
	return &user, nil
}

type tokenResponse struct {
	AccessToken  string                   `json:"access_token"`
	TokenType    string                   `json:"token_type"`
	ExpiresIn    int64                    `json:"expires_in"`
	ExpiresAt    int64                    `json:"expires_at"`
	RefreshToken string                   `json:"refresh_token"`
	User         domain.AuthenticatedUser `json:"user"`
}

// Refresh exchanges the stored refresh token for a new token pair, stores it
// and publishes TokenRefreshed. A refusal by the provider wraps ErrTokenRejected.
func (c *Client) Refresh(ctx context.Context) (*domain.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	tok, err := c.store.Read()
	if err != nil {
		return nil, fmt.Errorf("identity.Refresh: %w", err)
	}
	if tok == nil || tok.RefreshToken == "" {
		return nil, fmt.Errorf("identity.Refresh: no refresh token: %w", ErrTokenRejected)
	}

	var tr tokenResponse
	body := map[string]string{"refresh_token": tok.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &tr); err != nil {
		return nil, fmt.Errorf("identity.Refresh: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("identity.Refresh: empty access token: %w", ErrTokenRejected)
	}

	next := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: "Bearer", RefreshToken: tr.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = tok.RefreshToken
	}
	switch {
	case tr.ExpiresAt > 0:
		next.Expiry = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		next.Expiry = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	default:
		next.Expiry = expiryOf(next)
	}
	if err := c.store.Save(next); err != nil {
		return nil, fmt.Errorf("identity.Refresh: %w", err)
	}

	user := tr.User
	if user.ID == "" {
		if cl, err := parseClaims(next.AccessToken); err == nil {
			user = domain.AuthenticatedUser{ID: cl.Subject, Email: cl.Email}
		}
	}
	sess := &domain.Session{Token: next, User: user}
	c.logger.Debug("token refreshed", logging.FieldUserID, user.ID)
	c.publish(Event{Kind: TokenRefreshed, Session: sess})
	return sess, nil
}

// SignOut revokes the session at the provider (best effort), clears the
// stored token and publishes SignedOut.
func (c *Client) SignOut(ctx context.Context) error {
	tok, err := c.store.Read()
	if err == nil && tok != nil && tok.AccessToken != "" {
		if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", tok.AccessToken, nil, nil); err != nil {
			c.logger.Warn("provider logout failed", logging.FieldError, err)
		}
	}
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("identity.SignOut: %w", err)
	}
	c.logger.Info("signed out")
	c.publish(Event{Kind: SignedOut})
	return nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.authURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) //nolint:errcheck // best-effort read for error message
		msg := providerMessage(data)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
			(resp.StatusCode == http.StatusBadRequest && strings.Contains(path, "grant_type=refresh_token")) {
			return fmt.Errorf("%s: %w", msg, ErrTokenRejected)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

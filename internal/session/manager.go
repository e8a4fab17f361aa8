// Package session resolves who is signed in.
//
// A Manager reconciles three sources once per launch: the sign-in redirect
// fragment, the stored session, and the identity provider's session-change
// events. After that one-time bootstrap it follows the event stream alone.
// All state changes happen on a single coordinator goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/naveenspark/household/internal/identity"
	"github.com/naveenspark/household/internal/logging"
	"github.com/naveenspark/household/pkg/domain"
)

// Identity is the part of the identity client the Manager depends on.
type Identity interface {
	CurrentSession(ctx context.Context) (*domain.Session, error)
	EstablishSession(ctx context.Context, access, refresh string) (*domain.Session, error)
	LoadUser(ctx context.Context, sess *domain.Session) (*domain.AuthenticatedUser, error)
	Subscribe() (<-chan identity.Event, func())
	SignOut(ctx context.Context) error
}

// Navigator controls the location the sign-in redirect landed on.
type Navigator interface {
	// ReplaceLocation swaps the visible location without loading it.
	ReplaceLocation(location string)
	// Navigate performs a full navigation.
	Navigate(location string)
}

// Config tunes a Manager.
type Config struct {
	// CanonicalURL is where sign-in redirects must land. Empty disables host correction.
	CanonicalURL    string
	ExchangeTimeout time.Duration
	SessionTimeout  time.Duration
	// Ledger is shared between Managers that serve the same sign-in flow.
	Ledger *Ledger
	Logger *slog.Logger
}

const (
	defaultExchangeTimeout = 10 * time.Second
	defaultSessionTimeout  = 5 * time.Second
)

// Manager owns the authenticated-user value.
type Manager struct {
	id     Identity
	cfg    Config
	logger *slog.Logger

	started      atomic.Bool
	bootstrapped atomic.Bool
	resolvedFlag atomic.Bool

	runCtx   context.Context
	cmds     chan func()
	done     chan struct{}
	updates  chan State
	resolved chan struct{}

	snapMu   sync.RWMutex
	snapshot State

	// Owned by the coordinator goroutine.
	state   State
	pending *identity.Event
	gen     uint64
}

// New returns a Manager. Call Start before Bootstrap.
func New(id Identity, cfg Config) *Manager {
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = defaultExchangeTimeout
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = defaultSessionTimeout
	}
	if cfg.Ledger == nil {
		cfg.Ledger = NewLedger()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		id:       id,
		cfg:      cfg,
		logger:   logger.With(logging.FieldComponent, logging.ComponentSession),
		cmds:     make(chan func(), 16),
		done:     make(chan struct{}),
		updates:  make(chan State, 1),
		resolved: make(chan struct{}),
	}
}

// Start subscribes to identity events and runs the coordinator until ctx is
// cancelled. Background work started by the Manager is bound to ctx.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	m.runCtx = ctx
	events, unsubscribe := m.id.Subscribe()
	go m.run(ctx, events, unsubscribe)
}

func (m *Manager) run(ctx context.Context, events <-chan identity.Event, unsubscribe func()) {
	defer close(m.done)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-m.cmds:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.onEvent(ev)
		}
	}
}

// post schedules fn on the coordinator. It reports false once the coordinator has stopped.
func (m *Manager) post(fn func()) bool {
	select {
	case m.cmds <- fn:
		return true
	case <-m.done:
		return false
	}
}

// Bootstrap resolves the session for one launch. location is where the
// sign-in redirect landed, or "" when there was none. A redirect fragment is
// stripped through nav before any token exchange starts. Bootstrap does not
// wait for resolution; use Resolved or Updates.
func (m *Manager) Bootstrap(ctx context.Context, location string, nav Navigator) error {
	if !m.started.Load() {
		return ErrNotStarted
	}
	if !m.bootstrapped.CompareAndSwap(false, true) {
		return ErrAlreadyBootstrapped
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.post(func() { m.setPhase(PhaseDetectingCallback) })

	stripped, cb, err := ParseCallback(location)
	if err != nil {
		m.logger.Warn("unparseable launch location", logging.FieldError, err)
	}

	if cb != nil {
		if target, ok := canonicalTarget(location, m.cfg.CanonicalURL); ok {
			m.logger.Info("forwarding sign-in callback to canonical host", logging.FieldHost, m.cfg.CanonicalURL)
			nav.Navigate(target)
			m.post(m.redirected)
			return nil
		}
		nav.ReplaceLocation(stripped)
	}

	switch {
	case cb.HasToken() && m.cfg.Ledger.Claim(cb.AccessToken):
		access, refresh := cb.AccessToken, cb.RefreshToken
		m.post(func() { m.beginExchange(access, refresh) })
	case cb.HasToken():
		m.logger.Warn("ignoring already-used redirect token")
		m.post(func() { m.beginNoCallback(ErrTokenConsumed) })
	case cb != nil:
		m.post(func() { m.beginNoCallback(&CallbackError{Code: cb.Error, Description: cb.ErrorDescription}) })
	default:
		m.post(func() { m.beginNoCallback(nil) })
	}
	return nil
}

// HandleRedirect processes a sign-in redirect that arrives after bootstrap,
// such as an in-app sign-in. The fragment is stripped before the exchange
// starts. The resulting sign-in reaches State only through the identity
// event stream.
func (m *Manager) HandleRedirect(ctx context.Context, location string, nav Navigator) error {
	if !m.resolvedFlag.Load() {
		return ErrNotResolved
	}
	stripped, cb, err := ParseCallback(location)
	if err != nil {
		return fmt.Errorf("session.HandleRedirect: %w", err)
	}
	if cb == nil {
		return ErrNoCallback
	}
	if target, ok := canonicalTarget(location, m.cfg.CanonicalURL); ok {
		nav.Navigate(target)
		return nil
	}
	nav.ReplaceLocation(stripped)

	if !cb.HasToken() {
		cbErr := &CallbackError{Code: cb.Error, Description: cb.ErrorDescription}
		m.post(func() { m.setErr(cbErr) })
		return cbErr
	}
	if !m.cfg.Ledger.Claim(cb.AccessToken) {
		return ErrTokenConsumed
	}

	access, refresh := cb.AccessToken, cb.RefreshToken
	go func() {
		_, err := bounded(m.runCtx, m.cfg.ExchangeTimeout, func(ctx context.Context) (*domain.Session, error) {
			return m.id.EstablishSession(ctx, access, refresh)
		})
		if err != nil {
			m.logger.Warn("in-app sign-in failed", logging.FieldError, err)
			if errors.Is(err, context.DeadlineExceeded) {
				err = &SessionResolutionTimeoutError{Stage: "token exchange", Timeout: m.cfg.ExchangeTimeout}
			}
			m.post(func() { m.setErr(err) })
		}
	}()
	return nil
}

// SignOut signs out at the provider. The state change arrives as an event.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.id.SignOut(ctx); err != nil {
		return fmt.Errorf("session.SignOut: %w", err)
	}
	return nil
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snapshot.clone()
}

// Updates delivers the latest state after every change. Intermediate states
// may be skipped when the reader is slow.
func (m *Manager) Updates() <-chan State {
	return m.updates
}

// Resolved is closed once bootstrap reaches a decidable state.
func (m *Manager) Resolved() <-chan struct{} {
	return m.resolved
}

// Done is closed when the coordinator stops.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// --- coordinator-only methods below ---

func (m *Manager) publish() {
	st := m.state.clone()

	m.snapMu.Lock()
	m.snapshot = st
	m.snapMu.Unlock()

	select {
	case <-m.updates:
	default:
	}
	select {
	case m.updates <- st:
	default:
	}
	m.logger.Debug("session state",
		logging.FieldPhase, st.Phase.String(),
		logging.FieldAuth, st.Auth.String(),
	)
}

func (m *Manager) setPhase(p Phase) {
	m.state.Phase = p
	m.publish()
}

func (m *Manager) setErr(err error) {
	m.state.Err = err
	m.publish()
}

// markResolved runs after the resolved state is published so readers woken
// by Resolved see it.
func (m *Manager) markResolved() {
	if m.resolvedFlag.CompareAndSwap(false, true) {
		close(m.resolved)
	}
	if m.pending != nil {
		m.logger.Debug("discarding notification buffered during bootstrap", logging.FieldEvent, m.pending.Kind.String())
		m.pending = nil
	}
}

func (m *Manager) redirected() {
	m.state = State{Phase: PhaseRedirected, Auth: Unauthenticated}
	m.publish()
	m.markResolved()
}

func (m *Manager) beginExchange(access, refresh string) {
	m.setPhase(PhaseExchangingToken)

	ctx := m.runCtx
	go func() {
		sess, err := bounded(ctx, m.cfg.ExchangeTimeout, func(ctx context.Context) (*domain.Session, error) {
			return m.id.EstablishSession(ctx, access, refresh)
		})
		if err == nil {
			m.post(func() { m.resolve(sess, nil) })
			return
		}

		m.logger.Warn("token exchange failed, checking stored session", logging.FieldError, err)
		var resErr error = fmt.Errorf("sign-in: %w", err)
		if errors.Is(err, context.DeadlineExceeded) {
			resErr = &SessionResolutionTimeoutError{Stage: "token exchange", Timeout: m.cfg.ExchangeTimeout}
		}

		sess, ferr := bounded(ctx, m.cfg.SessionTimeout, m.id.CurrentSession)
		if ferr != nil {
			m.logger.Warn("session fallback failed", logging.FieldError, ferr)
		}
		if sess != nil {
			resErr = nil
		}
		m.post(func() { m.resolve(sess, resErr) })
	}()
}

func (m *Manager) resolve(sess *domain.Session, err error) {
	m.state.Phase = PhaseResolved
	m.state.Checking = false
	m.state.Err = err
	if sess != nil {
		u := sess.User
		m.state.Auth = Authenticated
		m.state.User = &u
		m.logger.Info("signed in", logging.FieldUserID, u.ID)
	} else {
		m.state.Auth = Unauthenticated
		m.state.User = nil
	}
	m.publish()
	m.markResolved()
}

func (m *Manager) beginNoCallback(cause error) {
	m.state = State{Phase: PhaseResolved, Auth: Unauthenticated, Checking: true, Err: cause}
	m.publish()
	m.markResolved()

	gen := m.gen
	ctx := m.runCtx
	go func() {
		sess, err := bounded(ctx, m.cfg.SessionTimeout, m.id.CurrentSession)
		m.post(func() {
			if gen != m.gen {
				return
			}
			m.state.Checking = false
			switch {
			case sess != nil:
				u := sess.User
				m.state.Auth = Authenticated
				m.state.User = &u
				m.state.Err = nil
			case errors.Is(err, context.DeadlineExceeded):
				m.state.Err = &SessionResolutionTimeoutError{Stage: "session query", Timeout: m.cfg.SessionTimeout}
			case err != nil:
				m.logger.Warn("session query failed", logging.FieldError, err)
			}
			m.publish()
		})
	}()
}

func (m *Manager) onEvent(ev identity.Event) {
	if !m.resolvedFlag.Load() {
		m.pending = &ev
		return
	}

	m.gen++
	gen := m.gen
	m.state.Checking = false

	switch ev.Kind {
	case identity.SignedOut:
		m.state.Auth = Unauthenticated
		m.state.User = nil
		m.state.Err = nil
		m.logger.Info("signed out")
		m.publish()

	case identity.SignedIn, identity.TokenRefreshed:
		if ev.Session == nil {
			return
		}
		if m.state.Auth == Authenticated && m.state.User != nil && m.state.User.ID == ev.Session.User.ID {
			m.publish()
			return
		}
		if ev.Kind == identity.TokenRefreshed && m.state.Auth == Authenticated {
			m.publish()
			return
		}
		m.loadProfile(gen, ev.Session)
	}
}

func (m *Manager) loadProfile(gen uint64, sess *domain.Session) {
	ctx := m.runCtx
	go func() {
		user, err := bounded(ctx, m.cfg.SessionTimeout, func(ctx context.Context) (*domain.AuthenticatedUser, error) {
			return m.id.LoadUser(ctx, sess)
		})
		m.post(func() {
			if gen != m.gen {
				m.logger.Debug("dropping stale profile load")
				return
			}
			if err != nil {
				if sess.User.ID == "" {
					m.state.Auth = Unauthenticated
					m.state.User = nil
					m.state.Err = fmt.Errorf("load profile: %w", err)
					m.publish()
					return
				}
				m.logger.Warn("profile load failed, using session identity", logging.FieldError, err)
				u := sess.User
				user = &u
			}
			m.state.Auth = Authenticated
			m.state.User = user
			m.state.Err = nil
			m.logger.Info("signed in", logging.FieldUserID, user.ID)
			m.publish()
		})
	}()
}

// bounded runs fn with a timeout and returns when the timeout elapses even
// if fn ignores its context.
func bounded[T any](parent context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

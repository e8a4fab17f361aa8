package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/naveenspark/household/internal/identity"
	"github.com/naveenspark/household/internal/logging"
	"github.com/naveenspark/household/pkg/domain"
)

// fakeIdentity behaves like identity.Client: EstablishSession publishes
// SignedIn before returning.
type fakeIdentity struct {
	events chan identity.Event

	establish func(ctx context.Context, access, refresh string) (*domain.Session, error)
	current   func(ctx context.Context) (*domain.Session, error)
	loadUser  func(ctx context.Context, sess *domain.Session) (*domain.AuthenticatedUser, error)

	establishCalls atomic.Int32
	currentCalls   atomic.Int32
	loadCalls      atomic.Int32
	signOutCalls   atomic.Int32
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{events: make(chan identity.Event, 16)}
}

func sessionFor(id string) *domain.Session {
	return &domain.Session{User: domain.AuthenticatedUser{ID: id, Email: id + "@example.com"}}
}

func (f *fakeIdentity) CurrentSession(ctx context.Context) (*domain.Session, error) {
	f.currentCalls.Add(1)
	if f.current == nil {
		return nil, nil
	}
	return f.current(ctx)
}

func (f *fakeIdentity) EstablishSession(ctx context.Context, access, refresh string) (*domain.Session, error) {
	f.establishCalls.Add(1)
	if f.establish == nil {
		sess := sessionFor("u1")
		f.events <- identity.Event{Kind: identity.SignedIn, Session: sess}
		return sess, nil
	}
	return f.establish(ctx, access, refresh)
}

func (f *fakeIdentity) LoadUser(ctx context.Context, sess *domain.Session) (*domain.AuthenticatedUser, error) {
	f.loadCalls.Add(1)
	if f.loadUser == nil {
		u := sess.User
		return &u, nil
	}
	return f.loadUser(ctx, sess)
}

func (f *fakeIdentity) Subscribe() (<-chan identity.Event, func()) {
	return f.events, func() {}
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.signOutCalls.Add(1)
	f.events <- identity.Event{Kind: identity.SignedOut}
	return nil
}

type recordingNav struct {
	mu        sync.Mutex
	replaced  []string
	navigated []string
}

func (n *recordingNav) ReplaceLocation(loc string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaced = append(n.replaced, loc)
}

func (n *recordingNav) Navigate(loc string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navigated = append(n.navigated, loc)
}

func (n *recordingNav) snapshot() (replaced, navigated []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.replaced...), append([]string(nil), n.navigated...)
}

const callbackLoc = "http://127.0.0.1:5555/callback#access_token=tok-1&refresh_token=ref-1&expires_in=3600"

func startManager(t *testing.T, id Identity, cfg Config) *Manager {
	t.Helper()
	if cfg.ExchangeTimeout == 0 {
		cfg.ExchangeTimeout = time.Second
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = time.Second
	}
	cfg.Logger = logging.Discard()
	m := New(id, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		<-m.Done()
	})
	m.Start(ctx)
	return m
}

func waitFor(t *testing.T, m *Manager, what string, pred func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := m.State(); pred(st) {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; state = %+v", what, m.State())
	return State{}
}

func waitResolved(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Resolved():
	case <-time.After(2 * time.Second):
		t.Fatalf("bootstrap never resolved; state = %+v", m.State())
	}
}

func isAuthenticated(id string) func(State) bool {
	return func(s State) bool {
		return s.Phase == PhaseResolved && s.Auth == Authenticated && s.User != nil && s.User.ID == id
	}
}

func TestBootstrapNoCallbackNoSession(t *testing.T) {
	fi := newFakeIdentity()
	m := startManager(t, fi, Config{})
	nav := &recordingNav{}

	if err := m.Bootstrap(context.Background(), "", nav); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitResolved(t, m)
	st := waitFor(t, m, "background check to finish", func(s State) bool { return !s.Checking })

	if st.Auth != Unauthenticated || st.User != nil || st.Err != nil {
		t.Errorf("state = %+v, want plain Unauthenticated", st)
	}
	if fi.establishCalls.Load() != 0 {
		t.Error("no fragment, but a token exchange ran")
	}
	if fi.currentCalls.Load() != 1 {
		t.Errorf("CurrentSession calls = %d, want 1", fi.currentCalls.Load())
	}
	if replaced, navigated := nav.snapshot(); len(replaced)+len(navigated) != 0 {
		t.Errorf("location touched without a fragment: %v %v", replaced, navigated)
	}
}

func TestBootstrapNoCallbackRendersBeforeSessionQuery(t *testing.T) {
	fi := newFakeIdentity()
	release := make(chan struct{})
	fi.current = func(context.Context) (*domain.Session, error) {
		<-release
		return sessionFor("u1"), nil
	}
	m := startManager(t, fi, Config{})

	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitResolved(t, m)
	if st := m.State(); st.Auth != Unauthenticated || !st.Checking {
		t.Errorf("state before session query = %+v, want optimistic Unauthenticated", st)
	}

	close(release)
	waitFor(t, m, "upgrade to Authenticated", isAuthenticated("u1"))
}

func TestBootstrapNoCallbackSessionTimeout(t *testing.T) {
	fi := newFakeIdentity()
	block := make(chan struct{})
	defer close(block)
	fi.current = func(context.Context) (*domain.Session, error) {
		<-block // ignores ctx
		return nil, nil
	}
	m := startManager(t, fi, Config{SessionTimeout: 30 * time.Millisecond})

	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	st := waitFor(t, m, "session query to time out", func(s State) bool { return s.Resolved() && !s.Checking })

	var te *SessionResolutionTimeoutError
	if !errors.As(st.Err, &te) {
		t.Fatalf("Err = %v, want *SessionResolutionTimeoutError", st.Err)
	}
	if st.Auth != Unauthenticated {
		t.Errorf("Auth = %s, want unauthenticated", st.Auth)
	}
}

func TestBootstrapExchangeSuccess(t *testing.T) {
	fi := newFakeIdentity()
	nav := &recordingNav{}
	var strippedFirst atomic.Bool
	fi.establish = func(_ context.Context, access, refresh string) (*domain.Session, error) {
		replaced, _ := nav.snapshot()
		strippedFirst.Store(len(replaced) == 1)
		if access != "tok-1" || refresh != "ref-1" {
			t.Errorf("exchange got %q/%q", access, refresh)
		}
		sess := sessionFor("u1")
		fi.events <- identity.Event{Kind: identity.SignedIn, Session: sess}
		return sess, nil
	}
	m := startManager(t, fi, Config{})

	if err := m.Bootstrap(context.Background(), callbackLoc, nav); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitResolved(t, m)
	waitFor(t, m, "Authenticated", isAuthenticated("u1"))
	time.Sleep(20 * time.Millisecond)

	if !strippedFirst.Load() {
		t.Error("fragment was not stripped before the exchange started")
	}
	replaced, navigated := nav.snapshot()
	if len(replaced) != 1 || replaced[0] != "http://127.0.0.1:5555/callback" || len(navigated) != 0 {
		t.Errorf("replaced = %v, navigated = %v", replaced, navigated)
	}
	if n := fi.establishCalls.Load(); n != 1 {
		t.Errorf("EstablishSession calls = %d, want 1", n)
	}
	if n := fi.loadCalls.Load(); n != 0 {
		t.Errorf("LoadUser calls = %d, want 0 (sign-in event must not trigger a second profile load)", n)
	}
	if n := fi.currentCalls.Load(); n != 0 {
		t.Errorf("CurrentSession calls = %d, want 0 on successful exchange", n)
	}
}

func TestBootstrapBuffersEventsDuringExchange(t *testing.T) {
	fi := newFakeIdentity()
	release := make(chan struct{})
	entered := make(chan struct{})
	fi.establish = func(context.Context, string, string) (*domain.Session, error) {
		close(entered)
		<-release
		return sessionFor("u1"), nil
	}
	m := startManager(t, fi, Config{})

	if err := m.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	<-entered

	fi.events <- identity.Event{Kind: identity.SignedIn, Session: sessionFor("u1")}
	fi.events <- identity.Event{Kind: identity.TokenRefreshed, Session: sessionFor("u1")}
	time.Sleep(30 * time.Millisecond)

	if st := m.State(); st.Phase != PhaseExchangingToken || st.Auth != Unauthenticated {
		t.Errorf("state during exchange = %+v, want ExchangingToken/Unauthenticated", st)
	}
	if fi.loadCalls.Load() != 0 {
		t.Error("notification acted on while exchange in flight")
	}

	close(release)
	waitFor(t, m, "Authenticated", isAuthenticated("u1"))
	time.Sleep(20 * time.Millisecond)
	if fi.loadCalls.Load() != 0 {
		t.Errorf("LoadUser calls = %d, want buffered notifications discarded", fi.loadCalls.Load())
	}
}

func TestBootstrapExchangeFailsFallsBack(t *testing.T) {
	fi := newFakeIdentity()
	fi.establish = func(context.Context, string, string) (*domain.Session, error) {
		return nil, identity.ErrTokenRejected
	}
	fi.current = func(context.Context) (*domain.Session, error) {
		return sessionFor("u2"), nil
	}
	m := startManager(t, fi, Config{})

	if err := m.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	st := waitFor(t, m, "fallback session", isAuthenticated("u2"))
	if st.Err != nil {
		t.Errorf("Err = %v, want nil after successful fallback", st.Err)
	}
	if fi.currentCalls.Load() != 1 {
		t.Errorf("CurrentSession calls = %d, want exactly 1 fallback", fi.currentCalls.Load())
	}
}

func TestBootstrapExchangeFailsNoSession(t *testing.T) {
	fi := newFakeIdentity()
	fi.establish = func(context.Context, string, string) (*domain.Session, error) {
		return nil, identity.ErrTokenRejected
	}
	m := startManager(t, fi, Config{})

	if err := m.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitResolved(t, m)
	st := m.State()
	if st.Auth != Unauthenticated || !errors.Is(st.Err, identity.ErrTokenRejected) {
		t.Errorf("state = %+v, want Unauthenticated with the exchange error", st)
	}
}

func TestBootstrapExchangeTimeout(t *testing.T) {
	fi := newFakeIdentity()
	block := make(chan struct{})
	defer close(block)
	fi.establish = func(context.Context, string, string) (*domain.Session, error) {
		<-block // ignores ctx
		return nil, nil
	}
	m := startManager(t, fi, Config{ExchangeTimeout: 30 * time.Millisecond, SessionTimeout: 30 * time.Millisecond})

	start := time.Now()
	if err := m.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitResolved(t, m)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("resolution took %s, want bounded by the timeouts", elapsed)
	}
	st := m.State()
	var te *SessionResolutionTimeoutError
	if st.Auth != Unauthenticated || !errors.As(st.Err, &te) {
		t.Fatalf("state = %+v, want Unauthenticated with SessionResolutionTimeoutError", st)
	}
	if te.Stage != "token exchange" {
		t.Errorf("Stage = %q", te.Stage)
	}
}

func TestBootstrapOnce(t *testing.T) {
	fi := newFakeIdentity()
	m := startManager(t, fi, Config{})
	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	if err := m.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); !errors.Is(err, ErrAlreadyBootstrapped) {
		t.Fatalf("second Bootstrap() = %v, want ErrAlreadyBootstrapped", err)
	}
	time.Sleep(20 * time.Millisecond)
	if fi.establishCalls.Load() != 0 {
		t.Error("second Bootstrap processed a fragment")
	}
}

func TestBootstrapNotStarted(t *testing.T) {
	m := New(newFakeIdentity(), Config{Logger: logging.Discard()})
	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Bootstrap() = %v, want ErrNotStarted", err)
	}
}

func TestBootstrapCanonicalRedirect(t *testing.T) {
	fi := newFakeIdentity()
	nav := &recordingNav{}
	m := startManager(t, fi, Config{CanonicalURL: "http://localhost:5555"})

	if err := m.Bootstrap(context.Background(), callbackLoc, nav); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitResolved(t, m)

	replaced, navigated := nav.snapshot()
	want := strings.Replace(callbackLoc, "127.0.0.1", "localhost", 1)
	if len(navigated) != 1 || navigated[0] != want {
		t.Errorf("navigated = %v, want [%s]", navigated, want)
	}
	if len(replaced) != 0 {
		t.Errorf("replaced = %v, want no processing on the non-canonical host", replaced)
	}
	time.Sleep(20 * time.Millisecond)
	if st := m.State(); st.Phase != PhaseRedirected {
		t.Errorf("Phase = %s, want redirected", st.Phase)
	}
	if fi.establishCalls.Load() != 0 || fi.currentCalls.Load() != 0 {
		t.Error("identity called after canonical redirect")
	}
}

func TestBootstrapCanonicalHostProcesses(t *testing.T) {
	fi := newFakeIdentity()
	m := startManager(t, fi, Config{CanonicalURL: "http://127.0.0.1:5555"})
	if err := m.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitFor(t, m, "Authenticated", isAuthenticated("u1"))
}

func TestBootstrapCallbackError(t *testing.T) {
	fi := newFakeIdentity()
	nav := &recordingNav{}
	m := startManager(t, fi, Config{})

	loc := "http://127.0.0.1:5555/callback#error=access_denied&error_description=User+denied"
	if err := m.Bootstrap(context.Background(), loc, nav); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	st := waitFor(t, m, "check to finish", func(s State) bool { return s.Resolved() && !s.Checking })

	var ce *CallbackError
	if !errors.As(st.Err, &ce) || ce.Code != "access_denied" {
		t.Errorf("Err = %v, want CallbackError access_denied", st.Err)
	}
	if replaced, _ := nav.snapshot(); len(replaced) != 1 {
		t.Errorf("replaced = %v, want fragment stripped", replaced)
	}
}

func TestLedgerSharedAcrossManagers(t *testing.T) {
	ledger := NewLedger()
	fi := newFakeIdentity()

	m1 := startManager(t, fi, Config{Ledger: ledger})
	if err := m1.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitFor(t, m1, "first launch authenticated", isAuthenticated("u1"))

	fi2 := newFakeIdentity()
	m2 := startManager(t, fi2, Config{Ledger: ledger})
	if err := m2.Bootstrap(context.Background(), callbackLoc, &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitResolved(t, m2)
	if fi2.establishCalls.Load() != 0 {
		t.Error("reloaded location re-submitted a used token")
	}
	if st := m2.State(); !errors.Is(st.Err, ErrTokenConsumed) {
		t.Errorf("Err = %v, want ErrTokenConsumed", st.Err)
	}
}

func TestSteadyStateLastNotificationWins(t *testing.T) {
	fi := newFakeIdentity()
	release := make(chan struct{})
	fi.loadUser = func(_ context.Context, sess *domain.Session) (*domain.AuthenticatedUser, error) {
		<-release
		u := sess.User
		return &u, nil
	}
	m := startManager(t, fi, Config{})
	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitFor(t, m, "bootstrap check", func(s State) bool { return s.Resolved() && !s.Checking })

	fi.events <- identity.Event{Kind: identity.SignedIn, Session: sessionFor("u1")}
	fi.events <- identity.Event{Kind: identity.SignedOut}
	waitFor(t, m, "profile load to start", func(State) bool { return fi.loadCalls.Load() == 1 })
	close(release)

	time.Sleep(50 * time.Millisecond)
	if st := m.State(); st.Auth != Unauthenticated || st.User != nil {
		t.Errorf("state = %+v, want Unauthenticated (sign-out was last)", st)
	}
}

func TestSteadyStateSignInAfterSignOut(t *testing.T) {
	fi := newFakeIdentity()
	fi.current = func(context.Context) (*domain.Session, error) { return sessionFor("u1"), nil }
	m := startManager(t, fi, Config{})
	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitFor(t, m, "Authenticated", isAuthenticated("u1"))

	fi.events <- identity.Event{Kind: identity.SignedOut}
	fi.events <- identity.Event{Kind: identity.SignedIn, Session: sessionFor("u2")}
	waitFor(t, m, "Authenticated as u2", isAuthenticated("u2"))
}

func TestSignOut(t *testing.T) {
	fi := newFakeIdentity()
	fi.current = func(context.Context) (*domain.Session, error) { return sessionFor("u1"), nil }
	m := startManager(t, fi, Config{})
	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitFor(t, m, "Authenticated", isAuthenticated("u1"))

	if err := m.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
	waitFor(t, m, "Unauthenticated", func(s State) bool { return s.Auth == Unauthenticated })
}

func TestHandleRedirect(t *testing.T) {
	fi := newFakeIdentity()
	m := startManager(t, fi, Config{})
	nav := &recordingNav{}

	if err := m.HandleRedirect(context.Background(), callbackLoc, nav); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("HandleRedirect() before bootstrap = %v, want ErrNotResolved", err)
	}

	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	waitFor(t, m, "bootstrap check", func(s State) bool { return s.Resolved() && !s.Checking })

	if err := m.HandleRedirect(context.Background(), callbackLoc, nav); err != nil {
		t.Fatalf("HandleRedirect() error: %v", err)
	}
	if replaced, _ := nav.snapshot(); len(replaced) != 1 || strings.Contains(replaced[0], "#") {
		t.Errorf("replaced = %v, want stripped location", replaced)
	}
	waitFor(t, m, "Authenticated via notification", isAuthenticated("u1"))
	if fi.loadCalls.Load() != 1 {
		t.Errorf("LoadUser calls = %d, want 1 from the sign-in notification", fi.loadCalls.Load())
	}

	if err := m.HandleRedirect(context.Background(), callbackLoc, nav); !errors.Is(err, ErrTokenConsumed) {
		t.Errorf("repeat HandleRedirect() = %v, want ErrTokenConsumed", err)
	}
	if fi.establishCalls.Load() != 1 {
		t.Errorf("EstablishSession calls = %d, want 1", fi.establishCalls.Load())
	}

	if err := m.HandleRedirect(context.Background(), "http://127.0.0.1:5555/callback", nav); !errors.Is(err, ErrNoCallback) {
		t.Errorf("HandleRedirect(no fragment) = %v, want ErrNoCallback", err)
	}
}

func TestUpdatesDeliversLatest(t *testing.T) {
	fi := newFakeIdentity()
	fi.current = func(context.Context) (*domain.Session, error) { return sessionFor("u1"), nil }
	m := startManager(t, fi, Config{})
	if err := m.Bootstrap(context.Background(), "", &recordingNav{}); err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-m.Updates():
			if isAuthenticated("u1")(st) {
				return
			}
		case <-deadline:
			t.Fatal("Updates() never delivered the authenticated state")
		}
	}
}

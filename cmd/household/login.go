package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/naveenspark/household/internal/callback"
	"github.com/naveenspark/household/internal/identity"
	"github.com/naveenspark/household/internal/logging"
	"github.com/naveenspark/household/internal/session"
)

const loginTimeout = 2 * time.Minute

// arrival is one load of the callback page, the Manager that handled it and
// the state it settled in.
type arrival struct {
	mgr    *session.Manager
	cancel context.CancelFunc
	state  session.State
	err    error
}

// loginFlow collects callback page loads. Every load is a fresh launch: it
// gets its own Manager, and all Managers share one Ledger so a redirect token
// is exchanged at most once.
type loginFlow struct {
	d        *deps
	ctx      context.Context
	ledger   *session.Ledger
	arrivals chan arrival
}

func newLoginFlow(ctx context.Context, d *deps) *loginFlow {
	return &loginFlow{
		d:        d,
		ctx:      ctx,
		ledger:   session.NewLedger(),
		arrivals: make(chan arrival, 4),
	}
}

// settleTimeout bounds how long a page load waits for its Manager to reach a
// decidable state.
func (f *loginFlow) settleTimeout() time.Duration {
	return f.d.cfg.ExchangeTimeout + f.d.cfg.SessionTimeout + time.Second
}

// deliver is the callback server's Deliver func. It answers the page only
// once the load has settled, so the page reports the real outcome.
func (f *loginFlow) deliver(reqCtx context.Context, location string, nav session.Navigator) error {
	ctx, cancel := context.WithCancel(f.ctx)
	mgr := session.New(f.d.identity, f.d.sessionConfig(f.ledger))
	mgr.Start(ctx)
	if err := mgr.Bootstrap(reqCtx, location, nav); err != nil {
		cancel()
		return err
	}

	// The settle wait is not bound to the page request: a closed tab must not
	// abandon an exchange that is already running.
	settleCtx, stop := context.WithTimeout(ctx, f.settleTimeout())
	st, err := waitSettled(settleCtx, mgr)
	stop()

	a := arrival{mgr: mgr, cancel: cancel, state: st, err: err}
	select {
	case f.arrivals <- a:
	case <-reqCtx.Done():
		cancel()
		return reqCtx.Err()
	}
	return pageOutcome(st, err)
}

// pageOutcome is the error the callback page shows for a settled load, or nil
// when the load signed in or was forwarded.
func pageOutcome(st session.State, settleErr error) error {
	switch {
	case settleErr != nil:
		return errors.New("sign-in did not finish in time")
	case st.Phase == session.PhaseRedirected:
		return nil
	case st.Auth == session.Authenticated && st.User != nil:
		return nil
	case st.Err != nil:
		return fmt.Errorf("sign-in failed: %w", st.Err)
	}
	return errors.New("sign-in did not complete")
}

// wait returns the first page load that resolved to a signed-in user. Loads
// forwarded to the canonical host are skipped; the forwarded load arrives
// next.
func (f *loginFlow) wait(ctx context.Context, srvErr <-chan error) (arrival, session.State, error) {
	for {
		select {
		case a := <-f.arrivals:
			st := a.state
			if a.err != nil {
				a.cancel()
				return arrival{}, st, fmt.Errorf("login timed out while confirming the session")
			}
			if st.Phase == session.PhaseRedirected {
				f.d.logger.Debug("callback forwarded to canonical host")
				a.cancel()
				continue
			}
			if err := pageOutcome(st, nil); err != nil {
				a.cancel()
				return arrival{}, st, err
			}
			return a, st, nil

		case err := <-srvErr:
			return arrival{}, session.State{}, fmt.Errorf("callback server error: %w", err)

		case <-ctx.Done():
			return arrival{}, session.State{}, fmt.Errorf("login timed out: no callback received within %s", loginTimeout)
		}
	}
}

func runLogin(ctx context.Context, d *deps) error {
	flow := newLoginFlow(ctx, d)
	srv, err := callback.Listen(callback.ListenAddr(d.cfg.CanonicalURL), flow.deliver, callback.WithLogger(d.logger))
	if err != nil {
		return fmt.Errorf("start callback listener: %w", err)
	}
	srv.Serve()
	defer shutdown(srv)

	target := d.redirectTarget(srv)
	fmt.Printf("Opening browser to sign in...\n")
	if err := beginSignIn(ctx, d, target, os.Stdout); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	won, st, err := flow.wait(waitCtx, srv.Err())
	if err != nil {
		return err
	}
	defer won.cancel()

	printSignedIn(os.Stdout, st.User)

	// The TUI binds the callback port itself.
	shutdown(srv)
	return runTUI(ctx, d, won.mgr)
}

// beginSignIn opens the provider's sign-in page. Provider configuration
// problems are fatal; when only the browser fails the address is printed.
func beginSignIn(ctx context.Context, d *deps, target string, w io.Writer) error {
	err := d.identity.BeginInteractiveSignIn(ctx, d.cfg.AuthProvider, target)
	if err == nil {
		return nil
	}
	if provider, ok := identity.AsAuthProviderError(err); ok {
		return fmt.Errorf("%w\n%s", err, provider.Remediation())
	}
	d.logger.Warn("could not start sign-in in the browser", logging.FieldError, err)
	fmt.Fprintf(w, "Could not open browser. Visit this URL manually:\n  %s\n", //nolint:errcheck
		d.identity.AuthorizeURL(d.cfg.AuthProvider, target))
	return nil
}

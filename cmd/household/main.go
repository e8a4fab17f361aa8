package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/household/internal/browser"
	"github.com/naveenspark/household/internal/callback"
	"github.com/naveenspark/household/internal/config"
	"github.com/naveenspark/household/internal/identity"
	"github.com/naveenspark/household/internal/logging"
	"github.com/naveenspark/household/internal/session"
	"github.com/naveenspark/household/internal/tokenstore"
	"github.com/naveenspark/household/internal/tui"
	"github.com/naveenspark/household/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "--version", "version", "-v":
		fmt.Println("household " + version)
		return nil
	case "help", "--help", "-h":
		printHelp(os.Stdout)
		return nil
	}

	cfg := config.Load()
	if cmd == "doctor" {
		logger := logging.Setup(logging.ParseLevel(cfg.LogLevel))
		failures := runChecks(ctx, os.Stdout, doctorChecks(cfg, newDeps(cfg, logger)))
		if failures > 0 {
			return fmt.Errorf("doctor found %d problem(s)", failures)
		}
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch {
	case cmd == "login":
		d, closeLog, err := newAppDeps(cfg)
		if err != nil {
			return err
		}
		defer closeLog.Close() //nolint:errcheck
		return runLogin(ctx, d)
	case cmd == "logout":
		d := newDeps(cfg, logging.Setup(logging.ParseLevel(cfg.LogLevel)))
		return runLogout(ctx, d, os.Stdout)
	case cmd == "status":
		d := newDeps(cfg, logging.Setup(logging.ParseLevel(cfg.LogLevel)))
		return runStatus(ctx, d, os.Stdout)
	case cmd == "" || isLocation(cmd):
		d, closeLog, err := newAppDeps(cfg)
		if err != nil {
			return err
		}
		defer closeLog.Close() //nolint:errcheck
		return runApp(ctx, d, cmd)
	}
	return fmt.Errorf("unknown command %q (try `household help`)", cmd)
}

// isLocation reports whether arg is a pasted sign-in redirect address.
func isLocation(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// deps bundles the clients the commands share.
type deps struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    tokenstore.Store
	identity *identity.Client
	api      *client.Client
	open     browser.Opener
}

func newDeps(cfg *config.Config, logger *slog.Logger) *deps {
	store := tokenstore.NewFile(cfg.TokenFile)
	return &deps{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		identity: identity.New(cfg.AuthURL, cfg.AuthAnonKey, store, identity.WithLogger(logger)),
		api: client.New(cfg.APIURL, store,
			client.WithTimeout(cfg.RequestTimeout),
			client.WithLogger(logger),
		),
		open: browser.Open,
	}
}

// newAppDeps logs to a file, since the TUI owns the terminal.
func newAppDeps(cfg *config.Config) (*deps, io.Closer, error) {
	logger, closer, err := logging.SetupFile(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, nil, err
	}
	return newDeps(cfg, logger), closer, nil
}

func (d *deps) sessionConfig(ledger *session.Ledger) session.Config {
	return session.Config{
		CanonicalURL:    d.cfg.CanonicalURL,
		ExchangeTimeout: d.cfg.ExchangeTimeout,
		SessionTimeout:  d.cfg.SessionTimeout,
		Ledger:          ledger,
		Logger:          d.logger,
	}
}

// redirectTarget is the callback address registered with the identity provider.
func (d *deps) redirectTarget(srv *callback.Server) string {
	if d.cfg.CanonicalURL != "" {
		return d.cfg.CanonicalURL
	}
	return srv.URL()
}

// runApp resolves the session for this launch and runs the TUI. location is
// a sign-in redirect pasted on the command line, or "".
func runApp(ctx context.Context, d *deps, location string) error {
	mgr := session.New(d.identity, d.sessionConfig(nil))
	mgr.Start(ctx)
	if err := mgr.Bootstrap(ctx, location, terminalNavigator{open: d.open, out: os.Stderr}); err != nil {
		return fmt.Errorf("bootstrap session: %w", err)
	}
	return runTUI(ctx, d, mgr)
}

// runTUI runs the view tree against mgr until the user quits.
func runTUI(ctx context.Context, d *deps, mgr *session.Manager) error {
	signIn, stopSignIn := startInAppSignIn(d, mgr)
	defer stopSignIn()

	go d.identity.RunAutoRefresh(ctx, d.cfg.RefreshInterval)

	app := tui.NewApp(d.api, mgr, signIn, version)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// startInAppSignIn listens for sign-in redirects started from the TUI. When
// the callback port is unavailable sign-in from the TUI is disabled.
func startInAppSignIn(d *deps, mgr *session.Manager) (tui.SignInFunc, func()) {
	srv, err := callback.Listen(callback.ListenAddr(d.cfg.CanonicalURL), mgr.HandleRedirect, callback.WithLogger(d.logger))
	if err != nil {
		d.logger.Warn("in-app sign-in unavailable", logging.FieldError, err)
		return nil, func() {}
	}
	srv.Serve()

	target := d.redirectTarget(srv)
	provider := d.cfg.AuthProvider
	signIn := func(ctx context.Context) error {
		return d.identity.BeginInteractiveSignIn(ctx, provider, target)
	}
	return signIn, func() { shutdown(srv) }
}

func shutdown(srv *callback.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(ctx) //nolint:errcheck
}

// terminalNavigator applies navigation for a location given on the command
// line. A terminal has no visible location, so replacing it is a no-op.
type terminalNavigator struct {
	open browser.Opener
	out  io.Writer
}

func (terminalNavigator) ReplaceLocation(string) {}

func (n terminalNavigator) Navigate(location string) {
	if err := n.open(location); err != nil {
		fmt.Fprintf(n.out, "Open this address to finish signing in:\n  %s\n", location) //nolint:errcheck
	}
}

// waitSettled waits until bootstrap has resolved and no background session
// query is pending.
func waitSettled(ctx context.Context, mgr *session.Manager) (session.State, error) {
	select {
	case <-mgr.Resolved():
	case <-ctx.Done():
		return mgr.State(), ctx.Err()
	}
	for {
		st := mgr.State()
		if !st.Checking {
			return st, nil
		}
		select {
		case <-mgr.Updates():
		case <-ctx.Done():
			return mgr.State(), ctx.Err()
		}
	}
}

// resolveStored bootstraps a throwaway Manager with no redirect and waits for
// the stored session to be checked.
func resolveStored(ctx context.Context, d *deps) (session.State, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SessionTimeout+time.Second)
	defer cancel()

	mgr := session.New(d.identity, d.sessionConfig(nil))
	mgr.Start(ctx)
	if err := mgr.Bootstrap(ctx, "", terminalNavigator{open: d.open, out: io.Discard}); err != nil {
		return session.State{}, fmt.Errorf("bootstrap session: %w", err)
	}
	return waitSettled(ctx, mgr)
}

func runStatus(ctx context.Context, d *deps, w io.Writer) error {
	st, err := resolveStored(ctx, d)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if st.Auth != session.Authenticated || st.User == nil {
		printSignedOut(w, st.Err)
		return nil
	}
	printSignedIn(w, st.User)
	return nil
}

func runLogout(ctx context.Context, d *deps, w io.Writer) error {
	tok, err := d.store.Read()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if tok == nil {
		fmt.Fprintln(w, "Already signed out.") //nolint:errcheck
		return nil
	}
	if err := d.identity.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Signed out.") //nolint:errcheck
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/naveenspark/household/internal/config"
	"github.com/naveenspark/household/pkg/client"
)

// ANSI colours for doctor output (no lipgloss, so it stays plain when piped).
const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiEmerald = "\033[38;2;74;222;128m" // #4ade80
	ansiGreen   = "\033[38;2;52;212;116m" // #34d474
	ansiRed     = "\033[38;2;248;113;113m"
	ansiSlate   = "\033[38;2;136;144;160m" // #8890a0
)

// errSkipped marks a check that did not run because an earlier one failed.
var errSkipped = errors.New("skipped")

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func printLogo(w io.Writer) {
	letters := "HOUSEHOLD"
	colors := [2]string{ansiEmerald, ansiGreen}
	fmt.Fprint(w, "\n  ") //nolint:errcheck
	for i, ch := range letters {
		fmt.Fprintf(w, "%s%s%c%s", colors[i%2], ansiBold, ch, ansiReset) //nolint:errcheck
		if i < len(letters)-1 {
			fmt.Fprint(w, " ") //nolint:errcheck
		}
	}
	fmt.Fprint(w, "\n\n") //nolint:errcheck
}

// runChecks runs every check in order and returns the number that failed.
func runChecks(ctx context.Context, w io.Writer, checks []check) int {
	printLogo(w)
	failures := 0
	for _, c := range checks {
		detail, err := c.run(ctx)
		switch {
		case errors.Is(err, errSkipped):
			fmt.Fprintf(w, "  %s-%s %-14s %s%s%s\n", ansiSlate, ansiReset, c.name, ansiSlate, detail, ansiReset) //nolint:errcheck
		case err != nil:
			failures++
			fmt.Fprintf(w, "  %s✗%s %-14s %s%v%s\n", ansiRed, ansiReset, c.name, ansiRed, err, ansiReset) //nolint:errcheck
		default:
			fmt.Fprintf(w, "  %s✓%s %-14s %s\n", ansiGreen, ansiReset, c.name, detail) //nolint:errcheck
		}
	}
	fmt.Fprintln(w) //nolint:errcheck
	return failures
}

func doctorChecks(cfg *config.Config, d *deps) []check {
	configErr := cfg.Validate()
	return []check{
		{"configuration", func(context.Context) (string, error) {
			if configErr != nil {
				return "", configErr
			}
			return "ok", nil
		}},
		{"api", func(ctx context.Context) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
			h, err := d.api.Health(ctx)
			if err != nil {
				var unavailable *client.BackendUnavailableError
				if errors.As(err, &unavailable) {
					return "", fmt.Errorf("%s\n                   %s", unavailable.Error(), unavailable.Remediation)
				}
				return "", err
			}
			return fmt.Sprintf("%s (%s)", h.Status, cfg.APIURL), nil
		}},
		{"token", func(context.Context) (string, error) {
			tok, err := d.store.Read()
			switch {
			case err != nil:
				return "", err
			case tok == nil:
				return "none stored, run `household login`", nil
			case tok.Expiry.IsZero():
				return "stored", nil
			case tok.Expiry.Before(time.Now()):
				return fmt.Sprintf("stored, expired %s", tok.Expiry.Format(time.RFC3339)), nil
			}
			return fmt.Sprintf("stored, expires %s", tok.Expiry.Format(time.RFC3339)), nil
		}},
		{"session", func(ctx context.Context) (string, error) {
			if configErr != nil {
				return "needs a valid configuration", errSkipped
			}
			ctx, cancel := context.WithTimeout(ctx, cfg.SessionTimeout)
			defer cancel()
			sess, err := d.identity.CurrentSession(ctx)
			switch {
			case err != nil:
				return "", err
			case sess == nil:
				return "not signed in", nil
			}
			who := sess.User.Email
			if who == "" {
				who = sess.User.ID
			}
			return "signed in as " + who, nil
		}},
	}
}

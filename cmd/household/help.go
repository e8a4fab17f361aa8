package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/household/pkg/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	cmdStyle   = lipgloss.NewStyle().Bold(true)
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	quoteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
)

func printHelp(w io.Writer) {
	commands := []struct{ cmd, desc string }{
		{"household", "Open the finance tracker (interactive TUI)"},
		{"household <redirect-url>", "Finish a sign-in whose redirect you copied from the browser"},
		{"household login", "Sign in with your identity provider"},
		{"household logout", "Sign out and forget the session"},
		{"household status", "Show who is signed in"},
		{"household doctor", "Check configuration and connectivity"},
		{"household version", "Show version"},
		{"household help", "You are here"},
	}
	env := []struct{ key, desc string }{
		{"HOUSEHOLD_API_URL", "finance API (default http://localhost:8000)"},
		{"HOUSEHOLD_AUTH_URL", "identity service URL (required)"},
		{"HOUSEHOLD_AUTH_ANON_KEY", "identity service public key (required)"},
		{"HOUSEHOLD_AUTH_PROVIDER", "sign-in provider (default google)"},
		{"HOUSEHOLD_CANONICAL_URL", "loopback sign-in address, http://localhost:<port>/callback"},
		{"LOG_LEVEL", "debug, info, warn or error"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n", //nolint:errcheck
		titleStyle.Render("H O U S E H O L D"),
		quoteStyle.Render("Track what the family owns, owes, earns and spends."))
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.cmd)), descStyle.Render(c.desc)) //nolint:errcheck
	}
	fmt.Fprintf(w, "\n  Environment (also read from .env and ~/.household/.env):\n") //nolint:errcheck
	for _, e := range env {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", e.key)), descStyle.Render(e.desc)) //nolint:errcheck
	}
	fmt.Fprintln(w) //nolint:errcheck
}

func printSignedIn(w io.Writer, u *domain.AuthenticatedUser) {
	who := u.Email
	if who == "" {
		who = u.ID
	}
	fmt.Fprintf(w, "\n%s\n\nSigned in as %s\n\n", titleStyle.Render("HOUSEHOLD"), cmdStyle.Render(who)) //nolint:errcheck
}

func printSignedOut(w io.Writer, cause error) {
	fmt.Fprintf(w, "\n%s\n\n%s\n", titleStyle.Render("HOUSEHOLD"), quoteStyle.Render("Nobody is signed in.")) //nolint:errcheck
	if cause != nil {
		fmt.Fprintf(w, "%s\n", errStyle.Render(cause.Error())) //nolint:errcheck
	}
	fmt.Fprintf(w, "\n%s\n\n", descStyle.Render("To sign in: household login")) //nolint:errcheck
}

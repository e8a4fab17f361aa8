package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/household/internal/session"
)

type signInStartedMsg struct {
	err error
}

// signinModel is shown while nobody is signed in.
type signinModel struct {
	signIn   SignInFunc
	starting bool
	waiting  bool // browser opened, waiting for the redirect
	err      error
}

func newSigninModel(signIn SignInFunc) signinModel {
	return signinModel{signIn: signIn}
}

func (m signinModel) Update(msg tea.Msg) (signinModel, tea.Cmd) {
	switch msg := msg.(type) {
	case signInStartedMsg:
		m.starting = false
		m.err = msg.err
		m.waiting = msg.err == nil

	case tea.KeyMsg:
		if msg.String() != "l" || m.starting || m.signIn == nil {
			return m, nil
		}
		m.starting = true
		m.err = nil
		signIn := m.signIn
		return m, func() tea.Msg {
			return signInStartedMsg{err: signIn(context.Background())}
		}
	}
	return m, nil
}

func (m signinModel) View(st session.State) string {
	var b strings.Builder
	b.WriteString("\n")

	if !st.Resolved() || st.Checking {
		b.WriteString(" " + dimStyle.Render("checking session...") + "\n")
		return b.String()
	}

	b.WriteString(" " + normalStyle.Render("you are not signed in") + "\n\n")
	switch {
	case m.starting:
		b.WriteString(" " + dimStyle.Render("opening your browser...") + "\n")
	case m.waiting:
		b.WriteString(" " + dimStyle.Render("finish signing in in your browser, this screen updates by itself") + "\n")
	default:
		b.WriteString(" " + inputPromptStyle.Render("> ") + helpEntry("l", "sign in") + "\n")
	}

	if m.err != nil {
		b.WriteString("\n " + errorStyle.Render(errorText(m.err)) + "\n")
	} else if st.Err != nil {
		b.WriteString("\n " + errorStyle.Render(errorText(st.Err)) + "\n")
	}
	return b.String()
}

func (m signinModel) helpKeys() string {
	return helpBar("l", "sign in", "h", "help", "q", "quit")
}

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/household/internal/session"
)

type view int

const (
	viewSummary view = iota
	viewAssets
	viewTransactions
	viewFamily
)

// sessionStateMsg carries a session manager update.
type sessionStateMsg struct {
	state session.State
}

type signedOutMsg struct {
	err error
}

// App is the root Bubbletea model.
type App struct {
	api     API
	sess    Session
	version string
	now     func() time.Time

	state        session.State
	view         view
	signin       signinModel
	summary      summaryModel
	assets       assetsModel
	transactions transactionsModel
	family       familyModel

	startup  tea.Cmd
	helpOpen bool
	status   string
	update   string
	width    int
	height   int
	frame    int
}

// NewApp creates the TUI. signIn may be nil when in-app sign-in is unavailable.
func NewApp(api API, sess Session, signIn SignInFunc, version string) App {
	a := App{
		api:     api,
		sess:    sess,
		version: version,
		now:     time.Now,
		signin:  newSigninModel(signIn),
		state:   sess.State(),
	}
	a.resetViews()
	if a.authenticated() {
		a.startup = a.initView()
	}
	return a
}

// resetViews drops everything loaded for the previous user.
func (a *App) resetViews() {
	userID := ""
	if a.state.User != nil {
		userID = a.state.User.ID
	}
	a.summary = newSummaryModel(a.api, a.now())
	a.assets = newAssetsModel(a.api)
	a.transactions = newTransactionsModel(a.api)
	a.family = newFamilyModel(a.api, userID)
}

func (a App) authenticated() bool {
	return a.state.Resolved() && a.state.Auth == session.Authenticated && a.state.User != nil
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), waitForSession(a.sess), checkVersion(a.version), a.startup)
}

// waitForSession delivers the next session update.
func waitForSession(sess Session) tea.Cmd {
	ch := sess.Updates()
	return func() tea.Msg {
		return sessionStateMsg{state: <-ch}
	}
}

// initView loads the current view. Every tab loads on entry.
func (a *App) initView() tea.Cmd {
	switch a.view {
	case viewAssets:
		return a.assets.Init()
	case viewTransactions:
		return a.transactions.Init()
	case viewFamily:
		return a.family.Init()
	default:
		return a.summary.Init()
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.summary, _ = a.summary.Update(msg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case versionCheckMsg:
		if msg.hasUpdate {
			a.update = msg.latestVersion
		}
		return a, nil

	case sessionStateMsg:
		return a.applySession(msg.state)

	case signedOutMsg:
		if msg.err != nil {
			a.status = "sign out failed: " + errorText(msg.err)
		}
		return a, nil

	case tea.FocusMsg:
		if a.authenticated() && a.view == viewSummary {
			cmd := a.summary.Init()
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.helpOpen {
			switch msg.String() {
			case "h", "esc":
				a.helpOpen = false
			case "q":
				return a, tea.Quit
			}
			return a, nil
		}
		if !a.isEditing() {
			switch msg.String() {
			case "q":
				return a, tea.Quit
			case "h":
				a.helpOpen = true
				return a, nil
			}
		}
		if !a.authenticated() {
			var cmd tea.Cmd
			a.signin, cmd = a.signin.Update(msg)
			return a, cmd
		}
		if !a.isEditing() {
			a.status = ""
			switch msg.String() {
			case "1", "2", "3", "4":
				a.view = view(msg.String()[0] - '1')
				cmd := a.initView()
				return a, cmd
			case "s":
				sess := a.sess
				a.status = "signing out..."
				return a, func() tea.Msg {
					return signedOutMsg{err: sess.SignOut(context.Background())}
				}
			}
		}

	case signInStartedMsg:
		var cmd tea.Cmd
		a.signin, cmd = a.signin.Update(msg)
		return a, cmd
	}

	if !a.authenticated() {
		return a, nil
	}
	return a.routeToView(msg)
}

// applySession reacts to a new session state. A change of user resets and
// reloads the views; signing out drops their data.
func (a App) applySession(st session.State) (tea.Model, tea.Cmd) {
	wasAuth := a.authenticated()
	prevUser := ""
	if a.state.User != nil {
		prevUser = a.state.User.ID
	}
	a.state = st
	next := waitForSession(a.sess)

	switch {
	case a.authenticated() && (!wasAuth || st.User.ID != prevUser):
		a.resetViews()
		a.signin = newSigninModel(a.signin.signIn)
		a.status = ""
		cmd := a.initView()
		return a, tea.Batch(next, cmd)
	case !a.authenticated() && wasAuth:
		a.resetViews()
		a.status = ""
		a.view = viewSummary
	}
	return a, next
}

func (a App) routeToView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.(type) {
	case summaryLoadedMsg, summaryRetryMsg:
		a.summary, cmd = a.summary.Update(msg)
		return a, cmd
	case assetsLoadedMsg, assetSavedMsg, assetDeletedMsg:
		a.assets, cmd = a.assets.Update(msg)
		return a, cmd
	case transactionsLoadedMsg, categoriesLoadedMsg, transactionSavedMsg, transactionDeletedMsg:
		a.transactions, cmd = a.transactions.Update(msg)
		return a, cmd
	case familyLoadedMsg, familyChangedMsg:
		a.family, cmd = a.family.Update(msg)
		return a, cmd
	}

	switch a.view {
	case viewSummary:
		a.summary, cmd = a.summary.Update(msg)
	case viewAssets:
		a.assets, cmd = a.assets.Update(msg)
	case viewTransactions:
		a.transactions, cmd = a.transactions.Update(msg)
	case viewFamily:
		a.family, cmd = a.family.Update(msg)
	}
	return a, cmd
}

func (a App) isEditing() bool {
	if !a.authenticated() {
		return false
	}
	switch a.view {
	case viewAssets:
		return a.assets.editing()
	case viewTransactions:
		return a.transactions.editing()
	case viewFamily:
		return a.family.editing()
	}
	return false
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	header := center(logo, a.width)

	var identity string
	if a.authenticated() {
		identity = metaStyle.Render(a.state.User.Email)
	}
	if a.update != "" {
		if identity != "" {
			identity += metaStyle.Render(" . ")
		}
		identity += goldStyle.Render(a.update + " available")
	}
	header += "\n" + center(identity, a.width)

	var tabs, body, help string
	if a.authenticated() {
		tabs = a.tabBar()
		switch a.view {
		case viewSummary:
			body, help = a.summary.View(), a.summary.helpKeys()
		case viewAssets:
			body, help = a.assets.View(), a.assets.helpKeys()
		case viewTransactions:
			body, help = a.transactions.View(), a.transactions.helpKeys()
		case viewFamily:
			body, help = a.family.View(), a.family.helpKeys()
		}
		if !a.isEditing() {
			help = helpEntry("1-4", "tabs") + " " + help
		}
	} else {
		body, help = a.signin.View(a.state), a.signin.helpKeys()
	}

	if a.helpOpen {
		body = helpView(a.version)
		help = helpBar("esc", "close")
	}

	status := ""
	if a.status != "" {
		status = " " + dimStyle.Render(a.status)
	}

	// Chrome: header(2) + tabs(1) + status(1) + help(1)
	chrome := 5
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, tabs, body, status, help)
}

func (a App) tabBar() string {
	tabs := []struct {
		key  string
		name string
		v    view
	}{
		{"1", "Summary", viewSummary},
		{"2", "Assets", viewAssets},
		{"3", "Transactions", viewTransactions},
		{"4", "Family", viewFamily},
	}
	colWidth := a.width / len(tabs)
	var b strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		w := lipgloss.Width(label)
		left := max((colWidth-w)/2, 0)
		right := max(colWidth-w-left, 0)
		b.WriteString(strings.Repeat(" ", left) + label + strings.Repeat(" ", right))
	}
	return b.String()
}

// center pads s to sit in the middle of width cells.
func center(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}

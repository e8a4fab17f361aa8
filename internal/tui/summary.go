package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/naveenspark/household/pkg/client"
	"github.com/naveenspark/household/pkg/domain"
)

const (
	// summaryRetries is how many automatic retries follow a timed-out
	// aggregate load. Only the summary view retries.
	summaryRetries       = 3
	summaryRetryInterval = 2 * time.Second
)

var errSummaryTryAgain = errors.New("the summary is taking too long to load, press r to try again")

// -- messages --

type summaryLoadedMsg struct {
	gen     int
	summary *domain.SummarySnapshot
	monthly *domain.MonthlySnapshot
	err     error
}

type summaryRetryMsg struct {
	gen int
}

type copiedMsg struct {
	what string
	err  error
}

// -- model --

type summaryModel struct {
	api     API
	summary *domain.SummarySnapshot
	monthly *domain.MonthlySnapshot
	year    int
	month   time.Month
	loading bool
	err     error
	retries int // automatic retries spent on the current load
	gen     int
	status  string
	copy    func(string) error
	width   int
}

func newSummaryModel(api API, now time.Time) summaryModel {
	return summaryModel{
		api:   api,
		year:  now.Year(),
		month: now.Month(),
		copy:  clipboard.WriteAll,
	}
}

// Init starts a fresh load. It runs on mount, tab re-entry and terminal focus.
func (m *summaryModel) Init() tea.Cmd {
	m.gen++
	m.retries = 0
	m.loading = true
	m.err = nil
	return m.load()
}

func (m summaryModel) load() tea.Cmd {
	api, gen, year, month := m.api, m.gen, m.year, int(m.month)
	return func() tea.Msg {
		var (
			summary *domain.SummarySnapshot
			monthly *domain.MonthlySnapshot
		)
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			var err error
			summary, err = api.GetSummary(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			monthly, err = api.GetMonthly(ctx, year, month)
			return err
		})
		if err := g.Wait(); err != nil {
			return summaryLoadedMsg{gen: gen, err: err}
		}
		return summaryLoadedMsg{gen: gen, summary: summary, monthly: monthly}
	}
}

func (m summaryModel) Update(msg tea.Msg) (summaryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case summaryLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			if client.IsTimeout(msg.err) {
				if m.retries < summaryRetries {
					m.retries++
					gen := m.gen
					return m, tea.Tick(summaryRetryInterval, func(time.Time) tea.Msg {
						return summaryRetryMsg{gen: gen}
					})
				}
				m.loading = false
				m.err = errSummaryTryAgain
				return m, nil
			}
			m.loading = false
			m.err = msg.err
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.summary = msg.summary
		m.monthly = msg.monthly

	case summaryRetryMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.load()

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied " + msg.what
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m summaryModel) handleKey(msg tea.KeyMsg) (summaryModel, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "r":
		cmd := m.Init()
		return m, cmd
	case "[", "]":
		if msg.String() == "[" {
			m.shiftMonth(-1)
		} else {
			m.shiftMonth(1)
		}
		cmd := m.Init()
		return m, cmd
	case "c":
		if m.summary == nil {
			return m, nil
		}
		value := m.summary.NetWorth.StringFixed(2)
		cp := m.copy
		return m, func() tea.Msg {
			return copiedMsg{what: "net worth " + value, err: cp(value)}
		}
	}
	return m, nil
}

func (m *summaryModel) shiftMonth(delta int) {
	t := time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	m.year, m.month = t.Year(), t.Month()
}

func (m summaryModel) View() string {
	var b strings.Builder

	if m.loading && m.summary == nil {
		b.WriteString(" " + dimStyle.Render("loading summary...") + "\n")
		if m.retries > 0 {
			b.WriteString(" " + metaStyle.Render(fmt.Sprintf("slow response, retry %d of %d", m.retries, summaryRetries)) + "\n")
		}
		return b.String()
	}
	if m.err != nil {
		b.WriteString(" " + errorStyle.Render("error: "+errorText(m.err)) + "\n")
		b.WriteString("\n " + helpEntry("r", "retry") + "\n")
		return b.String()
	}
	if m.summary == nil {
		b.WriteString(" " + dimStyle.Render("no summary yet") + "\n")
		return b.String()
	}

	row := func(label string, v domain.Amount, style func(domain.Amount) string) {
		fmt.Fprintf(&b, "   %s %s\n", dimStyle.Render(padRight(label, 20)), style(v))
	}
	plain := func(v domain.Amount) string { return normalStyle.Render(v.Format()) }
	signed := func(v domain.Amount) string { return amountStyle(v).Render(v.Format()) }

	b.WriteString(" " + sectionHeaderStyle.Render("balance sheet") + "\n")
	row("total assets", m.summary.TotalAssets, plain)
	row("total liabilities", m.summary.TotalLiabilities, func(v domain.Amount) string { return loanStyle.Render(v.Format()) })
	row("net worth", m.summary.NetWorth, signed)

	b.WriteString("\n " + sectionHeaderStyle.Render(fmt.Sprintf("%s %d", m.month, m.year)) + "\n")
	if m.monthly != nil {
		row("income", m.monthly.TotalIncome, func(v domain.Amount) string { return incomeStyle.Render(v.Format()) })
		row("expense", m.monthly.TotalExpense, func(v domain.Amount) string { return expenseStyle.Render(v.Format()) })
		row("balance", m.monthly.Balance(), signed)
	}

	if m.loading {
		b.WriteString("\n " + metaStyle.Render("refreshing...") + "\n")
	}
	if m.status != "" {
		b.WriteString("\n " + accentStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m summaryModel) helpKeys() string {
	return helpBar("[/]", "month", "c", "copy net worth", "r", "refresh", "s", "sign out", "h", "help", "q", "quit")
}

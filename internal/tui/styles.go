package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/household/pkg/domain"
)

// Shimmer animation for the header logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// logoBase and logoPeak are the ends of the logo gradient.
var (
	logoBase = [3]float64{0x1a, 0x3a, 0x24}
	logoPeak = [3]float64{0x4a, 0xde, 0x80}
)

// renderShimmerLogo renders "HOUSEHOLD" with a highlight band that sweeps
// left to right and pauses off-screen between passes.
func renderShimmerLogo(frame int) string {
	const (
		text   = "HOUSEHOLD"
		period = 60
		width  = 2.5
	)
	n := len(text)
	// The band centre travels from -width to n+width, then rests.
	pos := float64(frame%period)/float64(period)*float64(n+6) - width

	letters := make([]string, n)
	for i := 0; i < n; i++ {
		d := math.Abs(float64(i) - pos)
		b := 0.2
		if d < width {
			b += 0.8 * math.Cos(d/width*math.Pi/2)
		}
		s := lipgloss.NewStyle().Bold(true).Foreground(blend(logoBase, logoPeak, b))
		letters[i] = s.Render(string(text[i]))
	}
	return strings.Join(letters, " ")
}

// blend mixes two RGB colours; t is clamped to [0, 1].
func blend(from, to [3]float64, t float64) lipgloss.Color {
	t = math.Max(0, math.Min(1, t))
	var c [3]int
	for i := range c {
		c[i] = int(math.Round(from[i] + (to[i]-from[i])*t))
	}
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c[0], c[1], c[2]))
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34d474"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45555"))

	goldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#34d474")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	// Money
	incomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	expenseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f0944a"))

	loanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	cashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3ecce4"))
)

// amountStyle colours a signed amount: negatives as expense, others as income.
func amountStyle(a domain.Amount) lipgloss.Style {
	if a.IsNegative() {
		return expenseStyle
	}
	return incomeStyle
}

// transactionTypeStyle returns the colour for a transaction type.
func transactionTypeStyle(t domain.TransactionType) lipgloss.Style {
	if t == domain.TransactionIncome {
		return incomeStyle
	}
	return expenseStyle
}

// assetTypeStyle returns the colour for an asset type.
func assetTypeStyle(t domain.AssetType) lipgloss.Style {
	if t == domain.AssetLoan {
		return loanStyle
	}
	return cashStyle
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins help entries given as key, label pairs.
func helpBar(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, helpEntry(pairs[i], pairs[i+1]))
	}
	return " " + strings.Join(parts, "  ")
}

// helpView renders the help overlay.
func helpView(version string) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80")).
		Bold(true).
		Render("H O U S E H O L D")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	commands := []struct{ cmd, desc string }{
		{"household", "Open the finance tracker"},
		{"household login", "Sign in with your identity provider"},
		{"household logout", "Sign out and forget the session"},
		{"household status", "Show who is signed in"},
		{"household doctor", "Check configuration and connectivity"},
		{"household version", "Show version"},
	}
	keys := []struct{ key, desc string }{
		{"1-4", "switch tab"},
		{"j/k", "move"},
		{"a / e / d", "add, edit, delete"},
		{"r", "retry or refresh"},
		{"s", "sign out"},
		{"q", "quit"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s  %s\n\n", title, metaStyle.Render(version))

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", k.key)), descStyle.Render(k.desc))
	}
	return b.String()
}

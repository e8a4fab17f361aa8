package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/naveenspark/household/pkg/domain"
)

// -- messages --

type assetsLoadedMsg struct {
	assets []domain.Asset
	err    error
}

type assetSavedMsg struct {
	asset *domain.Asset
	err   error
}

type assetDeletedMsg struct {
	id  uuid.UUID
	err error
}

const (
	assetFieldType = iota
	assetFieldName
	assetFieldAmount
)

// -- model --

type assetsModel struct {
	api     API
	assets  []domain.Asset
	cursor  int
	loading bool
	loaded  bool
	err     error
	form    *form
	editID  uuid.UUID // uuid.Nil while adding
	confirm bool
	status  string
}

func newAssetsModel(api API) assetsModel {
	return assetsModel{api: api}
}

func (m *assetsModel) Init() tea.Cmd {
	m.loading = true
	m.err = nil
	return m.loadAssets()
}

func (m assetsModel) loadAssets() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		assets, err := api.ListAssets(context.Background())
		return assetsLoadedMsg{assets: assets, err: err}
	}
}

func (m assetsModel) editing() bool {
	return m.form != nil || m.confirm
}

func (m assetsModel) Update(msg tea.Msg) (assetsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case assetsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.assets = msg.assets
		if m.cursor >= len(m.assets) {
			m.cursor = max(len(m.assets)-1, 0)
		}

	case assetSavedMsg:
		if m.form == nil {
			return m, nil
		}
		m.form.submitting = false
		if msg.err != nil {
			m.form.err = errorText(msg.err)
			return m, nil
		}
		m.form = nil
		m.status = "saved"
		if msg.asset != nil {
			m.status += " " + msg.asset.Name
		}
		cmd := m.Init()
		return m, cmd

	case assetDeletedMsg:
		if msg.err != nil {
			m.status = "delete failed: " + errorText(msg.err)
			return m, nil
		}
		m.status = "deleted"
		cmd := m.Init()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m assetsModel) handleKey(msg tea.KeyMsg) (assetsModel, tea.Cmd) {
	if m.form != nil {
		switch m.form.update(msg) {
		case formCancel:
			m.form = nil
		case formSubmit:
			return m.submit()
		}
		return m, nil
	}

	if m.confirm {
		m.confirm = false
		if msg.String() != "y" {
			m.status = ""
			return m, nil
		}
		a := m.selected()
		if a == nil {
			return m, nil
		}
		api, id := m.api, a.ID
		m.status = "deleting " + a.Name + "..."
		return m, func() tea.Msg {
			return assetDeletedMsg{id: id, err: api.DeleteAsset(context.Background(), id)}
		}
	}

	m.status = ""
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.assets)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		cmd := m.Init()
		return m, cmd
	case "a":
		m.editID = uuid.Nil
		m.form = assetForm("new asset", domain.AssetCash, "", "")
	case "e", "enter":
		if a := m.selected(); a != nil {
			m.editID = a.ID
			m.form = assetForm("edit asset", a.Type, a.Name, a.Amount.String())
		}
	case "d":
		if a := m.selected(); a != nil {
			m.confirm = true
		}
	}
	return m, nil
}

func assetForm(title string, typ domain.AssetType, name, amount string) *form {
	types := make([]string, len(domain.AssetTypes))
	for i, t := range domain.AssetTypes {
		types[i] = string(t)
	}
	return newForm(title,
		choiceField("type", types, string(typ)),
		textField("name", name, "e.g. Checking account"),
		textField("amount", amount, "e.g. 1,250.00"),
	)
}

func (m assetsModel) selected() *domain.Asset {
	if m.cursor < 0 || m.cursor >= len(m.assets) {
		return nil
	}
	return &m.assets[m.cursor]
}

// submit validates the form and sends it. Invalid input never reaches the API.
func (m assetsModel) submit() (assetsModel, tea.Cmd) {
	f := m.form
	typ := domain.AssetType(f.value(assetFieldType))
	name := strings.TrimSpace(f.value(assetFieldName))
	amount, err := domain.ParseAmount(f.value(assetFieldAmount))
	if err != nil {
		f.err = "amount: " + err.Error()
		return m, nil
	}

	api := m.api
	if m.editID == uuid.Nil {
		in := domain.AssetInput{Type: typ, Name: name, Amount: amount}
		if err := in.Validate(); err != nil {
			f.err = err.Error()
			return m, nil
		}
		f.submitting = true
		return m, func() tea.Msg {
			a, err := api.CreateAsset(context.Background(), in)
			return assetSavedMsg{asset: a, err: err}
		}
	}

	patch := domain.AssetPatch{Type: &typ, Name: &name, Amount: &amount}
	if err := patch.Validate(); err != nil {
		f.err = err.Error()
		return m, nil
	}
	f.submitting = true
	id := m.editID
	return m, func() tea.Msg {
		a, err := api.UpdateAsset(context.Background(), id, patch)
		return assetSavedMsg{asset: a, err: err}
	}
}

// subtotals sums cash and loan amounts.
func (m assetsModel) subtotals() (cash, loans domain.Amount) {
	for _, a := range m.assets {
		if a.Type == domain.AssetLoan {
			loans = domain.Amount{Decimal: loans.Add(a.Amount.Decimal)}
		} else {
			cash = domain.Amount{Decimal: cash.Add(a.Amount.Decimal)}
		}
	}
	return cash, loans
}

func (m assetsModel) View() string {
	if m.form != nil {
		return m.form.View()
	}

	var b strings.Builder
	switch {
	case m.loading && !m.loaded:
		b.WriteString(" " + dimStyle.Render("loading assets...") + "\n")
		return b.String()
	case m.err != nil:
		b.WriteString(" " + errorStyle.Render("error: "+errorText(m.err)) + "\n")
		b.WriteString("\n " + helpEntry("r", "retry") + "\n")
		return b.String()
	case len(m.assets) == 0:
		b.WriteString("\n " + dimStyle.Render("no assets yet, press a to add one") + "\n")
		if m.status != "" {
			b.WriteString("\n " + accentStyle.Render(m.status) + "\n")
		}
		return b.String()
	}

	for i, a := range m.assets {
		cursor := " "
		nameStyle := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
			nameStyle = selectedStyle
		}
		fmt.Fprintf(&b, " %s %s  %s  %s\n",
			cursor,
			assetTypeStyle(a.Type).Render(padRight(string(a.Type), 4)),
			nameStyle.Render(padRight(truncStr(a.Name, 32), 32)),
			normalStyle.Render(fmt.Sprintf("%14s", a.Amount.Format())),
		)
	}

	cash, loans := m.subtotals()
	b.WriteString("\n")
	fmt.Fprintf(&b, "   %s %s\n", dimStyle.Render(padRight("cash", 40)), cashStyle.Render(fmt.Sprintf("%14s", cash.Format())))
	fmt.Fprintf(&b, "   %s %s\n", dimStyle.Render(padRight("loans", 40)), loanStyle.Render(fmt.Sprintf("%14s", loans.Format())))

	if m.confirm {
		if a := m.selected(); a != nil {
			b.WriteString("\n" + confirmView(fmt.Sprintf("delete %q?", a.Name)))
		}
	} else if m.status != "" {
		b.WriteString("\n " + accentStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m assetsModel) helpKeys() string {
	if m.form != nil {
		return formHelp()
	}
	return helpBar("j/k", "nav", "a", "add", "e", "edit", "d", "delete", "r", "refresh", "h", "help", "q", "quit")
}

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

type transactionsLoadedMsg struct {
	filter       domain.TransactionType
	transactions []domain.Transaction
	err          error
}

type categoriesLoadedMsg struct {
	typ        domain.TransactionType
	categories []domain.Category
	err        error
}

type transactionSavedMsg struct {
	tx  *domain.Transaction
	err error
}

type transactionDeletedMsg struct {
	id  uuid.UUID
	err error
}

const (
	txFieldType = iota
	txFieldAmount
	txFieldCategory
	txFieldDate
	txFieldMemo
)

// filterOrder is the cycle order of the type filter. "" lists everything.
var filterOrder = []domain.TransactionType{"", domain.TransactionExpense, domain.TransactionIncome}

// -- model --

type transactionsModel struct {
	api          API
	transactions []domain.Transaction
	filter       domain.TransactionType
	filterCycle  int
	cursor       int
	loading      bool
	loaded       bool
	err          error

	form       *form
	editID     uuid.UUID
	categories map[domain.TransactionType][]domain.Category
	pendingCat uuid.UUID // category to preselect once the list arrives

	confirm bool
	status  string
	today   func() domain.Date
}

func newTransactionsModel(api API) transactionsModel {
	return transactionsModel{
		api:        api,
		categories: make(map[domain.TransactionType][]domain.Category),
		today:      domain.Today,
	}
}

func (m *transactionsModel) Init() tea.Cmd {
	m.loading = true
	m.err = nil
	return m.loadTransactions()
}

func (m transactionsModel) loadTransactions() tea.Cmd {
	api, filter := m.api, m.filter
	return func() tea.Msg {
		txs, err := api.ListTransactions(context.Background(), domain.TransactionFilter{Type: filter})
		return transactionsLoadedMsg{filter: filter, transactions: txs, err: err}
	}
}

func (m transactionsModel) loadCategories(typ domain.TransactionType) tea.Cmd {
	if _, ok := m.categories[typ]; ok {
		return nil
	}
	api := m.api
	return func() tea.Msg {
		cats, err := api.ListCategories(context.Background(), typ)
		return categoriesLoadedMsg{typ: typ, categories: cats, err: err}
	}
}

func (m transactionsModel) editing() bool {
	return m.form != nil || m.confirm
}

func (m transactionsModel) Update(msg tea.Msg) (transactionsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case transactionsLoadedMsg:
		if msg.filter != m.filter {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.transactions = msg.transactions
		if m.cursor >= len(m.transactions) {
			m.cursor = max(len(m.transactions)-1, 0)
		}

	case categoriesLoadedMsg:
		if msg.err != nil {
			if m.form != nil {
				m.form.err = "categories: " + errorText(msg.err)
			}
			return m, nil
		}
		m.categories[msg.typ] = msg.categories
		m.syncCategoryChoices()

	case transactionSavedMsg:
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
		cmd := m.Init()
		return m, cmd

	case transactionDeletedMsg:
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

// syncCategoryChoices refreshes the category field for the form's current type.
func (m *transactionsModel) syncCategoryChoices() {
	if m.form == nil {
		return
	}
	typ := domain.TransactionType(m.form.value(txFieldType))
	field := &m.form.fields[txFieldCategory]
	prev := field.current()

	cats := m.categories[typ]
	field.choices = make([]string, len(cats))
	for i, c := range cats {
		field.choices[i] = c.Name
	}
	field.choice = 0
	if m.pendingCat != uuid.Nil {
		for i, c := range cats {
			if c.ID == m.pendingCat {
				field.choice = i
				m.pendingCat = uuid.Nil
				break
			}
		}
	} else if prev != "" {
		field.selectValue(prev)
	}
}

func (m transactionsModel) categoryID(typ domain.TransactionType, name string) uuid.UUID {
	for _, c := range m.categories[typ] {
		if c.Name == name {
			return c.ID
		}
	}
	return uuid.Nil
}

func (m transactionsModel) handleKey(msg tea.KeyMsg) (transactionsModel, tea.Cmd) {
	if m.form != nil {
		switch m.form.update(msg) {
		case formCancel:
			m.form = nil
		case formSubmit:
			return m.submit()
		case formChanged:
			if m.form.focus == txFieldType {
				typ := domain.TransactionType(m.form.value(txFieldType))
				m.syncCategoryChoices()
				return m, m.loadCategories(typ)
			}
		}
		return m, nil
	}

	if m.confirm {
		m.confirm = false
		if msg.String() != "y" {
			return m, nil
		}
		tx := m.selected()
		if tx == nil {
			return m, nil
		}
		api, id := m.api, tx.ID
		m.status = "deleting..."
		return m, func() tea.Msg {
			return transactionDeletedMsg{id: id, err: api.DeleteTransaction(context.Background(), id)}
		}
	}

	m.status = ""
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.transactions)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		cmd := m.Init()
		return m, cmd
	case "t":
		m.filterCycle = (m.filterCycle + 1) % len(filterOrder)
		m.filter = filterOrder[m.filterCycle]
		m.cursor = 0
		cmd := m.Init()
		return m, cmd
	case "a":
		typ := domain.TransactionExpense
		if m.filter != "" {
			typ = m.filter
		}
		m.editID = uuid.Nil
		m.pendingCat = uuid.Nil
		m.form = transactionForm("new transaction", typ, "", m.today().String(), "")
		m.syncCategoryChoices()
		return m, m.loadCategories(typ)
	case "e", "enter":
		tx := m.selected()
		if tx == nil {
			return m, nil
		}
		memo := ""
		if tx.Memo != nil {
			memo = *tx.Memo
		}
		m.editID = tx.ID
		m.pendingCat = tx.CategoryID
		m.form = transactionForm("edit transaction", tx.Type, tx.Amount.String(), tx.Date.String(), memo)
		m.syncCategoryChoices()
		return m, m.loadCategories(tx.Type)
	case "d":
		if m.selected() != nil {
			m.confirm = true
		}
	}
	return m, nil
}

func transactionForm(title string, typ domain.TransactionType, amount, date, memo string) *form {
	types := make([]string, len(domain.TransactionTypes))
	for i, t := range domain.TransactionTypes {
		types[i] = string(t)
	}
	return newForm(title,
		choiceField("type", types, string(typ)),
		textField("amount", amount, "e.g. 42.50"),
		choiceField("category", nil, ""),
		textField("date", date, "YYYY-MM-DD"),
		textField("memo", memo, "optional"),
	)
}

func (m transactionsModel) selected() *domain.Transaction {
	if m.cursor < 0 || m.cursor >= len(m.transactions) {
		return nil
	}
	return &m.transactions[m.cursor]
}

// submit validates the form and sends it. Invalid input never reaches the API.
func (m transactionsModel) submit() (transactionsModel, tea.Cmd) {
	f := m.form
	typ := domain.TransactionType(f.value(txFieldType))
	amount, err := domain.ParseAmount(f.value(txFieldAmount))
	if err != nil {
		f.err = "amount: " + err.Error()
		return m, nil
	}
	date, err := domain.ParseDate(f.value(txFieldDate))
	if err != nil {
		f.err = "date: use YYYY-MM-DD"
		return m, nil
	}
	categoryID := m.categoryID(typ, f.value(txFieldCategory))
	var memo *string
	if s := strings.TrimSpace(f.value(txFieldMemo)); s != "" {
		memo = &s
	}

	api := m.api
	if m.editID == uuid.Nil {
		in := domain.TransactionInput{Type: typ, Amount: amount, CategoryID: categoryID, Date: date, Memo: memo}
		if err := in.Validate(); err != nil {
			f.err = err.Error()
			return m, nil
		}
		f.submitting = true
		return m, func() tea.Msg {
			tx, err := api.CreateTransaction(context.Background(), in)
			return transactionSavedMsg{tx: tx, err: err}
		}
	}

	if memo == nil {
		empty := ""
		memo = &empty
	}
	patch := domain.TransactionPatch{Type: &typ, Amount: &amount, CategoryID: &categoryID, Date: &date, Memo: memo}
	if err := patch.Validate(); err != nil {
		f.err = err.Error()
		return m, nil
	}
	f.submitting = true
	id := m.editID
	return m, func() tea.Msg {
		tx, err := api.UpdateTransaction(context.Background(), id, patch)
		return transactionSavedMsg{tx: tx, err: err}
	}
}

func (m transactionsModel) View() string {
	if m.form != nil {
		return m.form.View()
	}

	var b strings.Builder
	label := "all"
	if m.filter != "" {
		label = strings.ToLower(string(m.filter))
	}
	b.WriteString(" " + dimStyle.Render("showing ") + selectedStyle.Render(label) + "\n\n")

	switch {
	case m.loading && !m.loaded:
		b.WriteString(" " + dimStyle.Render("loading transactions...") + "\n")
		return b.String()
	case m.err != nil:
		b.WriteString(" " + errorStyle.Render("error: "+errorText(m.err)) + "\n")
		b.WriteString("\n " + helpEntry("r", "retry") + "\n")
		return b.String()
	case len(m.transactions) == 0:
		b.WriteString(" " + dimStyle.Render("no transactions yet, press a to add one") + "\n")
		if m.status != "" {
			b.WriteString("\n " + accentStyle.Render(m.status) + "\n")
		}
		return b.String()
	}

	for i, tx := range m.transactions {
		cursor := " "
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
		}
		amount := tx.Amount.Format()
		if tx.Type == domain.TransactionExpense {
			amount = "-" + amount
		}
		memo := ""
		if tx.Memo != nil {
			memo = truncStr(*tx.Memo, 30)
		}
		fmt.Fprintf(&b, " %s %s  %s  %s  %s\n",
			cursor,
			metaStyle.Render(tx.Date.String()),
			normalStyle.Render(padRight(truncStr(tx.CategoryName(), 16), 16)),
			transactionTypeStyle(tx.Type).Render(fmt.Sprintf("%14s", amount)),
			dimStyle.Render(memo),
		)
	}

	if m.confirm {
		b.WriteString("\n" + confirmView("delete this transaction?"))
	} else if m.status != "" {
		b.WriteString("\n " + accentStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m transactionsModel) helpKeys() string {
	if m.form != nil {
		return formHelp()
	}
	return helpBar("j/k", "nav", "t", "filter", "a", "add", "e", "edit", "d", "delete", "r", "refresh", "h", "help", "q", "quit")
}

package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/household/pkg/client"
	"github.com/naveenspark/household/pkg/domain"
)

// -- messages --

type familyLoadedMsg struct {
	group *domain.FamilyGroup
	err   error
}

type familyChangedMsg struct {
	status string
	err    error
}

type familyFormKind int

const (
	familyFormNone familyFormKind = iota
	familyFormCreate
	familyFormMember
)

const (
	memberFieldEmail = iota
	memberFieldRole
)

// -- model --

type familyModel struct {
	api      API
	group    *domain.FamilyGroup
	noGroup  bool // the user belongs to no group yet
	cursor   int
	loading  bool
	loaded   bool
	err      error
	myUserID string

	form     *form
	formKind familyFormKind
	confirm  bool
	status   string
	copy     func(string) error
}

func newFamilyModel(api API, userID string) familyModel {
	return familyModel{api: api, myUserID: userID, copy: clipboard.WriteAll}
}

func (m *familyModel) Init() tea.Cmd {
	m.loading = true
	m.err = nil
	api := m.api
	return func() tea.Msg {
		g, err := api.GetMyFamilyGroup(context.Background())
		return familyLoadedMsg{group: g, err: err}
	}
}

func (m familyModel) editing() bool {
	return m.form != nil || m.confirm
}

func (m familyModel) Update(msg tea.Msg) (familyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case familyLoadedMsg:
		m.loading = false
		switch {
		case client.IsStatus(msg.err, http.StatusNotFound), msg.err == nil && msg.group == nil:
			m.err = nil
			m.loaded = true
			m.noGroup = true
			m.group = nil
		case msg.err != nil:
			m.err = msg.err
		default:
			m.err = nil
			m.loaded = true
			m.noGroup = false
			m.group = msg.group
			if m.cursor >= len(m.group.Members) {
				m.cursor = max(len(m.group.Members)-1, 0)
			}
		}

	case familyChangedMsg:
		if m.form != nil {
			m.form.submitting = false
			if msg.err != nil {
				m.form.err = errorText(msg.err)
				return m, nil
			}
			m.form = nil
			m.formKind = familyFormNone
		} else if msg.err != nil {
			m.status = "failed: " + errorText(msg.err)
			return m, nil
		}
		m.status = msg.status
		cmd := m.Init()
		return m, cmd

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

func (m familyModel) isAdmin() bool {
	return m.group != nil && m.group.IsAdmin(m.myUserID)
}

func (m familyModel) selected() *domain.FamilyMember {
	if m.group == nil || m.cursor < 0 || m.cursor >= len(m.group.Members) {
		return nil
	}
	return &m.group.Members[m.cursor]
}

func (m familyModel) handleKey(msg tea.KeyMsg) (familyModel, tea.Cmd) {
	if m.form != nil {
		switch m.form.update(msg) {
		case formCancel:
			m.form = nil
			m.formKind = familyFormNone
		case formSubmit:
			return m.submit()
		}
		return m, nil
	}

	if m.confirm {
		m.confirm = false
		if msg.String() != "y" {
			return m, nil
		}
		member := m.selected()
		if member == nil {
			return m, nil
		}
		api, groupID, userID := m.api, m.group.ID, member.UserID
		m.status = "removing..."
		return m, func() tea.Msg {
			err := api.RemoveFamilyMember(context.Background(), groupID, userID)
			return familyChangedMsg{status: "member removed", err: err}
		}
	}

	m.status = ""
	switch msg.String() {
	case "j", "down":
		if m.group != nil && m.cursor < len(m.group.Members)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		cmd := m.Init()
		return m, cmd
	case "n":
		if m.noGroup {
			m.formKind = familyFormCreate
			m.form = newForm("new family group", textField("name", "", "e.g. The Parks"))
		}
	case "a":
		if m.group != nil {
			m.formKind = familyFormMember
			m.form = newForm("add member",
				textField("email", "", "name@example.com"),
				choiceField("role", []string{string(domain.RoleMember), string(domain.RoleAdmin)}, string(domain.RoleMember)),
			)
		}
	case "d":
		member := m.selected()
		switch {
		case member == nil:
		case member.Role == domain.RoleAdmin || member.UserID == m.group.AdminUserID:
			m.status = "the group admin cannot be removed"
		default:
			m.confirm = true
		}
	case "c":
		if m.group != nil {
			id := m.group.ID.String()
			cp := m.copy
			return m, func() tea.Msg {
				return copiedMsg{what: "group id", err: cp(id)}
			}
		}
	}
	return m, nil
}

// submit validates the open form and sends it.
func (m familyModel) submit() (familyModel, tea.Cmd) {
	f := m.form
	api := m.api

	switch m.formKind {
	case familyFormCreate:
		in := domain.FamilyGroupInput{Name: strings.TrimSpace(f.value(0))}
		if err := in.Validate(); err != nil {
			f.err = err.Error()
			return m, nil
		}
		f.submitting = true
		return m, func() tea.Msg {
			_, err := api.CreateFamilyGroup(context.Background(), in)
			return familyChangedMsg{status: "group created", err: err}
		}

	case familyFormMember:
		req := domain.AddMemberRequest{
			Email: f.value(memberFieldEmail),
			Role:  domain.FamilyRole(f.value(memberFieldRole)),
		}.Normalize()
		if err := req.Validate(); err != nil {
			f.err = err.Error()
			return m, nil
		}
		f.submitting = true
		groupID := m.group.ID
		return m, func() tea.Msg {
			_, err := api.AddFamilyMember(context.Background(), groupID, req)
			return familyChangedMsg{status: "added " + req.Email, err: err}
		}
	}
	return m, nil
}

func (m familyModel) View() string {
	if m.form != nil {
		return m.form.View()
	}

	var b strings.Builder
	switch {
	case m.loading && !m.loaded:
		b.WriteString(" " + dimStyle.Render("loading family group...") + "\n")
		return b.String()
	case m.err != nil:
		b.WriteString(" " + errorStyle.Render("error: "+errorText(m.err)) + "\n")
		b.WriteString("\n " + helpEntry("r", "retry") + "\n")
		return b.String()
	case m.noGroup:
		b.WriteString("\n " + dimStyle.Render("you are not in a family group yet, press n to create one") + "\n")
		if m.status != "" {
			b.WriteString("\n " + accentStyle.Render(m.status) + "\n")
		}
		return b.String()
	case m.group == nil:
		return b.String()
	}

	g := m.group
	header := " " + selectedStyle.Render(g.Name) + "  " + metaStyle.Render(shortID(g.ID.String()))
	if m.isAdmin() {
		header += "  " + goldStyle.Render("you administer this group")
	}
	b.WriteString(header + "\n\n")
	for i, member := range g.Members {
		cursor := " "
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
		}
		who := member.Email
		if who == "" {
			who = member.UserID
		}
		you := ""
		if member.UserID == m.myUserID {
			you = " " + accentStyle.Render("<- you")
		}
		role := dimStyle.Render(strings.ToLower(string(member.Role)))
		if member.Role == domain.RoleAdmin {
			role = goldStyle.Render("admin")
		}
		fmt.Fprintf(&b, " %s %s  %s%s\n", cursor, normalStyle.Render(padRight(truncStr(who, 36), 36)), role, you)
	}

	if m.confirm {
		if member := m.selected(); member != nil {
			who := member.Email
			if who == "" {
				who = member.UserID
			}
			b.WriteString("\n" + confirmView("remove "+who+" from the group?"))
		}
	} else if m.status != "" {
		b.WriteString("\n " + accentStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m familyModel) helpKeys() string {
	if m.form != nil {
		return formHelp()
	}
	if m.noGroup {
		return helpBar("n", "new group", "r", "refresh", "h", "help", "q", "quit")
	}
	return helpBar("j/k", "nav", "a", "add member", "d", "remove", "c", "copy id", "r", "refresh", "h", "help", "q", "quit")
}

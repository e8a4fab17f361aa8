package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindChoice
)

// formField is one row of a form. Choice fields cycle with left/right.
type formField struct {
	label       string
	kind        fieldKind
	value       string
	placeholder string
	choices     []string
	choice      int
}

func textField(label, value, placeholder string) formField {
	return formField{label: label, kind: kindText, value: value, placeholder: placeholder}
}

func choiceField(label string, choices []string, selected string) formField {
	f := formField{label: label, kind: kindChoice, choices: choices}
	f.selectValue(selected)
	return f
}

func (f *formField) selectValue(v string) {
	for i, c := range f.choices {
		if c == v {
			f.choice = i
			return
		}
	}
	f.choice = 0
}

// current returns the text value or the selected choice.
func (f formField) current() string {
	if f.kind == kindChoice {
		if len(f.choices) == 0 {
			return ""
		}
		return f.choices[f.choice]
	}
	return f.value
}

type formAction int

const (
	formNone formAction = iota
	formSubmit
	formCancel
	formChanged // a choice field moved
)

// form is the inline editor shared by the list views.
type form struct {
	title      string
	fields     []formField
	focus      int
	err        string
	submitting bool
}

func newForm(title string, fields ...formField) *form {
	return &form{title: title, fields: fields}
}

func (f *form) value(i int) string {
	return f.fields[i].current()
}

// update applies a key and reports what the owner should do.
func (f *form) update(msg tea.KeyMsg) formAction {
	if f.submitting {
		return formNone
	}
	field := &f.fields[f.focus]
	key := msg.String()

	switch key {
	case "esc":
		return formCancel
	case "ctrl+s":
		return formSubmit
	case "enter":
		if f.focus == len(f.fields)-1 {
			return formSubmit
		}
		f.focus++
		return formNone
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
		return formNone
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
		return formNone
	}

	if field.kind == kindChoice {
		if len(field.choices) == 0 {
			return formNone
		}
		switch key {
		case "left", "h":
			field.choice = (field.choice - 1 + len(field.choices)) % len(field.choices)
			f.err = ""
			return formChanged
		case "right", "l", " ":
			field.choice = (field.choice + 1) % len(field.choices)
			f.err = ""
			return formChanged
		}
		return formNone
	}

	before := field.value
	field.value = editRune(field.value, key)
	if field.value != before {
		f.err = ""
	}
	return formNone
}

func (f *form) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, " %s\n\n", selectedStyle.Render(f.title))

	for i, field := range f.fields {
		cursor := " "
		style := metaStyle
		if i == f.focus {
			cursor = accentStyle.Render("▸")
			style = selectedStyle
		}
		label := style.Render(padRight(field.label, 10))

		var value string
		switch field.kind {
		case kindChoice:
			cur := field.current()
			if cur == "" {
				cur = dimStyle.Render("(none)")
			}
			value = "‹ " + normalStyle.Render(cur) + " ›"
		default:
			switch {
			case field.value == "" && i != f.focus:
				value = inputPlaceholderStyle.Render(field.placeholder)
			case i == f.focus:
				value = normalStyle.Render(field.value) + accentStyle.Render("█")
			default:
				value = normalStyle.Render(field.value)
			}
		}
		fmt.Fprintf(&b, " %s %s %s\n", cursor, label, value)
	}

	b.WriteString("\n")
	switch {
	case f.submitting:
		b.WriteString(" " + dimStyle.Render("saving...") + "\n")
	case f.err != "":
		b.WriteString(" " + errorStyle.Render(f.err) + "\n")
	}
	return b.String()
}

func formHelp() string {
	return helpBar("tab", "next", "←/→", "choose", "enter", "save", "esc", "cancel")
}

// confirmView renders a y/n prompt.
func confirmView(question string) string {
	return " " + goldStyle.Render(question) + "  " + helpEntry("y", "yes") + "  " + helpEntry("n", "no") + "\n"
}

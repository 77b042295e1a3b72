package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/desertthunder/achieve/internal/tasks"
)

func (m *Model) header() string {
	session := m.tracker.Session()
	switch {
	case m.tracker.Local():
		return styles.help.Render("local storage")
	case session.LoggedIn:
		return styles.help.Render(fmt.Sprintf("logged in as %s (%s)", session.Username, session.AccountType))
	default:
		return styles.help.Render("not logged in")
	}
}

func (m *Model) withHelp(body string, bindings ...key.Binding) string {
	return fmt.Sprintf("%s\n%s\n\n%s", m.header(), body, m.help.ShortHelpView(bindings))
}

func (m *Model) renderMenu() string {
	return m.withHelp(m.menu.View(), m.keys.up, m.keys.down, m.keys.enter, m.keys.quit)
}

func (m *Model) renderCategories() string {
	if len(m.categories.Items()) == 0 {
		return m.withHelp(styles.warn.Render("No categories yet."), m.keys.create, m.keys.back, m.keys.quit)
	}
	return m.withHelp(m.categories.View(), m.keys.enter, m.keys.create, m.keys.delete, m.keys.back, m.keys.quit)
}

func (m *Model) renderCategory() string {
	return m.withHelp(m.achievements.View(), m.keys.enter, m.keys.create, m.keys.delete, m.keys.back, m.keys.quit)
}

func (m *Model) renderAchievement() string {
	a := m.achievement
	title := styles.title.Render(a.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", a.Category)
	if a.Description != "" {
		fmt.Fprintf(&b, "%s\n", a.Description)
	}
	b.WriteString("\n")

	fraction := 0.0
	if a.MaxProg > 0 {
		fraction = float64(m.draft) / float64(a.MaxProg)
	}
	fmt.Fprintf(&b, "%s %d/%d", progressBar(fraction, 30), m.draft, a.MaxProg)
	if m.draft != a.CurrentProg {
		b.WriteString(styles.warn.Render(fmt.Sprintf("  (saved: %d)", a.CurrentProg)))
	}
	b.WriteString("\n\n")

	if a.HasImage() {
		fmt.Fprintf(&b, "Image: %s\n", a.ImageURL)
	} else {
		b.WriteString(styles.help.Render("No image yet") + "\n")
	}

	save := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save"))
	return m.withHelp(title+"\n"+b.String(), m.keys.inc, m.keys.dec, save, m.keys.back, m.keys.quit)
}

func (m *Model) renderForm() string {
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next/submit"))
	return m.withHelp(m.form.view(), m.keys.next, m.keys.prev, submit, m.keys.back)
}

func (m *Model) renderConfirm() string {
	if m.confirm == nil {
		return ""
	}
	return m.withHelp(styles.title.Render(m.confirm.prompt), m.keys.yes, m.keys.no)
}

func (m *Model) renderCascade() string {
	title := styles.title.Render(fmt.Sprintf("Deleting category '%s'", m.category))

	var phase string
	switch m.progress.Phase {
	case tasks.ScanCategory:
		phase = "Scanning category..."
	case tasks.DeleteAchievements:
		fraction := 0.0
		if m.progress.Total > 0 {
			fraction = float64(m.progress.Step) / float64(m.progress.Total)
		}
		phase = fmt.Sprintf("%s %d/%d", progressBar(fraction, 30), m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	message := m.progress.Message
	if m.progress.Err != nil {
		message = styles.err.Render(message)
	}
	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, message)
}

func (m *Model) renderPending() string {
	if len(m.pending.Items()) == 0 {
		return m.withHelp(styles.ok.Render("Every achievement has an image."), m.keys.back, m.keys.quit)
	}
	attach := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "attach image"))
	return m.withHelp(m.pending.View(), attach, m.keys.back, m.keys.quit)
}

func (m *Model) renderResult() string {
	cont := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue"))

	var body string
	if m.message != "" {
		body = styles.ok.Render("✓ " + m.message)
	}
	if m.err != nil {
		if body != "" {
			body += "\n"
		}
		body += styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return m.withHelp(body, cont, m.keys.quit)
}

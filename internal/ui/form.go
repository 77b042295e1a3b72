package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	label string
	input textinput.Model
}

// form is a column of text inputs. Enter advances to the next field and submits on the last one.
type form struct {
	title  string
	fields []field
	focus  int
	back   ViewState
	submit func(values []string) tea.Cmd
}

func newForm(title string, back ViewState, submit func([]string) tea.Cmd, labels ...string) *form {
	f := &form{title: title, back: back, submit: submit}
	for _, label := range labels {
		in := textinput.New()
		in.Prompt = "> "
		in.CharLimit = 256
		in.Width = 50
		f.fields = append(f.fields, field{label: label, input: in})
	}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

// password masks field i.
func (f *form) password(i int) *form {
	f.fields[i].input.EchoMode = textinput.EchoPassword
	f.fields[i].input.EchoCharacter = '•'
	return f
}

func (f *form) placeholder(i int, s string) *form {
	f.fields[i].input.Placeholder = s
	return f
}

func (f *form) set(i int, v string) *form {
	f.fields[i].input.SetValue(v)
	return f
}

func (f *form) values() []string {
	out := make([]string, len(f.fields))
	for i, fl := range f.fields {
		out[i] = strings.TrimSpace(fl.input.Value())
	}
	return out
}

func (f *form) move(delta int) tea.Cmd {
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].input.Focus()
}

// enter moves focus forward, or submits when the last field has focus.
func (f *form) enter() tea.Cmd {
	if f.focus == len(f.fields)-1 {
		return f.submit(f.values())
	}
	return f.move(1)
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(f.title))
	b.WriteString("\n")
	for i, fl := range f.fields {
		label := fl.label
		if i == f.focus {
			label = styles.ok.Render(label)
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, fl.input.View())
	}
	return b.String()
}

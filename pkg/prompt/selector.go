package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type selectorKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	All    key.Binding
	Submit key.Binding
	Quit   key.Binding
}

var selectorKeys = selectorKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle: key.NewBinding(key.WithKeys(" ", "space", "x"), key.WithHelp("space", "toggle")),
	All:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "cancel")),
}

var (
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

// selectorModel is a single or multiple choice list
type selectorModel struct {
	message  string
	choices  []Choice
	multi    bool
	cursor   int
	selected map[int]bool
	warning  string
	done     bool
	aborted  bool
}

func newSelector(message string, choices []Choice, multi bool) selectorModel {
	return selectorModel{
		message:  message,
		choices:  choices,
		multi:    multi,
		selected: map[int]bool{},
	}
}

func (m selectorModel) Init() tea.Cmd {
	return nil
}

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, selectorKeys.Quit):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, selectorKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		} else {
			m.cursor = len(m.choices) - 1
		}
	case key.Matches(keyMsg, selectorKeys.Down):
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}
	case m.multi && key.Matches(keyMsg, selectorKeys.Toggle):
		m.selected[m.cursor] = !m.selected[m.cursor]
		m.warning = ""
	case m.multi && key.Matches(keyMsg, selectorKeys.All):
		all := len(m.values()) < len(m.choices)
		for i := range m.choices {
			m.selected[i] = all
		}
		m.warning = ""
	case key.Matches(keyMsg, selectorKeys.Submit):
		if m.multi && len(m.values()) == 0 {
			m.warning = "Select at least one option"
			return m, nil
		}
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// values returns the chosen values in choice order
func (m selectorModel) values() []string {
	if !m.multi {
		if len(m.choices) == 0 {
			return nil
		}
		return []string{m.choices[m.cursor].Value}
	}
	var values []string
	for i, c := range m.choices {
		if m.selected[i] {
			values = append(values, c.Value)
		}
	}
	return values
}

func (m selectorModel) View() string {
	var b strings.Builder

	if m.done || m.aborted {
		b.WriteString(questionStyle.Render("? " + m.message))
		if m.done {
			b.WriteString(" " + answerStyle.Render(strings.Join(m.values(), ", ")))
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(questionStyle.Render("? " + m.message))
	b.WriteString("\n")

	for i, c := range m.choices {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("❯ ")
		}
		box := ""
		if m.multi {
			box = "◯ "
			if m.selected[i] {
				box = cursorStyle.Render("◉ ")
			}
		}
		label := c.Label
		if i == m.cursor {
			label = cursorStyle.Render(label)
		}
		b.WriteString(pointer + box + label + "\n")
	}

	if m.warning != "" {
		b.WriteString(warnStyle.Render(m.warning) + "\n")
	}

	help := []key.Binding{selectorKeys.Up, selectorKeys.Down}
	if m.multi {
		help = append(help, selectorKeys.Toggle, selectorKeys.All)
	}
	help = append(help, selectorKeys.Submit, selectorKeys.Quit)

	var parts []string
	for _, h := range help {
		parts = append(parts, h.Help().Key+" "+h.Help().Desc)
	}
	b.WriteString(hintStyle.Render(strings.Join(parts, " • ")) + "\n")

	return b.String()
}

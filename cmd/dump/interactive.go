package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/constinit/ir"
)

var (
	browserTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	leafStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	aggStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	browserHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))
)

// node is one entry in the browser: a labeled constant at some depth of the
// initializer tree.
type node struct {
	label string
	value ir.Constant
}

type browserModel struct {
	global *ir.Global
	stack  []node // path from the root initializer to the open aggregate
	items  []node // children of the open aggregate
	cursor int
}

func newBrowserModel(gv *ir.Global) *browserModel {
	root := node{label: gv.Name(), value: gv.Init()}
	m := &browserModel{global: gv}
	m.open(root)
	return m
}

// open descends into an aggregate node and lists its children.
func (m *browserModel) open(n node) {
	m.stack = append(m.stack, n)
	m.items = childNodes(n.value)
	m.cursor = 0
}

// up pops back to the parent aggregate.
func (m *browserModel) up() {
	if len(m.stack) <= 1 {
		return
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.items = childNodes(m.stack[len(m.stack)-1].value)
	m.cursor = 0
}

func childNodes(c ir.Constant) []node {
	switch v := c.(type) {
	case *ir.Array:
		items := make([]node, len(v.Elems))
		for i, e := range v.Elems {
			items[i] = node{label: fmt.Sprintf("[%d]", i), value: e}
		}
		return items
	case *ir.Struct:
		items := make([]node, len(v.Fields))
		for i, f := range v.Fields {
			items[i] = node{label: fmt.Sprintf(".%d", i), value: f}
		}
		return items
	}
	return nil
}

func isAggregate(c ir.Constant) bool {
	switch c.(type) {
	case *ir.Array, *ir.Struct:
		return true
	}
	return false
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", "right", "l":
		if m.cursor < len(m.items) && isAggregate(m.items[m.cursor].value) {
			m.open(m.items[m.cursor])
		}
	case "esc", "backspace", "left", "h":
		m.up()
	}
	return m, nil
}

func (m *browserModel) View() string {
	var b strings.Builder

	path := make([]string, len(m.stack))
	for i, n := range m.stack {
		path[i] = n.label
	}
	b.WriteString(browserTitleStyle.Render(strings.Join(path, " › ")))
	b.WriteString("\n\n")

	cur := m.stack[len(m.stack)-1]
	b.WriteString(aggStyle.Render(cur.value.Type().String()))
	b.WriteString("\n\n")

	for i, item := range m.items {
		line := item.label + "  "
		if isAggregate(item.value) {
			line += aggStyle.Render(item.value.Type().String()) + " …"
		} else {
			line += leafStyle.Render(item.value.String())
		}
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(m.items) == 0 {
		b.WriteString(browserHelpStyle.Render("  (no elements)"))
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(browserHelpStyle.Render("↑/↓ move · enter descend · esc back · q quit"))
	b.WriteString("\n")
	return b.String()
}

func runInteractive(gv *ir.Global) error {
	if gv.Init() == nil {
		return fmt.Errorf("global %s has no initializer", gv.Name())
	}
	_, err := tea.NewProgram(newBrowserModel(gv), tea.WithAltScreen()).Run()
	return err
}

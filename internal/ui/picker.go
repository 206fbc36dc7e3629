package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// PickerItem is one entry shown in the interactive picker.
type PickerItem struct {
	Label    string // primary text (e.g. scenario name)
	SubLabel string // secondary text shown dimmed (e.g. description)
	Value    string // value returned on selection (may differ from Label)
}

// pickerModel is the Bubble Tea model for the interactive list picker.
// Typing narrows the list to items whose label contains the filter.
type pickerModel struct {
	title    string
	items    []PickerItem
	filter   string
	visible  []int // indices into items
	cursor   int
	selected *PickerItem
	quitting bool
}

func newPickerModel(title string, items []PickerItem) pickerModel {
	m := pickerModel{title: title, items: items}
	m.refilter()
	return m
}

func (m *pickerModel) refilter() {
	m.visible = m.visible[:0]
	needle := strings.ToLower(m.filter)
	for i, item := range m.items {
		if needle == "" || strings.Contains(strings.ToLower(item.Label), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if len(m.visible) > 0 {
			item := m.items[m.visible[m.cursor]]
			m.selected = &item
			return m, tea.Quit
		}
	case tea.KeyBackspace:
		if m.filter != "" {
			r := []rune(m.filter)
			m.filter = string(r[:len(r)-1])
			m.refilter()
		}
	case tea.KeyRunes:
		m.filter += string(key.Runes)
		m.refilter()
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(StyleTitle.Render("  "+m.title) + "\n")
	sb.WriteString(StyleMeta.Render("  filter: ") + StyleValue.Render(m.filter) + "\n\n")

	for pos, idx := range m.visible {
		item := m.items[idx]
		prefix := "    "
		if pos == m.cursor {
			prefix = "  ▸ "
		}

		line := prefix + StyleValue.Render(item.Label)
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}

		if pos == m.cursor {
			sb.WriteString(StyleSelected.Render(line) + "\n")
		} else {
			sb.WriteString(line + "\n")
		}
	}
	if len(m.visible) == 0 {
		sb.WriteString(StyleMeta.Render("    no matches") + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(StyleMeta.Render("  [ ↑↓ ] navigate   [ type ] filter   [ Enter ] select   [ Esc ] cancel") + "\n")
	return sb.String()
}

// PickItem runs an interactive list picker and returns the selected item's Value.
// Returns ("", nil) if the user cancels. Returns an error only on TUI failure.
func PickItem(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to pick from")
	}

	p := tea.NewProgram(newPickerModel(title, items), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}

	fm := final.(pickerModel)
	if fm.quitting || fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}

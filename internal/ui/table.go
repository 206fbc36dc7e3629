package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. Width 0 sizes the column to its content.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // selected row index (-1 = none)
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// widths resolves auto-sized columns against the current rows.
func (t *Table) widths() []int {
	out := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		if col.Width > 0 {
			out[i] = col.Width
			continue
		}
		w := utf8.RuneCountInString(col.Title)
		for _, row := range t.Rows {
			if i < len(row) {
				w = max(w, utf8.RuneCountInString(row[i]))
			}
		}
		out[i] = w
	}
	return out
}

// Render returns the full table as a string.
// Cells are padded by hand to exact column widths; lipgloss Width plus
// padding wraps content that fills the column.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)
	widths := t.widths()

	var headers []string
	for i, col := range t.Columns {
		headers = append(headers, headerStyle.Render(padR(col.Title, widths[i])))
	}
	sb.WriteString(strings.Join(headers, " "))
	sb.WriteString("\n")

	var divParts []string
	for _, w := range widths {
		divParts = append(divParts, StyleDim.Render(strings.Repeat("-", w)))
	}
	sb.WriteString(strings.Join(divParts, " "))
	sb.WriteString("\n")

	for i, row := range t.Rows {
		var cells []string
		for j := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			if i == t.SelIdx {
				cells = append(cells, StyleSelected.Render(padR(val, widths[j])))
			} else {
				cells = append(cells, cellStyle.Render(padR(val, widths[j])))
			}
		}
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

// KeyValueBlock renders a set of key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-20s", p[0]+":"))
		val := StyleValue.Render(p[1])
		sb.WriteString("  " + key + " " + val + "\n")
	}
	return StyleBorder.Render(sb.String())
}

// padR left-aligns s within exactly n runes, truncating with … if needed.
func padR(s string, n int) string {
	if n <= 0 {
		return ""
	}
	l := utf8.RuneCountInString(s)
	if l > n {
		r := []rune(s)
		if n == 1 {
			return string(r[:1])
		}
		return string(r[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-l)
}

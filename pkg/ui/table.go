package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Align is a column alignment
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// TableColumn describes one column. MaxWidth > 0 shortens longer cells
// by cutting out their middle, which keeps both ends of a path visible.
type TableColumn struct {
	Header   string
	MaxWidth int
	Align    Align
}

// Table is a plain text table with styled header and alternating rows
type Table struct {
	Columns []TableColumn
	Rows    [][]string
}

func NewTable(columns ...TableColumn) *Table {
	return &Table{Columns: columns}
}

// AddRow appends a row; missing cells render empty and extra cells are dropped
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Columns))
	for i := range row {
		if i < len(cells) {
			row[i] = Shorten(cells[i], t.Columns[i].MaxWidth)
		}
	}
	t.Rows = append(t.Rows, row)
}

// Render lays the table out using display widths, so course names and
// paths with non-ASCII characters line up
func (t *Table) Render() string {
	if len(t.Columns) == 0 {
		return ""
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = lipgloss.Width(col.Header)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder

	header := make([]string, len(t.Columns))
	rule := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = pad(col.Header, widths[i], AlignLeft)
		rule[i] = strings.Repeat("─", widths[i])
	}
	b.WriteString(StyleTableHeader.Render(strings.Join(header, "  ")))
	b.WriteString("\n")
	b.WriteString(StyleTableBorder.Render(strings.Join(rule, "  ")))
	b.WriteString("\n")

	for idx, row := range t.Rows {
		parts := make([]string, len(row))
		for i, cell := range row {
			parts[i] = pad(cell, widths[i], t.Columns[i].Align)
		}
		style := StyleTableRow
		if idx%2 == 1 {
			style = StyleTableRowAlt
		}
		b.WriteString(style.Render(strings.TrimRight(strings.Join(parts, "  "), " ")))
		b.WriteString("\n")
	}

	return b.String()
}

func pad(s string, width int, align Align) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if align == AlignRight {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// Shorten cuts the middle of s so it is at most limit runes wide
func Shorten(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	keep := limit - 1
	head := keep / 2
	tail := keep - head
	return string(r[:head]) + "…" + string(r[len(r)-tail:])
}

// RenderSimpleList renders a bulleted list
func RenderSimpleList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(StyleInfo.Render("  • "))
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderKeyValue renders "key: value" with an accented key
func RenderKeyValue(key, value string) string {
	return fmt.Sprintf("%s: %s", StyleAccent.Render(key), value)
}

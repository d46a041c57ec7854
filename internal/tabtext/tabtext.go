// Package tabtext renders tabular data as aligned plain text for tool
// output consumed by MCP clients.
package tabtext

import (
	"strings"
	"unicode/utf8"
)

// Render formats columns and rows as an aligned text table:
//
//	name | type    | nullable
//	-----+---------+---------
//	id   | integer | false
//
// Column widths are the maximum cell width per column. Rows shorter than
// the header are padded with empty cells.
func Render(columns []string, rows [][]string) string {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	writeRow(&sb, columns, widths)
	writeSeparator(&sb, widths)
	for _, row := range rows {
		cells := row
		if len(cells) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, cells)
			cells = padded
		}
		writeRow(&sb, cells, widths)
	}
	return sb.String()
}

// RenderList formats a single-column table.
func RenderList(column string, values []string) string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return Render([]string{column}, rows)
}

func writeRow(sb *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(cell)
		// No trailing padding on the last column.
		if i < len(cells)-1 {
			sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
		}
	}
	sb.WriteByte('\n')
}

func writeSeparator(sb *strings.Builder, widths []int) {
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("-+-")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteByte('\n')
}

package pgxplore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgxplore/pgxplore/internal/tabtext"
)

// Rendering of structured results as plain-text tables for tool output.

// renderRowSet renders an ExecResult row set as a text table with a
// psql-style row count footer.
func renderRowSet(result *ExecResult) string {
	if len(result.Rows) == 0 {
		return fmt.Sprintf("Query returned no rows.\n\nColumns: %s", strings.Join(result.Columns, ", "))
	}

	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatValue(v)
		}
		rows[i] = cells
	}
	table := strings.TrimRight(tabtext.Render(result.Columns, rows), "\n")
	return fmt.Sprintf("%s\n(%d row(s))", table, len(result.Rows))
}

// renderList renders a one-column text table.
func renderList(column string, values []string) string {
	return tabtext.RenderList(column, values)
}

// renderColumns renders ListColumns output.
func renderColumns(columns []ColumnInfo) string {
	rows := make([][]string, len(columns))
	for i, col := range columns {
		def := "null"
		if col.Default != nil {
			def = *col.Default
		}
		rows[i] = []string{col.Name, col.Type, strconv.FormatBool(col.Nullable), def}
	}
	return tabtext.Render([]string{"name", "type", "nullable", "default"}, rows)
}

// renderIndexes renders ListIndexes output.
func renderIndexes(indexes []IndexInfo) string {
	rows := make([][]string, len(indexes))
	for i, idx := range indexes {
		rows[i] = []string{idx.Name, strings.Join(idx.Columns, ", "), strconv.FormatBool(idx.Unique), idx.Definition}
	}
	return tabtext.Render([]string{"name", "columns", "unique", "definition"}, rows)
}

// renderForeignKeys renders ListForeignKeys output.
func renderForeignKeys(fks []ForeignKeyInfo) string {
	rows := make([][]string, len(fks))
	for i, fk := range fks {
		rows[i] = []string{
			fk.Name,
			strings.Join(fk.ConstrainedColumns, ", "),
			fk.ReferredSchema,
			fk.ReferredTable,
			strings.Join(fk.ReferredColumns, ", "),
			fk.OnUpdate,
			fk.OnDelete,
		}
	}
	return tabtext.Render(
		[]string{"name", "constrained_columns", "referred_schema", "referred_table", "referred_columns", "on_update", "on_delete"},
		rows,
	)
}

// formatValue renders a single converted result value as text.
// Values have already been through convertValue, so the remaining types
// are nil, string, bool, numerics, and JSONB maps/arrays.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}

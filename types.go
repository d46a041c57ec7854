package pgxplore

// Category is the caller-declared statement category. It selects the
// result-shape contract of Execute: Query produces a row set, everything
// else produces an affected-row count.
type Category int

const (
	// CategoryQuery is DQL: SELECT, SHOW, EXPLAIN and similar.
	CategoryQuery Category = iota + 1
	// CategoryMutation is DML: INSERT, UPDATE, DELETE, MERGE.
	CategoryMutation
	// CategoryDefinition is DDL: CREATE, ALTER, DROP and similar.
	CategoryDefinition
	// CategoryControl is DCL: GRANT, REVOKE, role management.
	CategoryControl
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryQuery:
		return "query"
	case CategoryMutation:
		return "mutation"
	case CategoryDefinition:
		return "definition"
	case CategoryControl:
		return "control"
	default:
		return "invalid"
	}
}

func (c Category) valid() bool {
	switch c {
	case CategoryQuery, CategoryMutation, CategoryDefinition, CategoryControl:
		return true
	}
	return false
}

// ExecuteInput is the input for Execute.
type ExecuteInput struct {
	SQL      string   `json:"sql"`
	Category Category `json:"category"`
}

// ResultKind tags which variant of ExecResult is populated.
type ResultKind int

const (
	// ResultRows means Columns and Rows are populated.
	ResultRows ResultKind = iota + 1
	// ResultCount means RowsAffected is populated.
	ResultCount
)

// ExecResult is the outcome of a successful Execute call. Exactly one
// variant is populated depending on Kind. For ResultRows, every row has
// len(Columns) values, including the zero-row case where Columns is
// still populated.
type ExecResult struct {
	Kind         ResultKind `json:"kind"`
	Columns      []string   `json:"columns,omitempty"`
	Rows         [][]any    `json:"rows,omitempty"`
	RowsAffected int64      `json:"rows_affected,omitempty"`
}

// ColumnInfo describes a single column of a table.
type ColumnInfo struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default"` // nil when the column has no default
}

// IndexInfo describes a single index on a table.
type IndexInfo struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	Unique     bool     `json:"unique"`
	Definition string   `json:"definition"`
}

// ForeignKeyInfo describes a single foreign key constraint.
type ForeignKeyInfo struct {
	Name               string   `json:"name"`
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredSchema     string   `json:"referred_schema"`
	ReferredTable      string   `json:"referred_table"`
	ReferredColumns    []string `json:"referred_columns"`
	OnUpdate           string   `json:"on_update"`
	OnDelete           string   `json:"on_delete"`
}

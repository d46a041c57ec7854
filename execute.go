package pgxplore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/netip"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgxplore/pgxplore/internal/category"
)

// Execute runs a single SQL statement inside an explicit transaction and
// returns a structured result shaped by the declared category: a row set
// for CategoryQuery, an affected-row count for everything else.
//
// The statement is executed verbatim, with no rewriting and no parameter
// substitution. When QueryConfig.VerifyCategory is enabled, the statement
// is parsed and rejected if it does not match the declared category;
// otherwise the declaration is trusted.
//
// The transaction commits on success and is rolled back on any failure,
// including context cancellation, so no partial effect survives. The
// rollback never masks the original error. The connection is released on
// all exit paths.
func (e *Explorer) Execute(ctx context.Context, input ExecuteInput) (*ExecResult, error) {
	startTime := time.Now()
	sql := input.SQL

	if !input.Category.valid() {
		return nil, fmt.Errorf("invalid category: must be one of query, mutation, definition, control")
	}

	release, err := e.acquireSlot(ctx, "Execute")
	if err != nil {
		return nil, err
	}
	defer release()

	if len(sql) > e.config.Query.MaxSQLLength {
		return nil, fmt.Errorf("SQL statement too long: %d bytes exceeds maximum of %d bytes", len(sql), e.config.Query.MaxSQLLength)
	}

	if e.config.Query.VerifyCategory {
		if err := category.Verify(sql, categoryKind(input.Category)); err != nil {
			return nil, e.logExecError(&ExecError{Kind: ExecErrCategoryMismatch, Err: err})
		}
	}

	stmtTimeout, timeoutRule := e.timeoutMgr.GetTimeoutWithPattern(sql)
	queryCtx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()

	conn, err := e.pool.Acquire(queryCtx)
	if err != nil {
		return nil, e.logExecError(&ConnectionError{Err: fmt.Errorf("failed to acquire connection: %w", err)})
	}
	defer conn.Release()

	tx, err := conn.Begin(queryCtx)
	if err != nil {
		return nil, e.logExecError(&ExecError{Kind: ExecErrSQL, Err: fmt.Errorf("failed to begin transaction: %w", err)})
	}
	// Use parent ctx, not queryCtx: if the statement timed out, queryCtx
	// is cancelled and rollback would fail. No-op after a successful commit.
	defer tx.Rollback(ctx)

	var result *ExecResult
	switch input.Category {
	case CategoryQuery:
		rows, err := tx.Query(queryCtx, sql)
		if err != nil {
			return nil, e.logExecError(&ExecError{Kind: ExecErrSQL, Err: err})
		}
		result, err = collectRows(rows)
		if err != nil {
			return nil, e.logExecError(&ExecError{Kind: ExecErrSQL, Err: err})
		}
	default:
		tag, err := tx.Exec(queryCtx, sql)
		if err != nil {
			return nil, e.logExecError(&ExecError{Kind: ExecErrSQL, Err: err})
		}
		result = &ExecResult{Kind: ResultCount, RowsAffected: tag.RowsAffected()}
	}

	// Commit uses queryCtx intentionally; the whole call completes
	// within the statement timeout. Reads commit too: no side effect to
	// preserve, but one code path for all categories.
	if err := tx.Commit(queryCtx); err != nil {
		return nil, e.logExecError(&ExecError{Kind: ExecErrSQL, Err: fmt.Errorf("commit failed: %w", err)})
	}

	if result.Kind == ResultRows {
		if e.redactor.HasRules() {
			result.Rows = e.redactor.RedactRows(result.Rows)
		}
		if err := e.checkResultLength(result); err != nil {
			return nil, e.logExecError(err)
		}
	}

	logEvent := e.logger.Info().
		Str("category", input.Category.String()).
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", time.Since(startTime))
	if result.Kind == ResultRows {
		logEvent = logEvent.Int("row_count", len(result.Rows))
	} else {
		logEvent = logEvent.Int64("rows_affected", result.RowsAffected)
	}
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	logEvent.Msg("statement executed")

	return result, nil
}

// categoryKind maps the public Category to the classifier's Kind.
func categoryKind(c Category) category.Kind {
	switch c {
	case CategoryQuery:
		return category.Query
	case CategoryMutation:
		return category.Mutation
	case CategoryDefinition:
		return category.Definition
	case CategoryControl:
		return category.Control
	default:
		return category.Unknown
	}
}

// logExecError logs the failure and returns it unchanged so callers can
// branch on the typed error.
func (e *Explorer) logExecError(err error) error {
	logEvent := e.logger.Error().Err(err)
	if patterns := e.hints.MatchedPatterns(err.Error()); len(patterns) > 0 {
		logEvent = logEvent.Strs("error_hints", patterns)
	}
	logEvent.Msg("statement failed")
	return err
}

// ErrorText renders an error for tool output, appending any configured
// guidance hints that match the error message.
func (e *Explorer) ErrorText(err error) string {
	msg := err.Error()
	if hint := e.hints.Match(msg); hint != "" {
		msg = msg + "\n\n" + hint
	}
	return msg
}

// checkResultLength rejects results whose JSON form exceeds
// MaxResultLength characters.
func (e *Explorer) checkResultLength(result *ExecResult) error {
	jsonBytes, _ := json.Marshal(result.Rows)
	if utf8.RuneCount(jsonBytes) <= e.config.Query.MaxResultLength {
		return nil
	}
	return &ExecError{
		Kind: ExecErrResultTooLong,
		Err:  fmt.Errorf("result is too long (%d chars exceeds maximum of %d): add limits to your query", utf8.RuneCount(jsonBytes), e.config.Query.MaxResultLength),
	}
}

// collectRows materializes all rows into an ExecResult with ordered
// column names and ordered value tuples. Columns are populated even for
// zero-row results.
func collectRows(rows pgx.Rows) (*ExecResult, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make([]any, len(columns))
		for i := range columns {
			row[i] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ExecResult{Kind: ResultRows, Columns: columns, Rows: resultRows}, nil
}

// convertValue converts a pgx-returned value to a plain, render-friendly
// Go type.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		return convertFloat(float64(val))
	case float64:
		return convertFloat(val)
	case netip.Prefix:
		return val.String()
	case net.HardwareAddr:
		return val.String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.NaN {
			return "NaN"
		}
		if val.InfinityModifier == pgtype.Infinity {
			return "Infinity"
		}
		if val.InfinityModifier == pgtype.NegativeInfinity {
			return "-Infinity"
		}
		b, err := val.MarshalJSON()
		if err != nil {
			return nil
		}
		return string(b)
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		us := val.Microseconds
		hours := us / 3_600_000_000
		us -= hours * 3_600_000_000
		minutes := us / 60_000_000
		us -= minutes * 60_000_000
		seconds := us / 1_000_000
		us -= seconds * 1_000_000
		if us > 0 {
			return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, us)
		}
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		return formatInterval(val)
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []byte:
		// bytea, base64 encoded
		return base64.StdEncoding.EncodeToString(val)
	case string:
		return val
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, inner := range val {
			result[k] = convertValue(inner)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, inner := range val {
			result[i] = convertValue(inner)
		}
		return result
	default:
		return val
	}
}

func convertFloat(f float64) any {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return f
}

func formatInterval(val pgtype.Interval) string {
	parts := []string{}
	if val.Months != 0 {
		years := val.Months / 12
		months := val.Months % 12
		if years != 0 {
			parts = append(parts, fmt.Sprintf("%d year(s)", years))
		}
		if months != 0 {
			parts = append(parts, fmt.Sprintf("%d mon(s)", months))
		}
	}
	if val.Days != 0 {
		parts = append(parts, fmt.Sprintf("%d day(s)", val.Days))
	}
	if val.Microseconds != 0 {
		dur := time.Duration(val.Microseconds) * time.Microsecond
		parts = append(parts, dur.String())
	}
	if len(parts) == 0 {
		return "0"
	}
	result := parts[0]
	for _, p := range parts[1:] {
		result += " " + p
	}
	return result
}

// truncateForLog truncates a string for log output to avoid oversized
// log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}

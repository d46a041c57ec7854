package pgxplore

import "fmt"

// ConnectionError wraps a failure to establish the pool or acquire a
// connection from it. Fatal to the individual call, not to the process.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotFoundError reports that an inspected schema or table does not exist.
type NotFoundError struct {
	Object string // "schema" or "table"
	Schema string
	Table  string
}

func (e *NotFoundError) Error() string {
	if e.Object == "table" {
		return fmt.Sprintf("table %q does not exist in schema %q", e.Table, e.Schema)
	}
	return fmt.Sprintf("schema %q does not exist", e.Schema)
}

// ExecErrorKind distinguishes the failure modes of Execute.
type ExecErrorKind int

const (
	// ExecErrSQL means the database rejected the statement. The
	// transaction was rolled back and the original database message is
	// preserved in Err.
	ExecErrSQL ExecErrorKind = iota + 1
	// ExecErrCategoryMismatch means the declared category does not match
	// the parsed statement (only raised when verification is enabled).
	ExecErrCategoryMismatch
	// ExecErrResultTooLong means the materialized result exceeded the
	// configured maximum length.
	ExecErrResultTooLong
)

// ExecError wraps a failure inside the transactional gateway.
type ExecError struct {
	Kind ExecErrorKind
	Err  error
}

func (e *ExecError) Error() string {
	switch e.Kind {
	case ExecErrCategoryMismatch:
		return fmt.Sprintf("category mismatch: %v", e.Err)
	case ExecErrResultTooLong:
		return e.Err.Error()
	default:
		return e.Err.Error()
	}
}

func (e *ExecError) Unwrap() error { return e.Err }

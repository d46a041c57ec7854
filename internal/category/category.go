// Package category classifies SQL statements into the four coarse
// statement categories (DQL, DML, DDL, DCL) using PostgreSQL's actual
// C parser via pg_query, and verifies a caller-declared category
// against the parsed statement.
package category

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Kind is a coarse statement category.
type Kind int

const (
	// Unknown means the statement parsed but does not fall into any of
	// the four categories (e.g. SET, VACUUM, transaction control).
	// Unknown statements pass verification under any declared category.
	Unknown Kind = iota
	// Query covers row-returning statements: SELECT, EXPLAIN, SHOW.
	Query
	// Mutation covers DML: INSERT, UPDATE, DELETE, MERGE.
	Mutation
	// Definition covers DDL: CREATE/ALTER/DROP and friends.
	Definition
	// Control covers DCL: GRANT, REVOKE, role management.
	Control
)

// String returns the lowercase category name.
func (k Kind) String() string {
	switch k {
	case Query:
		return "query"
	case Mutation:
		return "mutation"
	case Definition:
		return "definition"
	case Control:
		return "control"
	default:
		return "unknown"
	}
}

// Classify parses sql and returns the category of the first statement.
// Returns an error if the SQL does not parse, is empty, or contains
// more than one statement.
func Classify(sql string) (Kind, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return Unknown, fmt.Errorf("SQL parse error: %w", err)
	}
	if len(result.Stmts) == 0 {
		return Unknown, fmt.Errorf("SQL parse error: empty statement")
	}
	if len(result.Stmts) > 1 {
		return Unknown, fmt.Errorf("multi-statement input is not allowed: found %d statements", len(result.Stmts))
	}
	return classifyNode(result.Stmts[0].Stmt), nil
}

// Verify checks that the statement in sql matches the declared category.
// Statements that classify as Unknown are accepted under any category.
func Verify(sql string, declared Kind) error {
	actual, err := Classify(sql)
	if err != nil {
		return err
	}
	if actual == Unknown || actual == declared {
		return nil
	}
	return fmt.Errorf("declared category %q does not match statement category %q", declared, actual)
}

func classifyNode(node *pg_query.Node) Kind {
	if node == nil {
		return Unknown
	}

	switch node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return Query
	case *pg_query.Node_ExplainStmt:
		return Query
	case *pg_query.Node_VariableShowStmt:
		return Query

	case *pg_query.Node_InsertStmt:
		return Mutation
	case *pg_query.Node_UpdateStmt:
		return Mutation
	case *pg_query.Node_DeleteStmt:
		return Mutation
	case *pg_query.Node_MergeStmt:
		return Mutation
	case *pg_query.Node_CopyStmt:
		return Mutation

	case *pg_query.Node_CreateStmt,
		*pg_query.Node_CreateTableAsStmt,
		*pg_query.Node_CreateSchemaStmt,
		*pg_query.Node_CreateSeqStmt,
		*pg_query.Node_CreateFunctionStmt,
		*pg_query.Node_CreateTrigStmt,
		*pg_query.Node_CreateExtensionStmt,
		*pg_query.Node_ViewStmt,
		*pg_query.Node_IndexStmt,
		*pg_query.Node_RuleStmt,
		*pg_query.Node_AlterTableStmt,
		*pg_query.Node_AlterSeqStmt,
		*pg_query.Node_AlterSystemStmt,
		*pg_query.Node_AlterExtensionStmt,
		*pg_query.Node_AlterExtensionContentsStmt,
		*pg_query.Node_RenameStmt,
		*pg_query.Node_CommentStmt,
		*pg_query.Node_TruncateStmt,
		*pg_query.Node_RefreshMatViewStmt:
		return Definition

	case *pg_query.Node_DropStmt:
		return Definition
	case *pg_query.Node_DropdbStmt:
		return Definition

	case *pg_query.Node_GrantStmt:
		return Control
	case *pg_query.Node_GrantRoleStmt:
		return Control
	case *pg_query.Node_CreateRoleStmt:
		return Control
	case *pg_query.Node_AlterRoleStmt:
		return Control
	case *pg_query.Node_AlterRoleSetStmt:
		return Control
	case *pg_query.Node_DropRoleStmt:
		return Control

	default:
		return Unknown
	}
}

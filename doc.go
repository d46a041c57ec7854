// Package pgxplore exposes PostgreSQL schema inspection and categorized
// statement execution to AI agents through the Model Context Protocol
// (MCP).
//
// It provides nine tools: five read-only inspection tools
// (get_schema_names, get_tables, get_columns, get_indexes,
// get_foreign_keys) and four statement-execution tools dispatched on a
// caller-declared category (run_dql_query, run_dml_query, run_ddl_query,
// run_dcl_query). Every execution runs inside an explicit transaction
// that commits on success and rolls back on any failure, so no partial
// effect ever survives a failed call.
//
// The declared category selects the result-shape contract (a row set
// for DQL, an affected-row count for the rest) and is trusted by
// default. Setting QueryConfig.VerifyCategory parses each statement with
// PostgreSQL's actual C parser (via pg_query) and rejects statements
// whose parsed category does not match the declaration.
//
// # Library Usage
//
//	e, err := pgxplore.New(ctx, connString, pgxplore.Config{
//		Pool: pgxplore.PoolConfig{MaxConns: 10},
//		Query: pgxplore.QueryConfig{
//			DefaultTimeoutSeconds: 30,
//			InspectTimeoutSeconds: 10,
//			VerifyCategory:        true,
//		},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer e.Close(ctx)
//
//	// Use directly
//	result, err := e.Execute(ctx, pgxplore.ExecuteInput{
//		SQL:      "SELECT * FROM users LIMIT 10",
//		Category: pgxplore.CategoryQuery,
//	})
//
//	// Or register as MCP tools
//	pgxplore.RegisterMCPTools(mcpServer, e)
package pgxplore

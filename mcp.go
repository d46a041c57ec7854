package pgxplore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the explorer tool surface on the given MCP
// server: five read-only inspection tools and four categorized
// statement-execution tools. All outputs are rendered as plain text so
// any MCP client can display them without understanding a schema.
func RegisterMCPTools(mcpServer *server.MCPServer, explorer *Explorer) {
	registerInspectionTools(mcpServer, explorer)
	registerExecutionTools(mcpServer, explorer)
}

func registerInspectionTools(mcpServer *server.MCPServer, explorer *Explorer) {
	// get_schema_names tool
	schemaNamesTool := mcp.NewTool("get_schema_names",
		mcp.WithDescription("List all schema names in the database."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(schemaNamesTool, explorer.loggedToolHandler("get_schema_names", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schemas, err := explorer.ListSchemas(ctx)
		if err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		if len(schemas) == 0 {
			return mcp.NewToolResultText("No schemas found."), nil
		}
		return mcp.NewToolResultText(renderList("schema", schemas)), nil
	}))

	// get_tables tool
	tablesTool := mcp.NewTool("get_tables",
		mcp.WithDescription("List all tables in a schema."),
		mcp.WithString("schema",
			mcp.Description("The schema to list tables from (defaults to 'public')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(tablesTool, explorer.loggedToolHandler("get_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema := req.GetString("schema", "public")
		tables, err := explorer.ListTables(ctx, schema)
		if err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		if len(tables) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No tables found in schema %q.", schema)), nil
		}
		return mcp.NewToolResultText(renderList("table", tables)), nil
	}))

	// get_columns tool
	columnsTool := mcp.NewTool("get_columns",
		mcp.WithDescription("List the columns of a table: name, type, nullability, and default."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table to list columns from"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema of the table (defaults to 'public')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(columnsTool, explorer.loggedToolHandler("get_columns", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table parameter is required"), nil
		}
		schema := req.GetString("schema", "public")

		columns, err := explorer.ListColumns(ctx, schema, table)
		if err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		if len(columns) == 0 {
			return mcp.NewToolResultText("No columns found in table."), nil
		}
		return mcp.NewToolResultText(renderColumns(columns)), nil
	}))

	// get_indexes tool
	indexesTool := mcp.NewTool("get_indexes",
		mcp.WithDescription("List the indexes of a table: name, columns, uniqueness, and definition."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table to list indexes from"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema of the table (defaults to 'public')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(indexesTool, explorer.loggedToolHandler("get_indexes", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table parameter is required"), nil
		}
		schema := req.GetString("schema", "public")

		indexes, err := explorer.ListIndexes(ctx, schema, table)
		if err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		if len(indexes) == 0 {
			return mcp.NewToolResultText("No indexes found in table."), nil
		}
		return mcp.NewToolResultText(renderIndexes(indexes)), nil
	}))

	// get_foreign_keys tool
	fksTool := mcp.NewTool("get_foreign_keys",
		mcp.WithDescription("List the foreign keys of a table: constrained columns and the referred schema/table/columns."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table to list foreign keys from"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema of the table (defaults to 'public')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(fksTool, explorer.loggedToolHandler("get_foreign_keys", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table parameter is required"), nil
		}
		schema := req.GetString("schema", "public")

		fks, err := explorer.ListForeignKeys(ctx, schema, table)
		if err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		if len(fks) == 0 {
			return mcp.NewToolResultText("No foreign keys found in table."), nil
		}
		return mcp.NewToolResultText(renderForeignKeys(fks)), nil
	}))
}

func registerExecutionTools(mcpServer *server.MCPServer, explorer *Explorer) {
	// run_dql_query tool
	dqlTool := mcp.NewTool("run_dql_query",
		mcp.WithDescription("Run a DQL statement (SELECT, SHOW, EXPLAIN). Returns the result as a text table."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to run"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(dqlTool, explorer.loggedToolHandler("run_dql_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		result, err := explorer.Execute(ctx, ExecuteInput{SQL: sql, Category: CategoryQuery})
		if err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		return mcp.NewToolResultText(renderRowSet(result)), nil
	}))

	// run_dml_query tool
	dmlTool := mcp.NewTool("run_dml_query",
		mcp.WithDescription("Run a DML statement (INSERT, UPDATE, DELETE). Returns the affected row count. Commits on success, rolls back on failure."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to run"),
		),
	)

	mcpServer.AddTool(dmlTool, explorer.loggedToolHandler("run_dml_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		result, err := explorer.Execute(ctx, ExecuteInput{SQL: sql, Category: CategoryMutation})
		if err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("DML statement executed successfully. Affected rows: %d", result.RowsAffected)), nil
	}))

	// run_ddl_query tool
	ddlTool := mcp.NewTool("run_ddl_query",
		mcp.WithDescription("Run a DDL statement (CREATE, ALTER, DROP). Commits on success, rolls back on failure."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to run"),
		),
	)

	mcpServer.AddTool(ddlTool, explorer.loggedToolHandler("run_ddl_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		if _, err := explorer.Execute(ctx, ExecuteInput{SQL: sql, Category: CategoryDefinition}); err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		return mcp.NewToolResultText("DDL statement executed successfully."), nil
	}))

	// run_dcl_query tool
	dclTool := mcp.NewTool("run_dcl_query",
		mcp.WithDescription("Run a DCL statement (GRANT, REVOKE). Commits on success, rolls back on failure."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to run"),
		),
	)

	mcpServer.AddTool(dclTool, explorer.loggedToolHandler("run_dcl_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		if _, err := explorer.Execute(ctx, ExecuteInput{SQL: sql, Category: CategoryControl}); err != nil {
			return mcp.NewToolResultError(explorer.ErrorText(err)), nil
		}
		return mcp.NewToolResultText("DCL statement executed successfully."), nil
	}))
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (e *Explorer) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		e.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}

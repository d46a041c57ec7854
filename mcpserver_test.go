package pgxplore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	pgxplore "github.com/pgxplore/pgxplore"

	"github.com/mark3labs/mcp-go/server"
)

// mcpTestServer bundles everything needed for an MCP HTTP server test.
type mcpTestServer struct {
	explorer   *pgxplore.Explorer
	port       int
	baseURL    string
	httpServer *server.StreamableHTTPServer
}

// startMCPTestServer creates an Explorer, registers the MCP tools, starts
// an HTTP server on a free port, and returns the test server. The optional
// healthCheckPath enables the health check endpoint.
func startMCPTestServer(t *testing.T, config pgxplore.Config, healthCheckPath string) *mcpTestServer {
	t.Helper()

	e, _ := newTestInstance(t, config)

	// Find a free port.
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	mcpServer := server.NewMCPServer("pgxplore-test", "1.0.0",
		server.WithToolCapabilities(true),
	)
	pgxplore.RegisterMCPTools(mcpServer, e)

	addr := fmt.Sprintf(":%d", port)
	mux := http.NewServeMux()

	if healthCheckPath != "" {
		mux.HandleFunc(healthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register MCP handler.
	mux.Handle("/mcp", streamableServer)

	go func() {
		if err := streamableServer.Start(addr); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	time.Sleep(200 * time.Millisecond)
	t.Cleanup(func() { streamableServer.Shutdown(context.Background()) })

	return &mcpTestServer{
		explorer:   e,
		port:       port,
		baseURL:    fmt.Sprintf("http://localhost:%d", port),
		httpServer: streamableServer,
	}
}

// jsonRPC sends a JSON-RPC request to the MCP endpoint and returns the parsed response.
func (s *mcpTestServer) jsonRPC(t *testing.T, method string, params interface{}) map[string]interface{} {
	t.Helper()

	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		reqBody["params"] = params
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	resp, err := http.Post(
		s.baseURL+"/mcp",
		"application/json",
		strings.NewReader(string(bodyBytes)),
	)
	if err != nil {
		t.Fatalf("JSON-RPC request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("failed to parse response JSON: %v; body: %s", err, string(respBody))
	}

	return result
}

// callTool calls an MCP tool and returns the text of the first content
// element plus the isError flag.
func (s *mcpTestServer) callTool(t *testing.T, name string, arguments map[string]interface{}) (string, bool) {
	t.Helper()

	result := s.jsonRPC(t, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	})

	resultObj, ok := result["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %T: %v", result["result"], result["result"])
	}

	content, ok := resultObj["content"].([]interface{})
	if !ok || len(content) == 0 {
		t.Fatalf("expected content array, got %v", resultObj["content"])
	}

	firstContent := content[0].(map[string]interface{})
	if firstContent["type"] != "text" {
		t.Fatalf("expected content type 'text', got %q", firstContent["type"])
	}

	isError, _ := resultObj["isError"].(bool)
	return firstContent["text"].(string), isError
}

func TestMCPServer_ToolsList(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	result := s.jsonRPC(t, "tools/list", map[string]interface{}{})

	resultObj := result["result"].(map[string]interface{})
	tools, ok := resultObj["tools"].([]interface{})
	if !ok {
		t.Fatalf("expected tools array, got %v", resultObj["tools"])
	}
	if len(tools) != 9 {
		t.Fatalf("expected 9 tools, got %d", len(tools))
	}

	names := map[string]bool{}
	for _, tool := range tools {
		toolObj := tool.(map[string]interface{})
		names[toolObj["name"].(string)] = true
	}
	for _, want := range []string{
		"get_schema_names", "get_tables", "get_columns", "get_indexes", "get_foreign_keys",
		"run_dql_query", "run_dml_query", "run_ddl_query", "run_dcl_query",
	} {
		if !names[want] {
			t.Fatalf("expected tool %q in tools/list, got %v", want, names)
		}
	}
}

func TestMCPServer_DQLTool(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	setupDDL(t, s.explorer, "CREATE TABLE mcp_dql (id serial PRIMARY KEY, name text)")
	setupDML(t, s.explorer, "INSERT INTO mcp_dql (name) VALUES ('alice'), ('bob')")

	text, isError := s.callTool(t, "run_dql_query", map[string]interface{}{
		"sql": "SELECT id, name FROM mcp_dql ORDER BY id",
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "alice") || !strings.Contains(text, "bob") {
		t.Fatalf("expected row values in text table, got:\n%s", text)
	}
	if !strings.Contains(text, "(2 row(s))") {
		t.Fatalf("expected row count footer, got:\n%s", text)
	}
}

func TestMCPServer_DQLToolEmptyResult(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	setupDDL(t, s.explorer, "CREATE TABLE mcp_dql_empty (id int, label text)")

	text, isError := s.callTool(t, "run_dql_query", map[string]interface{}{
		"sql": "SELECT * FROM mcp_dql_empty",
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "Query returned no rows.") {
		t.Fatalf("expected no-rows notice, got:\n%s", text)
	}
	// Column names still reported.
	if !strings.Contains(text, "id") || !strings.Contains(text, "label") {
		t.Fatalf("expected column names in notice, got:\n%s", text)
	}
}

func TestMCPServer_DMLTool(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	setupDDL(t, s.explorer, "CREATE TABLE mcp_dml (id serial PRIMARY KEY, n int)")

	text, isError := s.callTool(t, "run_dml_query", map[string]interface{}{
		"sql": "INSERT INTO mcp_dml (n) VALUES (1), (2), (3)",
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "Affected rows: 3") {
		t.Fatalf("expected affected row count, got: %s", text)
	}
}

func TestMCPServer_DDLTool(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	text, isError := s.callTool(t, "run_ddl_query", map[string]interface{}{
		"sql": "CREATE TABLE mcp_ddl (id int)",
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "DDL statement executed successfully.") {
		t.Fatalf("expected DDL success notice, got: %s", text)
	}
}

func TestMCPServer_DCLTool(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	setupDDL(t, s.explorer, "CREATE TABLE mcp_dcl (id int)")

	text, isError := s.callTool(t, "run_dcl_query", map[string]interface{}{
		"sql": "GRANT SELECT ON mcp_dcl TO PUBLIC",
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "DCL statement executed successfully.") {
		t.Fatalf("expected DCL success notice, got: %s", text)
	}
}

func TestMCPServer_ErrorResult(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	text, isError := s.callTool(t, "run_dql_query", map[string]interface{}{
		"sql": "SELECT * FROM definitely_missing",
	})
	if !isError {
		t.Fatalf("expected tool error for missing table, got: %s", text)
	}
	if !strings.Contains(text, "definitely_missing") {
		t.Fatalf("expected error to mention the table, got: %s", text)
	}
}

func TestMCPServer_GetSchemaNamesTool(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	text, isError := s.callTool(t, "get_schema_names", map[string]interface{}{})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "public") {
		t.Fatalf("expected 'public' schema in output:\n%s", text)
	}
}

func TestMCPServer_GetTablesTool(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	setupDDL(t, s.explorer, "CREATE TABLE mcp_lt1 (id int)")
	setupDDL(t, s.explorer, "CREATE TABLE mcp_lt2 (id int)")

	text, isError := s.callTool(t, "get_tables", map[string]interface{}{})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if !strings.Contains(text, "mcp_lt1") || !strings.Contains(text, "mcp_lt2") {
		t.Fatalf("expected both tables in output:\n%s", text)
	}
}

func TestMCPServer_GetTablesToolNonexistentSchema(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	text, isError := s.callTool(t, "get_tables", map[string]interface{}{
		"schema": "no_such_schema",
	})
	if !isError {
		t.Fatalf("expected tool error for missing schema, got: %s", text)
	}
	if !strings.Contains(text, "no_such_schema") {
		t.Fatalf("expected schema name in error, got: %s", text)
	}
}

func TestMCPServer_GetColumnsToolRequiresTable(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	text, isError := s.callTool(t, "get_columns", map[string]interface{}{})
	if !isError {
		t.Fatalf("expected tool error for missing table param, got: %s", text)
	}
}

func TestMCPServer_EndToEndScenario(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "")

	// DDL: create a table through the tool surface.
	text, isError := s.callTool(t, "run_ddl_query", map[string]interface{}{
		"sql": "CREATE TABLE scenario (id serial PRIMARY KEY, label text NOT NULL)",
	})
	if isError {
		t.Fatalf("DDL failed: %s", text)
	}

	// Inspection: the new table and its columns are visible.
	text, isError = s.callTool(t, "get_tables", map[string]interface{}{})
	if isError || !strings.Contains(text, "scenario") {
		t.Fatalf("expected scenario table in get_tables output:\n%s", text)
	}

	text, isError = s.callTool(t, "get_columns", map[string]interface{}{
		"table": "scenario",
	})
	if isError {
		t.Fatalf("get_columns failed: %s", text)
	}
	if !strings.Contains(text, "id") || !strings.Contains(text, "label") {
		t.Fatalf("expected columns in output:\n%s", text)
	}

	// DML: insert rows.
	text, isError = s.callTool(t, "run_dml_query", map[string]interface{}{
		"sql": "INSERT INTO scenario (label) VALUES ('first'), ('second')",
	})
	if isError || !strings.Contains(text, "Affected rows: 2") {
		t.Fatalf("expected 2 affected rows, got: %s", text)
	}

	// DQL: read them back.
	text, isError = s.callTool(t, "run_dql_query", map[string]interface{}{
		"sql": "SELECT label FROM scenario ORDER BY id",
	})
	if isError {
		t.Fatalf("DQL failed: %s", text)
	}
	if !strings.Contains(text, "first") || !strings.Contains(text, "second") {
		t.Fatalf("expected inserted labels in output:\n%s", text)
	}
}

func TestMCPServer_HealthCheck(t *testing.T) {
	t.Parallel()
	s := startMCPTestServer(t, defaultConfig(), "/healthz")

	resp, err := http.Get(s.baseURL + "/healthz")
	if err != nil {
		t.Fatalf("health check request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Fatalf("unexpected health check body: %s", body)
	}
}

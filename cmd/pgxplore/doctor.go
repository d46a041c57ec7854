package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	pgxplore "github.com/pgxplore/pgxplore"
	"github.com/rs/zerolog"
)

const version = "1.0.0"

func runDoctor() error {
	defaultPath := os.Getenv("PGXPLORE_CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = ".pgxplore/config.json"
	}

	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", defaultPath, "Path to configuration file")
	fs.Parse(os.Args[2:])

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *configPath)
}

func doctor(w io.Writer, useColor bool, configPath string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "pgxplore %s\n\n", version)

	config, ok := doctorValidateConfig(w, useColor, configPath)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'pgxplore doctor' again.")
		return nil
	}

	doctorConnectionTest(w, useColor, config)

	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorConnectionTest performs a live database connection test when
// PGXPLORE_DSN is set. Only called after all config checks passed, so
// New() cannot panic on the validated fields.
func doctorConnectionTest(w io.Writer, useColor bool, config *pgxplore.ServerConfig) {
	connString := os.Getenv("PGXPLORE_DSN")
	if connString == "" {
		fmt.Fprintln(w, "  - Set PGXPLORE_DSN to run a live connection test.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e, err := pgxplore.New(ctx, connString, config.Config, zerolog.Nop())
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database connection: %v", err))
		return
	}
	defer e.Close(ctx)

	if err := e.Ping(ctx); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database connection: %v", err))
		return
	}
	printCheck(w, useColor, true, "Database connection successful")
}

// doctorValidateConfig loads and validates the config file, printing check results.
// Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string) (*pgxplore.ServerConfig, bool) {
	allPassed := true

	// Check 1: Config file exists and is valid JSON
	data, err := os.ReadFile(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file readable (%s)", configPath))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, fmt.Sprintf("Config file readable (%s)", configPath))

	var config pgxplore.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file is valid JSON: %v", err))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, "Config file is valid JSON")

	// Check 2: connection.dbname is set
	if config.Connection.DBName == "" {
		printCheck(w, useColor, false, "connection.dbname is set")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("connection.dbname is set (%s)", config.Connection.DBName))
	}

	// Check 3: server.transport is stdio or http
	transport := config.Server.Transport
	if transport == "" {
		transport = "stdio"
	}
	if transport != "stdio" && transport != "http" {
		printCheck(w, useColor, false, fmt.Sprintf("server.transport is stdio or http (got %q)", config.Server.Transport))
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("server.transport is valid (%s)", transport))
	}

	// Check 4: server.port > 0 when transport is http
	if transport == "http" {
		if config.Server.Port <= 0 {
			printCheck(w, useColor, false, "server.port is > 0 (required for http transport)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("server.port is > 0 (%d)", config.Server.Port))
		}
	}

	// Check 5: Pool and timeout fields serve() would reject
	if config.Pool.MaxConns <= 0 {
		printCheck(w, useColor, false, "pool.max_conns is > 0")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("pool.max_conns is > 0 (%d)", config.Pool.MaxConns))
	}
	if config.Query.DefaultTimeoutSeconds <= 0 {
		printCheck(w, useColor, false, "query.default_timeout_seconds is > 0")
		allPassed = false
	}
	if config.Query.InspectTimeoutSeconds <= 0 {
		printCheck(w, useColor, false, "query.inspect_timeout_seconds is > 0")
		allPassed = false
	}
	for _, d := range []struct {
		name  string
		value string
	}{
		{"pool.max_conn_lifetime", config.Pool.MaxConnLifetime},
		{"pool.max_conn_idle_time", config.Pool.MaxConnIdleTime},
		{"pool.health_check_period", config.Pool.HealthCheckPeriod},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("%s is a valid duration: %v", d.name, err))
			allPassed = false
		}
	}

	// Check 6: Health check path set when enabled
	if config.Server.HealthCheckEnabled {
		if config.Server.HealthCheckPath == "" {
			printCheck(w, useColor, false, "health_check_path is set (required when health_check_enabled)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("health_check_path is set (%s)", config.Server.HealthCheckPath))
		}
	}

	// Check 7: Regex patterns compile
	regexOK := true

	for i, rule := range config.ErrorHints {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("error_hints[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Redaction {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("redaction[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Query.TimeoutRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("timeout_rules[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	if regexOK {
		printCheck(w, useColor, true, "All regex patterns compile")
	}

	return &config, allPassed
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printAgentSnippets prints MCP connection config snippets for AI agents,
// matching the configured transport.
func printAgentSnippets(w io.Writer, useColor bool, config *pgxplore.ServerConfig) {
	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	subheading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	transport := config.Server.Transport
	if transport == "" {
		transport = "stdio"
	}

	if transport == "stdio" {
		subheading("Claude Code")
		fmt.Fprintf(w, "  Run this command to add the server:\n\n")
		fmt.Fprintf(w, "    claude mcp add postgres -- pgxplore serve\n\n")
		fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
		fmt.Fprintf(w, `  {
    "mcpServers": {
      "postgres": {
        "command": "pgxplore",
        "args": ["serve"]
      }
    }
  }
`)
		fmt.Fprintln(w)

		subheading("Cursor (.cursor/mcp.json)")
		fmt.Fprintf(w, `  {
    "mcpServers": {
      "postgres": {
        "command": "pgxplore",
        "args": ["serve"]
      }
    }
  }
`)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Set PGXPLORE_DSN in the agent's environment to skip the credential prompt.")
		return
	}

	url := fmt.Sprintf("http://localhost:%d/mcp", config.Server.Port)

	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http postgres %s\n\n", url)
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "postgres": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	subheading("Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "postgres": {
        "httpUrl": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "postgres": {
        "url": "%s"
      }
    }
  }
`, url)
}

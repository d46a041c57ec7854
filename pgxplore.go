package pgxplore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pgxplore/pgxplore/internal/errhint"
	"github.com/pgxplore/pgxplore/internal/redact"
	"github.com/pgxplore/pgxplore/internal/timeout"
)

// Explorer is the core engine behind the PostgreSQL explorer tools:
// schema inspection and categorized statement execution over a single
// process-lifetime connection pool. All exported methods are safe for
// concurrent use from multiple goroutines; each call borrows its own
// connection from the pool.
type Explorer struct {
	config     Config
	pool       *pgxpool.Pool
	semaphore  chan struct{}
	hints      *errhint.Matcher
	redactor   *redact.Redactor
	timeoutMgr *timeout.Manager
	logger     zerolog.Logger
}

// New creates a new Explorer. connString is the PostgreSQL connection
// string (DSN), immutable for the Explorer's lifetime. The pool is
// created here and every operation borrows connections from it; nothing
// closes it except Close.
// Panics on invalid config. Returns an error only for runtime failures
// (bad DSN, pool creation, invalid user-supplied regex rules).
func New(ctx context.Context, connString string, config Config, logger zerolog.Logger) (*Explorer, error) {
	// --- Config validation (panics on invalid config) ---

	if connString == "" {
		panic("pgxplore: connString must be non-empty")
	}
	if config.Pool.MaxConns <= 0 {
		panic("pgxplore: pool.max_conns must be > 0")
	}
	if config.Query.DefaultTimeoutSeconds <= 0 {
		panic("pgxplore: query.default_timeout_seconds must be > 0")
	}
	if config.Query.InspectTimeoutSeconds <= 0 {
		panic("pgxplore: query.inspect_timeout_seconds must be > 0")
	}

	// Apply defaults for zero values
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = 100000
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Query.MaxSQLLength < 0 {
		panic("pgxplore: query.max_sql_length must be > 0")
	}
	if config.Query.MaxResultLength < 0 {
		panic("pgxplore: query.max_result_length must be > 0")
	}

	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("pgxplore: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	// --- Configure pgxpool ---

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.Pool.MaxConns)
	poolConfig.MinConns = int32(config.Pool.MinConns)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	if config.Pool.MaxConnLifetime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnLifetime)
		if err != nil {
			panic(fmt.Sprintf("pgxplore: invalid pool.max_conn_lifetime %q: %v", config.Pool.MaxConnLifetime, err))
		}
		poolConfig.MaxConnLifetime = d
	}
	if config.Pool.MaxConnIdleTime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnIdleTime)
		if err != nil {
			panic(fmt.Sprintf("pgxplore: invalid pool.max_conn_idle_time %q: %v", config.Pool.MaxConnIdleTime, err))
		}
		poolConfig.MaxConnIdleTime = d
	}
	if config.Pool.HealthCheckPeriod != "" {
		d, err := time.ParseDuration(config.Pool.HealthCheckPeriod)
		if err != nil {
			panic(fmt.Sprintf("pgxplore: invalid pool.health_check_period %q: %v", config.Pool.HealthCheckPeriod, err))
		}
		poolConfig.HealthCheckPeriod = d
	}

	if config.Timezone != "" {
		escaped := strings.ReplaceAll(config.Timezone, "'", "''")
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if _, err := conn.Exec(ctx, fmt.Sprintf("SET timezone = '%s'", escaped)); err != nil {
				return fmt.Errorf("failed to SET timezone: %w", err)
			}
			return nil
		}
	}

	// --- Create pool ---

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("failed to create connection pool: %w", err)}
	}

	// --- Initialize internal components ---

	hintRules := make([]errhint.Rule, len(config.ErrorHints))
	for i, r := range config.ErrorHints {
		hintRules[i] = errhint.Rule{Pattern: r.Pattern, Hint: r.Hint}
	}
	hints, err := errhint.NewMatcher(hintRules)
	if err != nil {
		pool.Close()
		return nil, err
	}

	redactRules := make([]redact.Rule, len(config.Redaction))
	for i, r := range config.Redaction {
		redactRules[i] = redact.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	redactor, err := redact.NewRedactor(redactRules)
	if err != nil {
		pool.Close()
		return nil, err
	}

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	tmgr, err := timeout.NewManager(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
		Rules:          timeoutRules,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Explorer{
		config:     config,
		pool:       pool,
		semaphore:  make(chan struct{}, config.Pool.MaxConns),
		hints:      hints,
		redactor:   redactor,
		timeoutMgr: tmgr,
		logger:     logger,
	}, nil
}

// Ping verifies database connectivity by acquiring a connection and
// round-tripping to the server.
func (e *Explorer) Ping(ctx context.Context) error {
	if err := e.pool.Ping(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// Close closes the connection pool. Accepts context for API
// forward-compatibility, but does not currently use it:
// pgxpool.Pool.Close() does not support context-based shutdown.
func (e *Explorer) Close(ctx context.Context) {
	e.pool.Close()
}

// acquireSlot takes a semaphore slot, respecting context cancellation so
// callers waiting on a saturated pool can be cancelled instead of
// deadlocking. The returned release func must be called on all paths.
func (e *Explorer) acquireSlot(ctx context.Context, op string) (func(), error) {
	select {
	case e.semaphore <- struct{}{}:
		return func() { <-e.semaphore }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: failed to acquire slot: all %d connection slots are in use, context cancelled while waiting: %w", op, cap(e.semaphore), ctx.Err())
	}
}

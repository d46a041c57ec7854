package pgxplore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Catalog queries for the schema inspector. Every call re-reads current
// catalog state; results are not cached and may be stale the instant
// after return.

const listSchemasSQL = `
SELECT n.nspname
FROM pg_catalog.pg_namespace n
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
  AND n.nspname NOT LIKE 'pg\_temp\_%'
  AND n.nspname NOT LIKE 'pg\_toast\_temp\_%'
ORDER BY n.nspname;
`

const schemaExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1
);
`

const listTablesSQL = `
SELECT c.relname
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
  AND c.relkind IN ('r', 'p')
ORDER BY c.relname;
`

const tableExistsSQL = `
SELECT EXISTS (
    SELECT 1
    FROM pg_catalog.pg_class c
    JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
    WHERE n.nspname = $1
      AND c.relname = $2
      AND c.relkind IN ('r', 'p')
);
`

const listColumnsSQL = `
SELECT
    c.column_name AS name,
    c.data_type AS type,
    CASE c.is_nullable WHEN 'YES' THEN true ELSE false END AS nullable,
    c.column_default AS default_val
FROM information_schema.columns c
WHERE c.table_schema = $1
  AND c.table_name = $2
ORDER BY c.ordinal_position;
`

const listIndexesSQL = `
SELECT
    pi.indexname AS name,
    ARRAY(
        SELECT pg_catalog.pg_get_indexdef(i.indexrelid, k + 1, true)
        FROM generate_series(0, i.indnkeyatts - 1) AS k
        ORDER BY k
    )::text[] AS columns,
    i.indisunique AS is_unique,
    pi.indexdef AS definition
FROM pg_catalog.pg_indexes pi
JOIN pg_catalog.pg_class c ON c.relname = pi.indexname AND c.relnamespace = (
    SELECT oid FROM pg_catalog.pg_namespace WHERE nspname = pi.schemaname
)
JOIN pg_catalog.pg_index i ON i.indexrelid = c.oid
WHERE pi.schemaname = $1
  AND pi.tablename = $2
ORDER BY pi.indexname;
`

const listForeignKeysSQL = `
SELECT
    con.conname AS name,
    (
        SELECT array_agg(a.attname::text ORDER BY array_position(con.conkey, a.attnum))
        FROM pg_catalog.pg_attribute a
        WHERE a.attrelid = con.conrelid AND a.attnum = ANY(con.conkey)
    ) AS constrained_columns,
    fn.nspname AS referred_schema,
    fc.relname AS referred_table,
    (
        SELECT array_agg(a.attname::text ORDER BY array_position(con.confkey, a.attnum))
        FROM pg_catalog.pg_attribute a
        WHERE a.attrelid = con.confrelid AND a.attnum = ANY(con.confkey)
    ) AS referred_columns,
    CASE con.confupdtype
        WHEN 'a' THEN 'NO ACTION'
        WHEN 'r' THEN 'RESTRICT'
        WHEN 'c' THEN 'CASCADE'
        WHEN 'n' THEN 'SET NULL'
        WHEN 'd' THEN 'SET DEFAULT'
    END AS on_update,
    CASE con.confdeltype
        WHEN 'a' THEN 'NO ACTION'
        WHEN 'r' THEN 'RESTRICT'
        WHEN 'c' THEN 'CASCADE'
        WHEN 'n' THEN 'SET NULL'
        WHEN 'd' THEN 'SET DEFAULT'
    END AS on_delete
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_class fc ON fc.oid = con.confrelid
JOIN pg_catalog.pg_namespace fn ON fn.oid = fc.relnamespace
WHERE con.contype = 'f'
  AND n.nspname = $1
  AND c.relname = $2
ORDER BY con.conname;
`

// ListSchemas returns all user-visible schema names.
func (e *Explorer) ListSchemas(ctx context.Context) ([]string, error) {
	var schemas []string
	err := e.withInspectTx(ctx, "ListSchemas", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, listSchemasSQL)
		if err != nil {
			return fmt.Errorf("ListSchemas query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("ListSchemas scan failed: %w", err)
			}
			schemas = append(schemas, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if schemas == nil {
		schemas = []string{}
	}
	return schemas, nil
}

// ListTables returns the names of all ordinary and partitioned tables in
// the given schema. An empty schema defaults to "public". Returns a
// NotFoundError when the schema does not exist, so an empty result always
// means an existing, empty schema.
func (e *Explorer) ListTables(ctx context.Context, schema string) ([]string, error) {
	if schema == "" {
		schema = "public"
	}

	var tables []string
	err := e.withInspectTx(ctx, "ListTables", func(ctx context.Context, tx pgx.Tx) error {
		if err := e.checkSchemaExists(ctx, tx, schema); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, listTablesSQL, schema)
		if err != nil {
			return fmt.Errorf("ListTables query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("ListTables scan failed: %w", err)
			}
			tables = append(tables, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []string{}
	}
	return tables, nil
}

// ListColumns returns the columns of the given table in ordinal order.
// An empty schema defaults to "public". Returns a NotFoundError when the
// schema or table does not exist.
func (e *Explorer) ListColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	if schema == "" {
		schema = "public"
	}

	var columns []ColumnInfo
	err := e.withInspectTx(ctx, "ListColumns", func(ctx context.Context, tx pgx.Tx) error {
		if err := e.checkTableExists(ctx, tx, schema, table); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, listColumnsSQL, schema, table)
		if err != nil {
			return fmt.Errorf("ListColumns query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var col ColumnInfo
			if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default); err != nil {
				return fmt.Errorf("ListColumns scan failed: %w", err)
			}
			columns = append(columns, col)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if columns == nil {
		columns = []ColumnInfo{}
	}
	return columns, nil
}

// ListIndexes returns the indexes of the given table. An empty schema
// defaults to "public". Returns a NotFoundError when the schema or table
// does not exist.
func (e *Explorer) ListIndexes(ctx context.Context, schema, table string) ([]IndexInfo, error) {
	if schema == "" {
		schema = "public"
	}

	var indexes []IndexInfo
	err := e.withInspectTx(ctx, "ListIndexes", func(ctx context.Context, tx pgx.Tx) error {
		if err := e.checkTableExists(ctx, tx, schema, table); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, listIndexesSQL, schema, table)
		if err != nil {
			return fmt.Errorf("ListIndexes query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var idx IndexInfo
			if err := rows.Scan(&idx.Name, &idx.Columns, &idx.Unique, &idx.Definition); err != nil {
				return fmt.Errorf("ListIndexes scan failed: %w", err)
			}
			indexes = append(indexes, idx)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if indexes == nil {
		indexes = []IndexInfo{}
	}
	return indexes, nil
}

// ListForeignKeys returns the foreign key constraints of the given table.
// An empty schema defaults to "public". Returns a NotFoundError when the
// schema or table does not exist.
func (e *Explorer) ListForeignKeys(ctx context.Context, schema, table string) ([]ForeignKeyInfo, error) {
	if schema == "" {
		schema = "public"
	}

	var fks []ForeignKeyInfo
	err := e.withInspectTx(ctx, "ListForeignKeys", func(ctx context.Context, tx pgx.Tx) error {
		if err := e.checkTableExists(ctx, tx, schema, table); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, listForeignKeysSQL, schema, table)
		if err != nil {
			return fmt.Errorf("ListForeignKeys query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var fk ForeignKeyInfo
			if err := rows.Scan(&fk.Name, &fk.ConstrainedColumns, &fk.ReferredSchema, &fk.ReferredTable, &fk.ReferredColumns, &fk.OnUpdate, &fk.OnDelete); err != nil {
				return fmt.Errorf("ListForeignKeys scan failed: %w", err)
			}
			fks = append(fks, fk)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if fks == nil {
		fks = []ForeignKeyInfo{}
	}
	return fks, nil
}

// withInspectTx runs fn on a single connection inside a transaction that
// is always rolled back; inspection is read-only, there is nothing to
// commit. Applies the inspect timeout and bounds concurrency through the
// shared semaphore.
func (e *Explorer) withInspectTx(ctx context.Context, op string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	startTime := time.Now()

	release, err := e.acquireSlot(ctx, op)
	if err != nil {
		return err
	}
	defer release()

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(e.config.Query.InspectTimeoutSeconds)*time.Second)
	defer cancel()

	conn, err := e.pool.Acquire(queryCtx)
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to acquire connection: %w", err)}
	}
	defer conn.Release()

	tx, err := conn.Begin(queryCtx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // always rollback, read-only catalog queries

	if err := fn(queryCtx, tx); err != nil {
		return err
	}

	e.logger.Info().
		Str("op", op).
		Dur("duration", time.Since(startTime)).
		Msg("inspection executed")
	return nil
}

func (e *Explorer) checkSchemaExists(ctx context.Context, tx pgx.Tx, schema string) error {
	var exists bool
	if err := tx.QueryRow(ctx, schemaExistsSQL, schema).Scan(&exists); err != nil {
		return fmt.Errorf("schema existence check failed: %w", err)
	}
	if !exists {
		return &NotFoundError{Object: "schema", Schema: schema}
	}
	return nil
}

func (e *Explorer) checkTableExists(ctx context.Context, tx pgx.Tx, schema, table string) error {
	if err := e.checkSchemaExists(ctx, tx, schema); err != nil {
		return err
	}
	var exists bool
	if err := tx.QueryRow(ctx, tableExistsSQL, schema, table).Scan(&exists); err != nil {
		return fmt.Errorf("table existence check failed: %w", err)
	}
	if !exists {
		return &NotFoundError{Object: "table", Schema: schema, Table: table}
	}
	return nil
}

package db

import (
	"context"
	"fmt"

	"github.com/mkoppen/pgdrift/internal/schema"
	"github.com/mkoppen/pgdrift/internal/store"
)

// Inspector reads catalog metadata and assembles the database → namespace →
// table tree the signature engine runs over. One introspection pass builds
// an immutable tree; rebuild to observe structural changes.
type Inspector struct {
	pool *Pool
	name string
}

// NewInspector creates an inspector for a connected pool. name labels the
// resulting root node.
func NewInspector(pool *Pool, name string) *Inspector {
	return &Inspector{pool: pool, name: name}
}

// Inspect builds the signature tree. namespaces limits which schemas are
// included (empty means all non-system schemas); tables limits which tables
// are included per namespace (empty means all base tables).
func (i *Inspector) Inspect(ctx context.Context, namespaces, tables []string) (*store.Database, error) {
	database := store.NewDatabase(i.name, i.pool)

	nsNames, err := i.namespaceNames(ctx, namespaces)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	for _, nsName := range nsNames {
		ns := store.NewNamespace(nsName, database)

		tableNames, err := i.tableNames(ctx, nsName, tables)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables in %q: %w", nsName, err)
		}
		for _, tableName := range tableNames {
			table, err := i.inspectTable(ctx, ns, nsName, tableName)
			if err != nil {
				return nil, fmt.Errorf("failed to inspect table %q.%q: %w", nsName, tableName, err)
			}
			ns.AddChildren(table)
		}
		database.AddChildren(ns)
	}
	return database, nil
}

func (i *Inspector) namespaceNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	query := `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT LIKE 'pg_%'
			AND schema_name != 'information_schema'
		ORDER BY schema_name
	`

	rows, err := i.pool.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (i *Inspector) tableNames(ctx context.Context, nsName string, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := i.pool.pool.Query(ctx, query, nsName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// inspectTable fetches a table's columns, constraints, and indexes and
// builds the leaf node. The leaf sorts the lists and resolves its primary
// key itself.
func (i *Inspector) inspectTable(ctx context.Context, ns *store.Namespace, nsName, tableName string) (*store.Table, error) {
	columns, err := i.tableColumns(ctx, nsName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch columns: %w", err)
	}
	constraints, err := i.tableConstraints(ctx, nsName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch constraints: %w", err)
	}
	indexes, err := i.tableIndexes(ctx, nsName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch indexes: %w", err)
	}
	return store.NewTable(tableName, ns, columns, constraints, indexes), nil
}

func (i *Inspector) tableColumns(ctx context.Context, nsName, tableName string) ([]schema.Column, error) {
	query := `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := i.pool.pool.Query(ctx, query, nsName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.DefaultValue); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (i *Inspector) tableConstraints(ctx context.Context, nsName, tableName string) ([]schema.Constraint, error) {
	query := `
		SELECT
			c.conname,
			c.contype::text,
			array_agg(a.attname ORDER BY array_position(c.conkey, a.attnum)) AS columns,
			COALESCE(ci.relname, '') AS index_name
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(c.conkey)
		LEFT JOIN pg_class ci ON ci.oid = c.conindid
		WHERE n.nspname = $1 AND t.relname = $2
		GROUP BY c.conname, c.contype, ci.relname
		ORDER BY c.conname
	`

	rows, err := i.pool.pool.Query(ctx, query, nsName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constraints []schema.Constraint
	for rows.Next() {
		var con schema.Constraint
		if err := rows.Scan(&con.Name, &con.Type, &con.Columns, &con.IndexName); err != nil {
			return nil, err
		}
		constraints = append(constraints, con)
	}
	return constraints, rows.Err()
}

func (i *Inspector) tableIndexes(ctx context.Context, nsName, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisprimary AS is_primary,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
		GROUP BY i.relname, ix.indisprimary
		ORDER BY i.relname
	`

	rows, err := i.pool.pool.Query(ctx, query, nsName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.Primary, &idx.Keys); err != nil {
			return nil, err
		}
		idx.Columns = idx.Keys
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

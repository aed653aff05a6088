// Package db provides the PostgreSQL side of the engine: a pooled connection
// implementing the query-execution capability, and the catalog inspector
// that builds the signature tree from catalog metadata.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgx connection pool as the store.Querier capability. The pool
// is shared read-only across all concurrent fan-outs; its internal
// concurrency control handles racing readers.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects a pool and verifies the connection.
func NewPool(ctx context.Context, connString string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Close releases the pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// QueryValue runs a query expected to return a single scalar.
func (p *Pool) QueryValue(ctx context.Context, sql string, args ...any) (any, error) {
	var value any
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// QueryRows runs a query and returns every row as a value slice.
func (p *Pool) QueryRows(ctx context.Context, sql string, args ...any) ([][]any, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		result = append(result, values)
	}
	return result, rows.Err()
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mkoppen/pgdrift/internal/schema"
	"github.com/mkoppen/pgdrift/internal/sqlgen"
)

// Table is a leaf node: its count and data hash come from direct queries
// against the owning namespace's table, its schema from metadata captured at
// construction. Instances are immutable after construction; recreate one to
// observe structural changes.
type Table struct {
	reconcileStub

	name      string
	namespace *Namespace

	columns     []schema.Column
	constraints []schema.Constraint
	indexes     []schema.Index
	pks         []string

	countOnce sync.Once
	countVal  int64
	countErr  error
}

// NewTable builds a leaf from already-fetched metadata. Descriptor lists are
// sorted by name and the primary key resolved (primary index, then "p"
// constraint, then the full column list).
func NewTable(name string, namespace *Namespace, columns []schema.Column, constraints []schema.Constraint, indexes []schema.Index) *Table {
	columns = schema.SortColumns(columns)
	constraints = schema.SortConstraints(constraints)
	indexes = schema.SortIndexes(indexes)
	return &Table{
		name:        name,
		namespace:   namespace,
		columns:     columns,
		constraints: constraints,
		indexes:     indexes,
		pks:         schema.PrimaryKey(indexes, constraints, columns),
	}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// PrimaryKeyColumns returns the resolved row-ordering columns.
func (t *Table) PrimaryKeyColumns() []string { return t.pks }

func (t *Table) querier() Querier {
	return t.namespace.database.querier
}

// Schema is a pure projection of the stored metadata, no I/O.
func (t *Table) Schema() schema.Table {
	return schema.Table{
		Name:        t.name,
		Columns:     t.columns,
		Constraints: t.constraints,
		Indexes:     t.indexes,
	}
}

// countQuery builds the row-count statement. Identifiers are validated
// before interpolation.
func (t *Table) countQuery() (string, error) {
	ref, err := sqlgen.FormatTable(t.name, t.namespace.name, true)
	if err != nil {
		return "", err
	}
	return "SELECT COUNT(*) FROM " + ref, nil
}

// dataHashQuery builds the order-stable row digest statement: rows are
// ordered by the resolved primary key, each row hashed, and the ordered
// per-row hashes aggregated into one md5. Without the ORDER BY the digest
// would depend on physical row order.
func (t *Table) dataHashQuery() (string, error) {
	ref, err := sqlgen.FormatTable(t.name, t.namespace.name, true)
	if err != nil {
		return "", err
	}
	order, err := sqlgen.SortColumns(t.pks, true, "", "")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT md5(array_agg(md5((t.*)::varchar))::varchar) FROM (SELECT * FROM %s ORDER BY %s) AS t",
		ref, order,
	), nil
}

// GetCount executes the row-count query.
func (t *Table) GetCount(ctx context.Context) (int64, error) {
	query, err := t.countQuery()
	if err != nil {
		return 0, err
	}
	value, err := t.querier().QueryValue(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count %q: %w", t.name, err)
	}
	return toInt64(value)
}

// FilteredCount counts rows matching a filter document compiled through the
// predicate compiler; the filter values are bound, never interpolated.
func (t *Table) FilteredCount(ctx context.Context, filter map[string]any) (int64, error) {
	query, err := t.countQuery()
	if err != nil {
		return 0, err
	}
	args := []any{}
	clause, err := sqlgen.WhereClause(filter, &args)
	if err != nil {
		return 0, err
	}
	if clause != "" {
		query += " WHERE " + clause
	}
	value, err := t.querier().QueryValue(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count %q: %w", t.name, err)
	}
	return toInt64(value)
}

// GetDataHash executes the data-hash query. An empty table yields the empty
// string.
func (t *Table) GetDataHash(ctx context.Context) (string, error) {
	query, err := t.dataHashQuery()
	if err != nil {
		return "", err
	}
	value, err := t.querier().QueryValue(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to hash %q: %w", t.name, err)
	}
	return toHash(value)
}

// GetSchemaHash digests the canonical JSON of the schema projection. Pure:
// descriptor lists were sorted at construction, so the serialization is
// deterministic.
func (t *Table) GetSchemaHash(ctx context.Context) (string, error) {
	serialized, err := json.Marshal(t.Schema())
	if err != nil {
		return "", fmt.Errorf("failed to serialize schema of %q: %w", t.name, err)
	}
	return digest(string(serialized)), nil
}

// GetSignature composes the opaque comparison token.
func (t *Table) GetSignature(ctx context.Context) (string, error) {
	return computeSignature(ctx, t)
}

// DiffData bundles the values one side of a table comparison needs.
type DiffData struct {
	Hash   string
	Count  int64
	Schema schema.Table
}

// GetDiffData fetches count and data hash concurrently; the schema
// projection costs no I/O and is taken synchronously.
func (t *Table) GetDiffData(ctx context.Context) (*DiffData, error) {
	data := &DiffData{Schema: t.Schema()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Hash, err = t.GetDataHash(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Count, err = t.GetCount(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// Count is the memoized convenience: computed on first access, reused for
// the lifetime of the instance. Discard and rebuild the table to refresh.
func (t *Table) Count(ctx context.Context) (int64, error) {
	t.countOnce.Do(func() {
		t.countVal, t.countErr = t.GetCount(ctx)
	})
	return t.countVal, t.countErr
}

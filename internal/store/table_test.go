package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoppen/pgdrift/internal/schema"
	"github.com/mkoppen/pgdrift/internal/sqlgen"
)

// fakeQuerier serves canned scalars keyed by exact query text and records
// every call.
type fakeQuerier struct {
	mu      sync.Mutex
	values  map[string]any
	err     error
	queries []string
	args    [][]any
}

func (f *fakeQuerier) QueryValue(ctx context.Context, sql string, args ...any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[sql]
	if !ok {
		return nil, fmt.Errorf("unexpected query: %s", sql)
	}
	return value, nil
}

func (f *fakeQuerier) QueryRows(ctx context.Context, sql string, args ...any) ([][]any, error) {
	return nil, errors.New("not used")
}

func (f *fakeQuerier) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func newTestTable(fq *fakeQuerier) *Table {
	db := NewDatabase("appdb", fq)
	ns := NewNamespace("public", db)
	tbl := NewTable("users", ns,
		[]schema.Column{{Name: "name", Type: "text"}, {Name: "id", Type: "integer"}},
		[]schema.Constraint{{Name: "users_pkey", Type: "p", Columns: []string{"id"}}},
		nil,
	)
	ns.AddChildren(tbl)
	db.AddChildren(ns)
	return tbl
}

const (
	usersCountQuery = `SELECT COUNT(*) FROM "public"."users"`
	usersHashQuery  = `SELECT md5(array_agg(md5((t.*)::varchar))::varchar) FROM (SELECT * FROM "public"."users" ORDER BY "id" ASC) AS t`
)

func TestTableGetCount(t *testing.T) {
	fq := &fakeQuerier{values: map[string]any{usersCountQuery: int64(42)}}
	tbl := newTestTable(fq)

	count, err := tbl.GetCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.Equal(t, []string{usersCountQuery}, fq.calls())
}

func TestTableGetDataHash(t *testing.T) {
	fq := &fakeQuerier{values: map[string]any{usersHashQuery: "abc123"}}
	tbl := newTestTable(fq)

	hash, err := tbl.GetDataHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
	assert.Equal(t, []string{usersHashQuery}, fq.calls())
}

func TestTableGetDataHashEmptyTable(t *testing.T) {
	// md5(array_agg(...)) over zero rows is SQL NULL
	fq := &fakeQuerier{values: map[string]any{usersHashQuery: nil}}
	tbl := newTestTable(fq)

	hash, err := tbl.GetDataHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", hash)
}

func TestTableDataHashOrdersByFullRowWithoutKey(t *testing.T) {
	db := NewDatabase("appdb", &fakeQuerier{})
	ns := NewNamespace("public", db)
	tbl := NewTable("events", ns,
		[]schema.Column{{Name: "b"}, {Name: "a"}},
		nil, nil,
	)

	assert.Equal(t, []string{"a", "b"}, tbl.PrimaryKeyColumns())
	query, err := tbl.dataHashQuery()
	require.NoError(t, err)
	assert.Contains(t, query, `ORDER BY "a" ASC, "b" ASC`)
}

func TestTablePrimaryIndexWinsOverConstraint(t *testing.T) {
	db := NewDatabase("appdb", &fakeQuerier{})
	ns := NewNamespace("public", db)
	tbl := NewTable("orders", ns,
		[]schema.Column{{Name: "id"}, {Name: "region"}},
		[]schema.Constraint{{Name: "orders_pk", Type: "p", Columns: []string{"id"}}},
		[]schema.Index{{Name: "orders_pkey", Primary: true, Keys: []string{"region", "id"}}},
	)
	assert.Equal(t, []string{"region", "id"}, tbl.PrimaryKeyColumns())
}

func TestTableInvalidIdentifier(t *testing.T) {
	db := NewDatabase("appdb", &fakeQuerier{})
	ns := NewNamespace("public", db)
	tbl := NewTable("bad name", ns, []schema.Column{{Name: "id"}}, nil, nil)

	_, err := tbl.GetCount(context.Background())
	assert.ErrorIs(t, err, sqlgen.ErrInvalidIdentifier)
	_, err = tbl.GetDataHash(context.Background())
	assert.ErrorIs(t, err, sqlgen.ErrInvalidIdentifier)
}

func TestTableSchemaHashDeterministic(t *testing.T) {
	cols := []schema.Column{{Name: "id", Type: "integer"}, {Name: "name", Type: "text"}}
	db := NewDatabase("appdb", &fakeQuerier{})
	ns := NewNamespace("public", db)

	a := NewTable("users", ns, cols, nil, nil)
	// same metadata, reversed input order
	b := NewTable("users", ns, []schema.Column{cols[1], cols[0]}, nil, nil)

	ha, err := a.GetSchemaHash(context.Background())
	require.NoError(t, err)
	hb, err := b.GetSchemaHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	// different type changes the hash
	c := NewTable("users", ns, []schema.Column{{Name: "id", Type: "bigint"}, cols[1]}, nil, nil)
	hc, err := c.GetSchemaHash(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestTableGetDiffData(t *testing.T) {
	fq := &fakeQuerier{values: map[string]any{
		usersCountQuery: int64(7),
		usersHashQuery:  "deadbeef",
	}}
	tbl := newTestTable(fq)

	data, err := tbl.GetDiffData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", data.Hash)
	assert.Equal(t, int64(7), data.Count)
	assert.Equal(t, "users", data.Schema.Name)
	assert.Len(t, fq.calls(), 2)
}

func TestTableGetSignature(t *testing.T) {
	fq := &fakeQuerier{values: map[string]any{
		usersCountQuery: int64(3),
		usersHashQuery:  "datahash",
	}}
	tbl := newTestTable(fq)

	schemaHash, err := tbl.GetSchemaHash(context.Background())
	require.NoError(t, err)

	sig, err := tbl.GetSignature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("datahash-%s-3", schemaHash), sig)
}

func TestTableCountMemoized(t *testing.T) {
	fq := &fakeQuerier{values: map[string]any{usersCountQuery: int64(5)}}
	tbl := newTestTable(fq)

	for i := 0; i < 3; i++ {
		count, err := tbl.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	}
	assert.Len(t, fq.calls(), 1)
}

func TestTableFilteredCount(t *testing.T) {
	query := usersCountQuery + ` WHERE "name" ILIKE $1`
	fq := &fakeQuerier{values: map[string]any{query: int64(2)}}
	tbl := newTestTable(fq)

	count, err := tbl.FilteredCount(context.Background(), map[string]any{
		"name": map[string]any{"istarts.with": "jo"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, [][]any{{"jo%"}}, fq.args)
}

func TestTableQueryErrorPropagates(t *testing.T) {
	fq := &fakeQuerier{err: errors.New("connection reset")}
	tbl := newTestTable(fq)

	_, err := tbl.GetCount(context.Background())
	assert.ErrorContains(t, err, "connection reset")

	_, err = tbl.GetDiffData(context.Background())
	assert.Error(t, err)
}

func TestTablePushPullUnimplemented(t *testing.T) {
	tbl := newTestTable(&fakeQuerier{})
	assert.ErrorIs(t, tbl.Push(context.Background(), tbl), ErrNotImplemented)
	assert.ErrorIs(t, tbl.Pull(context.Background(), tbl), ErrNotImplemented)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubNode is a leaf stand-in with fixed values and a configurable delay, so
// completion order can be forced in either direction.
type stubNode struct {
	reconcileStub

	name       string
	count      int64
	dataHash   string
	schemaHash string
	delay      time.Duration
	err        error
}

func (s *stubNode) Name() string { return s.name }

func (s *stubNode) wait() {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

func (s *stubNode) GetCount(ctx context.Context) (int64, error) {
	s.wait()
	return s.count, s.err
}

func (s *stubNode) GetDataHash(ctx context.Context) (string, error) {
	s.wait()
	return s.dataHash, s.err
}

func (s *stubNode) GetSchemaHash(ctx context.Context) (string, error) {
	s.wait()
	return s.schemaHash, s.err
}

func (s *stubNode) GetSignature(ctx context.Context) (string, error) {
	return computeSignature(ctx, s)
}

func newStubTree(name string, nodes ...Node) *Database {
	db := NewDatabase(name, &fakeQuerier{})
	ns := NewNamespace("public", db)
	ns.AddChildren(nodes...)
	db.AddChildren(ns)
	return db
}

func TestCompositeCountSumsChildren(t *testing.T) {
	db := newStubTree("appdb",
		&stubNode{name: "a", count: 10},
		&stubNode{name: "b", count: 5},
		&stubNode{name: "c", count: 1},
	)

	count, err := db.GetCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(16), count)
}

func TestCompositeHashIgnoresCompletionOrder(t *testing.T) {
	// Same children, opposite delays and opposite registration order: the
	// fold sorts on child name, so both digests must match.
	fast := newStubTree("appdb",
		&stubNode{name: "a", dataHash: "h1", delay: 20 * time.Millisecond},
		&stubNode{name: "b", dataHash: "h2"},
	)
	slow := newStubTree("appdb",
		&stubNode{name: "b", dataHash: "h2", delay: 20 * time.Millisecond},
		&stubNode{name: "a", dataHash: "h1"},
	)

	hashFast, err := fast.GetDataHash(context.Background())
	require.NoError(t, err)
	hashSlow, err := slow.GetDataHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hashFast, hashSlow)
}

func TestCompositeHashFoldsByName(t *testing.T) {
	ns := NewNamespace("public", NewDatabase("appdb", &fakeQuerier{}))
	ns.AddChildren(
		&stubNode{name: "b", dataHash: "h2"},
		&stubNode{name: "a", dataHash: "h1"},
	)

	hash, err := ns.GetDataHash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, digest("h1-a,h2-b"), hash)
}

func TestCompositeSignature(t *testing.T) {
	child := &stubNode{name: "t", count: 4, dataHash: "d", schemaHash: "s"}
	ns := NewNamespace("public", NewDatabase("appdb", &fakeQuerier{}))
	ns.AddChildren(child)

	sig, err := ns.GetSignature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s-%s-4", digest("d-t"), digest("s-t")), sig)
}

func TestIdenticalTreesProduceIdenticalSignatures(t *testing.T) {
	build := func() *Database {
		return newStubTree("appdb",
			&stubNode{name: "users", count: 3, dataHash: "du", schemaHash: "su"},
			&stubNode{name: "orders", count: 9, dataHash: "do", schemaHash: "so"},
		)
	}

	sigA, err := build().GetSignature(context.Background())
	require.NoError(t, err)
	sigB, err := build().GetSignature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sigA, sigB)
}

func TestRowMutationChangesDataHashOnly(t *testing.T) {
	base := newStubTree("appdb",
		&stubNode{name: "users", count: 3, dataHash: "du", schemaHash: "su"},
	)
	mutated := newStubTree("appdb",
		&stubNode{name: "users", count: 3, dataHash: "du'", schemaHash: "su"},
	)

	ctx := context.Background()
	baseData, err := base.GetDataHash(ctx)
	require.NoError(t, err)
	mutatedData, err := mutated.GetDataHash(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, baseData, mutatedData)

	baseSchema, err := base.GetSchemaHash(ctx)
	require.NoError(t, err)
	mutatedSchema, err := mutated.GetSchemaHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, baseSchema, mutatedSchema)
}

func TestCompositeFailsWhenAnyChildFails(t *testing.T) {
	boom := errors.New("boom")
	db := newStubTree("appdb",
		&stubNode{name: "ok", count: 1, dataHash: "h"},
		&stubNode{name: "broken", err: boom},
	)

	_, err := db.GetCount(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = db.GetDataHash(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = db.GetSignature(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestEmptyCompositeHasStableSignature(t *testing.T) {
	db := NewDatabase("empty", &fakeQuerier{})

	count, err := db.GetCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	sig, err := db.GetSignature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s-%s-0", digest(""), digest("")), sig)
}

func TestCompositePushPullUnimplemented(t *testing.T) {
	db := NewDatabase("appdb", &fakeQuerier{})
	assert.ErrorIs(t, db.Push(context.Background(), db), ErrNotImplemented)
	assert.ErrorIs(t, db.Pull(context.Background(), db), ErrNotImplemented)
}

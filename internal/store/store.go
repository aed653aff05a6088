// Package store implements the hierarchical signature engine: leaf tables
// answer count and hash queries directly against the database, composite
// nodes (namespaces, databases) fan out to their children concurrently and
// fold the results into one deterministic value.
package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrNotImplemented is returned by the push/pull reconciliation extension
// points, which a future transfer engine would provide.
var ErrNotImplemented = errors.New("not implemented")

// Querier is the single capability the engine needs from its environment:
// run parameterized SQL, get back a scalar or rows. Parameter placeholders
// use the PostgreSQL $1, $2, … convention.
type Querier interface {
	// QueryValue runs a query expected to return a single value.
	QueryValue(ctx context.Context, sql string, args ...any) (any, error)
	// QueryRows runs a query and returns all rows as value slices.
	QueryRows(ctx context.Context, sql string, args ...any) ([][]any, error)
}

// Store is the capability set every node in the hierarchy exposes. Signatures
// are opaque tokens: compared for equality, never parsed.
type Store interface {
	GetCount(ctx context.Context) (int64, error)
	GetDataHash(ctx context.Context) (string, error)
	GetSchemaHash(ctx context.Context) (string, error)
	GetSignature(ctx context.Context) (string, error)
	Push(ctx context.Context, other Store) error
	Pull(ctx context.Context, other Store) error
}

// Node is a named member of the hierarchy. Child names are the stable keys
// composite folds sort on.
type Node interface {
	Store
	Name() string
}

// reconcileStub supplies the unimplemented push/pull extension points.
type reconcileStub struct{}

func (reconcileStub) Push(ctx context.Context, other Store) error {
	return fmt.Errorf("push: %w", ErrNotImplemented)
}

func (reconcileStub) Pull(ctx context.Context, other Store) error {
	return fmt.Errorf("pull: %w", ErrNotImplemented)
}

// computeSignature composes the opaque comparison token from the three
// component values, fetched concurrently. Implemented once; every node's
// GetSignature delegates here.
func computeSignature(ctx context.Context, s Store) (string, error) {
	var (
		dataHash   string
		schemaHash string
		count      int64
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dataHash, err = s.GetDataHash(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		schemaHash, err = s.GetSchemaHash(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = s.GetCount(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%d", dataHash, schemaHash, count), nil
}

// digest hashes a canonical serialization to a hex token, matching the md5
// the data-hash SQL produces server-side.
func digest(serialized string) string {
	sum := md5.Sum([]byte(serialized))
	return hex.EncodeToString(sum[:])
}

// toInt64 normalizes the scalar a driver returns for COUNT(*).
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected count value of type %T", value)
	}
}

// toHash normalizes the scalar a driver returns for a hash aggregate. SQL
// NULL (an empty table) maps to the empty string.
func toHash(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unexpected hash value of type %T", value)
	}
}

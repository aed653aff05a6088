package store

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Namespace is a composite node over tables.
type Namespace struct {
	reconcileStub

	name     string
	database *Database
	children []Node
}

// NewNamespace builds a namespace under its owning database.
func NewNamespace(name string, database *Database) *Namespace {
	return &Namespace{name: name, database: database}
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Database returns the owning database.
func (n *Namespace) Database() *Database { return n.database }

// AddChildren appends child nodes, typically tables.
func (n *Namespace) AddChildren(children ...Node) {
	n.children = append(n.children, children...)
}

// Children returns the child nodes.
func (n *Namespace) Children(ctx context.Context) ([]Node, error) {
	return n.children, nil
}

func (n *Namespace) GetCount(ctx context.Context) (int64, error) {
	return aggregateCount(ctx, n.Children)
}

func (n *Namespace) GetDataHash(ctx context.Context) (string, error) {
	return aggregateHash(ctx, n.Children, Store.GetDataHash)
}

func (n *Namespace) GetSchemaHash(ctx context.Context) (string, error) {
	return aggregateHash(ctx, n.Children, Store.GetSchemaHash)
}

func (n *Namespace) GetSignature(ctx context.Context) (string, error) {
	return computeSignature(ctx, n)
}

// Database is the root composite node. It owns the query-execution
// capability shared by every leaf below it.
type Database struct {
	reconcileStub

	name     string
	querier  Querier
	children []Node
}

// NewDatabase builds the root node around a query-execution capability.
func NewDatabase(name string, querier Querier) *Database {
	return &Database{name: name, querier: querier}
}

// Name returns the database name.
func (d *Database) Name() string { return d.name }

// Querier returns the shared query-execution capability.
func (d *Database) Querier() Querier { return d.querier }

// AddChildren appends child nodes, typically namespaces.
func (d *Database) AddChildren(children ...Node) {
	d.children = append(d.children, children...)
}

// Children returns the child nodes.
func (d *Database) Children(ctx context.Context) ([]Node, error) {
	return d.children, nil
}

func (d *Database) GetCount(ctx context.Context) (int64, error) {
	return aggregateCount(ctx, d.Children)
}

func (d *Database) GetDataHash(ctx context.Context) (string, error) {
	return aggregateHash(ctx, d.Children, Store.GetDataHash)
}

func (d *Database) GetSchemaHash(ctx context.Context) (string, error) {
	return aggregateHash(ctx, d.Children, Store.GetSchemaHash)
}

func (d *Database) GetSignature(ctx context.Context) (string, error) {
	return computeSignature(ctx, d)
}

type childrenFunc func(ctx context.Context) ([]Node, error)

// aggregateCount fans out to every child's count concurrently and sums the
// results. Summation is commutative, so no ordering is needed; any child
// error fails the whole aggregate.
func aggregateCount(ctx context.Context, children childrenFunc) (int64, error) {
	nodes, err := children(ctx)
	if err != nil {
		return 0, err
	}
	counts := make([]int64, len(nodes))
	g, ctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			var err error
			counts[i], err = node.GetCount(ctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	return total, nil
}

// aggregateHash fans out to every child's hash concurrently, pairs each
// result with the child's name, and folds the pairs sorted by name. Sorting
// on the stable key, not completion order, is what keeps the digest
// reproducible run-to-run.
func aggregateHash(ctx context.Context, children childrenFunc, get func(Store, context.Context) (string, error)) (string, error) {
	nodes, err := children(ctx)
	if err != nil {
		return "", err
	}
	type pair struct {
		name string
		hash string
	}
	pairs := make([]pair, len(nodes))
	g, ctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			hash, err := get(node, ctx)
			if err != nil {
				return err
			}
			pairs[i] = pair{name: node.Name(), hash: hash}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].name < pairs[j].name })
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.hash+"-"+p.name)
	}
	return digest(strings.Join(parts, ",")), nil
}

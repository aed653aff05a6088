// Package diff compares two signature trees and reports where they drift.
// Equal signatures short-circuit whole subtrees; only differing composites
// are descended into.
package diff

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mkoppen/pgdrift/internal/store"
)

// Status classifies one entry of a drift report.
type Status string

const (
	// StatusChanged means the object exists on both sides with differing
	// signatures.
	StatusChanged Status = "changed"
	// StatusAdded means the object exists only on the target side.
	StatusAdded Status = "added"
	// StatusRemoved means the object exists only on the source side.
	StatusRemoved Status = "removed"
)

// Entry is one drifted object.
type Entry struct {
	// Path qualifies the object, e.g. "public.users".
	Path   string
	Status Status
	// SourceSignature and TargetSignature are the opaque tokens compared;
	// empty on the side the object is missing from.
	SourceSignature string
	TargetSignature string
	// DataDrift and SchemaDrift classify a changed leaf by which component
	// hash moved. Both false for composite entries and one-sided entries.
	DataDrift   bool
	SchemaDrift bool
}

// Report is the outcome of comparing two trees.
type Report struct {
	Source  string
	Target  string
	Entries []Entry
}

// InSync reports whether no drift was found.
func (r *Report) InSync() bool {
	return len(r.Entries) == 0
}

// container is any node that can enumerate children; databases and
// namespaces qualify, tables do not.
type container interface {
	Children(ctx context.Context) ([]store.Node, error)
}

// Compare walks two trees of the same logical object and reports every
// drifted node. Signatures of a pair are fetched concurrently; equal
// signatures prune the walk.
func Compare(ctx context.Context, source, target store.Node) (*Report, error) {
	report := &Report{Source: source.Name(), Target: target.Name()}
	if err := compareNodes(ctx, source, target, source.Name(), report); err != nil {
		return nil, err
	}
	return report, nil
}

func compareNodes(ctx context.Context, source, target store.Node, path string, report *Report) error {
	sourceSig, targetSig, err := signaturePair(ctx, source, target)
	if err != nil {
		return err
	}
	if sourceSig == targetSig {
		return nil
	}

	sourceChildren, sourceOK := source.(container)
	targetChildren, targetOK := target.(container)
	if sourceOK && targetOK {
		return compareChildren(ctx, sourceChildren, targetChildren, path, report)
	}

	entry := Entry{
		Path:            path,
		Status:          StatusChanged,
		SourceSignature: sourceSig,
		TargetSignature: targetSig,
	}
	if !sourceOK && !targetOK {
		if err := classifyLeafDrift(ctx, source, target, &entry); err != nil {
			return err
		}
	}
	report.Entries = append(report.Entries, entry)
	return nil
}

// compareChildren pairs the two sides' children by name and recurses into
// pairs, reporting one-sided children as added or removed. Names are walked
// in sorted order so reports are deterministic.
func compareChildren(ctx context.Context, source, target container, path string, report *Report) error {
	sourceNodes, err := source.Children(ctx)
	if err != nil {
		return err
	}
	targetNodes, err := target.Children(ctx)
	if err != nil {
		return err
	}

	byName := func(nodes []store.Node) map[string]store.Node {
		m := make(map[string]store.Node, len(nodes))
		for _, n := range nodes {
			m[n.Name()] = n
		}
		return m
	}
	sourceMap := byName(sourceNodes)
	targetMap := byName(targetNodes)

	names := make([]string, 0, len(sourceMap)+len(targetMap))
	for name := range sourceMap {
		names = append(names, name)
	}
	for name := range targetMap {
		if _, ok := sourceMap[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		childPath := path + "." + name
		sourceChild, inSource := sourceMap[name]
		targetChild, inTarget := targetMap[name]

		switch {
		case inSource && inTarget:
			if err := compareNodes(ctx, sourceChild, targetChild, childPath, report); err != nil {
				return err
			}
		case inSource:
			sig, err := sourceChild.GetSignature(ctx)
			if err != nil {
				return err
			}
			report.Entries = append(report.Entries, Entry{
				Path: childPath, Status: StatusRemoved, SourceSignature: sig,
			})
		default:
			sig, err := targetChild.GetSignature(ctx)
			if err != nil {
				return err
			}
			report.Entries = append(report.Entries, Entry{
				Path: childPath, Status: StatusAdded, TargetSignature: sig,
			})
		}
	}
	return nil
}

// classifyLeafDrift marks which component hashes moved on a changed leaf.
func classifyLeafDrift(ctx context.Context, source, target store.Node, entry *Entry) error {
	var sourceData, targetData, sourceSchema, targetSchema string
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sourceData, err = source.GetDataHash(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		targetData, err = target.GetDataHash(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		sourceSchema, err = source.GetSchemaHash(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		targetSchema, err = target.GetSchemaHash(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	entry.DataDrift = sourceData != targetData
	entry.SchemaDrift = sourceSchema != targetSchema
	return nil
}

// signaturePair fetches both sides' signatures concurrently.
func signaturePair(ctx context.Context, source, target store.Store) (string, string, error) {
	var sourceSig, targetSig string
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sourceSig, err = source.GetSignature(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		targetSig, err = target.GetSignature(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return sourceSig, targetSig, nil
}

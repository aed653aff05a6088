package sqlgen

import "errors"

// Sentinel errors for predicate compilation. Callers branch on these with
// errors.Is; the wrapped message carries the offending input.
var (
	// ErrInvalidIdentifier means an identifier failed the grammar check and
	// cannot be interpolated into SQL text.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUnknownOperator means a filter document referenced an operator that
	// is not in the registry.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrInvalidFilter means a filter document is structurally malformed,
	// e.g. an empty operator map or a non-string value under a pattern
	// operator.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrAmbiguousFilter means a combinator key (.and/.or/.not) appears next
	// to plain field keys (or another combinator) at the same level, where
	// map ordering would silently decide which wins.
	ErrAmbiguousFilter = errors.New("ambiguous filter")
)

package sqlgen

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Combinator keys recognized at any level of a filter document. A document is
// either one combinator or a set of field constraints, never both.
const (
	combAnd = ".and"
	combOr  = ".or"
	combNot = ".not"
)

// WhereClause compiles a filter document into a SQL predicate fragment.
//
// args is the shared positional parameter list for the whole statement:
// values are appended to it and referenced as $1, $2, … by list position, so
// callers pre-seed it when earlier parameters already exist. Field and
// operator keys are compiled in sorted order, which keeps parameter numbering
// deterministic across runs.
//
// Field identifiers are validated before interpolation; values are always
// bound, never interpolated.
func WhereClause(doc map[string]any, args *[]any) (string, error) {
	if combined, ok, err := compileCombinator(doc, args); ok || err != nil {
		return combined, err
	}

	fields := make([]string, 0, len(doc))
	for field := range doc {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clauses := make([]string, 0, len(fields))
	for _, field := range fields {
		clause, err := compileField(field, doc[field], args)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return joinAnd(clauses), nil
}

// compileCombinator handles the .and/.or/.not forms. The second return is
// false when the document holds no combinator at all.
func compileCombinator(doc map[string]any, args *[]any) (string, bool, error) {
	var present []string
	for _, key := range []string{combAnd, combOr, combNot} {
		if _, ok := doc[key]; ok {
			present = append(present, key)
		}
	}
	if len(present) == 0 {
		return "", false, nil
	}
	if len(present) > 1 || len(doc) > 1 {
		return "", true, fmt.Errorf(
			"%w: combinator %s mixed with other keys at the same level",
			ErrAmbiguousFilter, present[0])
	}

	key := present[0]
	if key == combNot {
		sub, ok := asDocument(doc[key])
		if !ok {
			return "", true, fmt.Errorf("%w: .not expects a filter document", ErrInvalidFilter)
		}
		inner, err := WhereClause(sub, args)
		if err != nil {
			return "", true, err
		}
		return "NOT " + parens(inner), true, nil
	}

	subs, ok := asDocumentList(doc[key])
	if !ok {
		return "", true, fmt.Errorf("%w: %s expects a list of filter documents", ErrInvalidFilter, key)
	}
	joiner := " AND "
	if key == combOr {
		joiner = " OR "
	}
	parts := make([]string, 0, len(subs))
	for _, sub := range subs {
		inner, err := WhereClause(sub, args)
		if err != nil {
			return "", true, err
		}
		parts = append(parts, parens(inner))
	}
	return strings.Join(parts, joiner), true, nil
}

// compileField compiles one field's constraints. A bare literal is shorthand
// for {"equals": literal}; a mapping may hold several operators, which are
// ANDed together.
func compileField(field string, operatorValue any, args *[]any) (string, error) {
	if _, err := CheckIdentifier(field); err != nil {
		return "", err
	}

	constraints, ok := asDocument(operatorValue)
	if !ok {
		constraints = map[string]any{"equals": operatorValue}
	} else if len(constraints) == 0 {
		return "", fmt.Errorf("%w: empty operator map for field %q", ErrInvalidFilter, field)
	}

	names := make([]string, 0, len(constraints))
	for name := range constraints {
		names = append(names, name)
	}
	sort.Strings(names)

	clauses := make([]string, 0, len(names))
	for _, name := range names {
		clause, err := compileOperator(field, name, constraints[name], args)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return joinAnd(clauses), nil
}

func compileOperator(field, name string, value any, args *[]any) (string, error) {
	op, ok := operators[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}

	if op.null {
		// The payload is a boolean: truthy keeps IS NULL, falsy flips it
		// to IS NOT NULL.
		not := "NOT "
		if isTruthy(value) {
			not = ""
		}
		return Quote(field) + " IS " + not + "NULL", nil
	}

	if op.pattern {
		translated, err := translatePattern(op, value)
		if err != nil {
			return "", fmt.Errorf("operator %q on field %q: %w", name, field, err)
		}
		value = translated
	}

	placeholder := bindValue(value, args)
	return Quote(field) + " " + op.keyword + " " + placeholder, nil
}

// translatePattern escapes LIKE metacharacters in the literal, then applies
// the operator's wildcard translation (e.g. starts.with appends %). Raw
// values skip escaping but still get the wildcards.
func translatePattern(op operator, value any) (string, error) {
	var literal string
	switch v := value.(type) {
	case Raw:
		literal = string(v)
	case string:
		literal = escapeLike(v)
	default:
		return "", fmt.Errorf("%w: pattern operators require a string value, got %T", ErrInvalidFilter, value)
	}
	return op.prefix + literal + op.suffix, nil
}

// bindValue appends the value to the shared parameter list and returns its
// placeholder. Sequences expand element-wise into a parenthesized list for
// IN. Placeholder numbers are the list length after each append, 1-indexed.
func bindValue(value any, args *[]any) string {
	rv := reflect.ValueOf(value)
	if value != nil && rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		placeholders := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			*args = append(*args, rv.Index(i).Interface())
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
		}
		return parens(strings.Join(placeholders, ", "))
	}
	*args = append(*args, value)
	return fmt.Sprintf("$%d", len(*args))
}

// joinAnd ANDs clauses together, parenthesizing each only when there is more
// than one.
func joinAnd(clauses []string) string {
	if len(clauses) == 1 {
		return clauses[0]
	}
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, parens(c))
	}
	return strings.Join(parts, " AND ")
}

func asDocument(value any) (map[string]any, bool) {
	doc, ok := value.(map[string]any)
	return doc, ok
}

func asDocumentList(value any) ([]map[string]any, bool) {
	switch v := value.(type) {
	case []map[string]any:
		return v, true
	case []any:
		docs := make([]map[string]any, 0, len(v))
		for _, item := range v {
			doc, ok := asDocument(item)
			if !ok {
				return nil, false
			}
			docs = append(docs, doc)
		}
		return docs, true
	default:
		return nil, false
	}
}

// isTruthy mirrors boolean coercion for filter payloads: nil, false, zero
// numbers, and empty strings are falsy.
func isTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}

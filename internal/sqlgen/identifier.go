package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex is the grammar for schema object names. Anything outside it
// is rejected before interpolation: identifiers cannot be parameterized, so
// validation is the only gate between caller input and SQL text.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z][-_a-zA-Z0-9$]*$`)

// Raw marks a string as a caller-trusted SQL fragment that bypasses
// identifier checks and value escaping.
type Raw string

// ShouldEscape reports whether a value must go through escaping. Only Raw
// fragments are exempt.
func ShouldEscape(value any) bool {
	_, raw := value.(Raw)
	return !raw
}

// CheckIdentifier returns the identifier unchanged if it matches the grammar.
func CheckIdentifier(ident string) (string, error) {
	if !identifierRegex.MatchString(ident) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, ident)
	}
	return ident, nil
}

// Quote wraps an identifier in double quotes. The caller must have validated
// it, unless it is a Raw fragment.
func Quote(ident string) string {
	return `"` + ident + `"`
}

// FormatTable qualifies and quotes a table reference, as "schema"."table" or
// bare "table". With check set, both identifiers are validated first.
func FormatTable(table, schema string, check bool) (string, error) {
	if check {
		if _, err := CheckIdentifier(table); err != nil {
			return "", err
		}
		if schema != "" {
			if _, err := CheckIdentifier(schema); err != nil {
				return "", err
			}
		}
	}
	if schema != "" {
		return Quote(schema) + "." + Quote(table), nil
	}
	return Quote(table), nil
}

// FormatColumn qualifies and quotes a column reference, optionally scoped to
// a table (and schema).
func FormatColumn(col string, check bool, table, schema string) (string, error) {
	if check {
		if _, err := CheckIdentifier(col); err != nil {
			return "", err
		}
	}
	if table != "" {
		qualified, err := FormatTable(table, schema, check)
		if err != nil {
			return "", err
		}
		return qualified + "." + Quote(col), nil
	}
	return Quote(col), nil
}

// SortColumns renders an ORDER BY column list. A leading "-" on a column name
// selects descending order.
func SortColumns(cols []string, check bool, table, schema string) (string, error) {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		direction := "ASC"
		if strings.HasPrefix(c, "-") {
			direction = "DESC"
			c = c[1:]
		}
		formatted, err := FormatColumn(c, check, table, schema)
		if err != nil {
			return "", err
		}
		parts = append(parts, formatted+" "+direction)
	}
	return strings.Join(parts, ", "), nil
}

// ListColumns renders a comma-separated column list.
func ListColumns(cols []string, check bool, table, schema string) (string, error) {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		formatted, err := FormatColumn(c, check, table, schema)
		if err != nil {
			return "", err
		}
		parts = append(parts, formatted)
	}
	return strings.Join(parts, ", "), nil
}

func parens(value string) string {
	return "(" + value + ")"
}

// Package schema holds the structural metadata signatures are computed over.
// Descriptor lists are stored sorted by name so hashing and display are
// deterministic regardless of catalog read order.
package schema

import "sort"

// Column describes a table column.
type Column struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"default,omitempty"`
}

// Constraint describes a table constraint. Type uses the pg_constraint
// single-letter codes; "p" is a primary key.
type Constraint struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Columns   []string `json:"columns"`
	IndexName string   `json:"index_name,omitempty"`
}

// Index describes a table index. Keys are the key columns in index order;
// Columns may additionally carry included columns.
type Index struct {
	Name    string   `json:"name"`
	Primary bool     `json:"primary"`
	Keys    []string `json:"keys"`
	Columns []string `json:"columns"`
}

// Table is the full structural projection of one table.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"attributes"`
	Constraints []Constraint `json:"constraints"`
	Indexes     []Index      `json:"indexes"`
}

// PrimaryConstraintType is the pg_constraint code for a primary key.
const PrimaryConstraintType = "p"

// SortColumns returns a copy sorted by column name.
func SortColumns(cols []Column) []Column {
	sorted := append([]Column(nil), cols...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted
}

// SortConstraints returns a copy sorted by constraint name.
func SortConstraints(cons []Constraint) []Constraint {
	sorted := append([]Constraint(nil), cons...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted
}

// SortIndexes returns a copy sorted by index name.
func SortIndexes(idxs []Index) []Index {
	sorted := append([]Index(nil), idxs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted
}

// PrimaryKey resolves the columns that give rows a deterministic order:
// first an index flagged primary, then a primary-key constraint, and with
// neither declared the full column list — without a real key the whole row
// is the key.
func PrimaryKey(indexes []Index, constraints []Constraint, columns []Column) []string {
	for _, idx := range indexes {
		if idx.Primary && len(idx.Keys) > 0 {
			return idx.Keys
		}
	}
	for _, con := range constraints {
		if con.Type == PrimaryConstraintType && len(con.Columns) > 0 {
			return con.Columns
		}
	}
	pks := make([]string, 0, len(columns))
	for _, col := range columns {
		pks = append(pks, col.Name)
	}
	return pks
}

// Package introspect reads table metadata from PostgreSQL, MySQL and SQLite
// and converts it into schema entities.
package introspect

import "slices"

// Table is the metadata of one database table
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Column is the metadata of one table column
type Column struct {
	Name          string
	Type          string // engine type, normalized and lower-cased
	Nullable      bool
	Default       *string
	MaxLength     *int
	IsUnique      bool
	AutoIncrement bool
	EnumValues    []string
}

// ForeignKey is a (possibly composite) foreign key constraint
type ForeignKey struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          string
	OnUpdate          string
}

// Index is a secondary index. Primary key indexes are not reported.
type Index struct {
	Name    string
	Unique  bool
	Columns []string
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsUniqueSet reports whether columns are covered by the primary key or by a
// unique constraint with exactly the same columns.
func (t *Table) IsUniqueSet(columns []string) bool {
	if sameColumns(t.PrimaryKey, columns) {
		return true
	}
	if len(columns) == 1 {
		if c, ok := t.Column(columns[0]); ok && c.IsUnique {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && sameColumns(idx.Columns, columns) {
			return true
		}
	}
	return false
}

func sameColumns(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

// groupForeignKeys merges per-column foreign key rows into constraints,
// keeping the order in which constraints first appear.
func groupForeignKeys(rows []ForeignKey) []ForeignKey {
	var out []ForeignKey
	pos := make(map[string]int)
	for _, r := range rows {
		if i, ok := pos[r.Name]; ok && r.Name != "" {
			out[i].Columns = append(out[i].Columns, r.Columns...)
			out[i].ReferencedColumns = append(out[i].ReferencedColumns, r.ReferencedColumns...)
			continue
		}
		pos[r.Name] = len(out)
		out = append(out, r)
	}
	return out
}

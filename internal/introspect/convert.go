package introspect

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/tordrt/prismaschema/internal/schema"
)

var rules = inflect.NewDefaultRuleset()

// ModelName returns the model name for a table: singular and PascalCase.
func ModelName(table string) string {
	return rules.Camelize(rules.Singularize(table))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// referentialAction maps an engine rule; NO ACTION is the engine default and
// is not printed.
func referentialAction(rule string) schema.ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
	case "CASCADE":
		return schema.Cascade
	case "RESTRICT":
		return schema.Restrict
	case "SET NULL":
		return schema.SetNull
	case "SET DEFAULT":
		return schema.SetDefault
	default:
		return schema.NoneAction
	}
}

// fieldNames hands out field names unique within one model
type fieldNames map[string]bool

func (n fieldNames) take(name string) string {
	candidate := name
	for i := 2; n[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	n[candidate] = true
	return candidate
}

// relation is a foreign key whose target table is part of the conversion
type relation struct {
	owner  *Table
	target *Table
	fk     ForeignKey
	named  bool
}

func (r relation) name() string {
	if !r.named {
		return ""
	}
	return fmt.Sprintf("%s_%sTo%s", r.owner.Name, strings.Join(r.fk.Columns, "_"), r.target.Name)
}

// columnStem turns a foreign key column into a relation field name:
// "author_id" -> "author", "customerId" -> "customer".
func columnStem(column string) string {
	for _, suffix := range []string{"_id", "Id", "ID", "_fk"} {
		if stem, ok := strings.CutSuffix(column, suffix); ok && stem != "" {
			return rules.CamelizeDownFirst(stem)
		}
	}
	return ""
}

// Convert turns tables into models. Table order is preserved. Foreign keys
// to tables outside the set keep their scalar columns but get no relation
// field.
func Convert(provider schema.Provider, tables []Table) ([]schema.Entity, error) {
	byName := make(map[string]*Table, len(tables))
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}

	models := modelNames(tables)

	var relations []relation
	pairs := make(map[string]int)
	pairKey := func(a, b string) string {
		if a > b {
			a, b = b, a
		}
		return a + "\x00" + b
	}
	for i := range tables {
		t := &tables[i]
		for _, fk := range t.ForeignKeys {
			target, ok := byName[fk.ReferencedTable]
			if !ok {
				continue
			}
			fk = resolveReferences(fk, target)
			if len(fk.Columns) == 0 || len(fk.ReferencedColumns) != len(fk.Columns) {
				continue
			}
			relations = append(relations, relation{owner: t, target: target, fk: fk})
			pairs[pairKey(t.Name, target.Name)]++
		}
	}
	for i := range relations {
		r := &relations[i]
		r.named = r.owner == r.target || pairs[pairKey(r.owner.Name, r.target.Name)] > 1
	}

	fields := make(map[string][]schema.Field, len(tables))
	names := make(map[string]fieldNames, len(tables))
	for i := range tables {
		t := &tables[i]
		names[t.Name] = make(fieldNames, len(t.Columns))
		for _, c := range t.Columns {
			names[t.Name][c.Name] = true
		}
		scalars, err := scalarFields(provider, t, relations)
		if err != nil {
			return nil, fmt.Errorf("failed to convert table %s: %w", t.Name, err)
		}
		fields[t.Name] = scalars
	}

	for _, r := range relations {
		target := models[r.target.Name]

		forward := lowerFirst(target)
		if r.named {
			if stem := columnStem(r.fk.Columns[0]); stem != "" && len(r.fk.Columns) == 1 {
				forward = stem
			} else {
				forward = lowerFirst(target) + "By" + rules.Camelize(strings.Join(r.fk.Columns, "_"))
			}
		}
		required := true
		for _, c := range r.fk.Columns {
			if col, ok := r.owner.Column(c); ok && col.Nullable {
				required = false
			}
		}
		f, err := schema.NewRelationField(schema.RelationFieldOptions{
			Name:               names[r.owner.Name].take(forward),
			Type:               target,
			IsRequired:         required,
			RelationName:       r.name(),
			RelationFields:     r.fk.Columns,
			RelationReferences: r.fk.ReferencedColumns,
			OnDelete:           referentialAction(r.fk.OnDelete),
			OnUpdate:           referentialAction(r.fk.OnUpdate),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to convert foreign key %s of table %s: %w", r.fk.Name, r.owner.Name, err)
		}
		fields[r.owner.Name] = append(fields[r.owner.Name], f)
	}

	for _, r := range relations {
		owner := models[r.owner.Name]

		oneToOne := r.owner.IsUniqueSet(r.fk.Columns)
		back := lowerFirst(owner)
		if !oneToOne {
			back = lowerFirst(rules.Pluralize(owner))
		}
		if r.named {
			back += "By" + rules.Camelize(strings.Join(r.fk.Columns, "_"))
		}
		f, err := schema.NewRelationField(schema.RelationFieldOptions{
			Name:         names[r.target.Name].take(back),
			Type:         owner,
			IsList:       !oneToOne,
			RelationName: r.name(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to convert foreign key %s of table %s: %w", r.fk.Name, r.owner.Name, err)
		}
		fields[r.target.Name] = append(fields[r.target.Name], f)
	}

	entities := make([]schema.Entity, 0, len(tables))
	for i := range tables {
		t := &tables[i]
		opts := schema.ModelOptions{
			Name:          models[t.Name],
			Fields:        fields[t.Name],
			Indexes:       indexes(t),
			UniqueIndexes: uniqueIndexes(t),
		}
		if opts.Name != t.Name {
			opts.Map = t.Name
		}
		m, err := schema.NewModel(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to convert table %s: %w", t.Name, err)
		}
		entities = append(entities, m)
	}

	return entities, nil
}

// modelNames assigns a distinct model name to every table.
func modelNames(tables []Table) map[string]string {
	out := make(map[string]string, len(tables))
	used := make(fieldNames, len(tables))
	for _, t := range tables {
		name := ModelName(t.Name)
		if used[name] {
			name = rules.Camelize(t.Name)
		}
		out[t.Name] = used.take(name)
	}
	return out
}

// resolveReferences fills referenced columns left empty by the engine with
// the target's primary key.
func resolveReferences(fk ForeignKey, target *Table) ForeignKey {
	if !slices.Contains(fk.ReferencedColumns, "") {
		return fk
	}
	if len(target.PrimaryKey) != len(fk.Columns) {
		return ForeignKey{Name: fk.Name}
	}
	fk.ReferencedColumns = slices.Clone(target.PrimaryKey)
	return fk
}

func scalarFields(provider schema.Provider, t *Table, relations []relation) ([]schema.Field, error) {
	foreignKeys := make(map[string]bool)
	for _, r := range relations {
		if r.owner == t {
			for _, c := range r.fk.Columns {
				foreignKeys[c] = true
			}
		}
	}

	singleID := len(t.PrimaryKey) == 1
	out := make([]schema.Field, 0, len(t.Columns))
	for _, col := range t.Columns {
		ct := mapColumnType(provider, col)
		isID := singleID && t.PrimaryKey[0] == col.Name
		f, err := schema.NewScalarField(schema.ScalarFieldOptions{
			Name:          col.Name,
			Type:          ct.Scalar,
			IsList:        ct.List,
			IsRequired:    !col.Nullable,
			IsID:          isID,
			IsUnique:      !isID && t.IsUniqueSet([]string{col.Name}),
			IsForeignKey:  foreignKeys[col.Name],
			Default:       mapDefault(provider, ct.Scalar, col),
			Documentation: ct.Documentation,
			NativeMapping: ct.Native,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func indexFields(columns []string) []schema.IndexField {
	out := make([]schema.IndexField, len(columns))
	for i, c := range columns {
		out[i] = schema.IndexField{Name: c}
	}
	return out
}

func indexes(t *Table) []schema.Index {
	var out []schema.Index
	for _, idx := range t.Indexes {
		if !idx.Unique {
			out = append(out, schema.Index{Fields: indexFields(idx.Columns)})
		}
	}
	return out
}

// uniqueIndexes covers composite primary keys and multi-column unique
// indexes; single columns are marked @unique on the field.
func uniqueIndexes(t *Table) []schema.UniqueIndex {
	var out []schema.UniqueIndex
	if len(t.PrimaryKey) > 1 {
		out = append(out, schema.UniqueIndex{Fields: indexFields(t.PrimaryKey)})
	}
	for _, idx := range t.Indexes {
		if !idx.Unique || len(idx.Columns) < 2 || sameColumns(idx.Columns, t.PrimaryKey) {
			continue
		}
		out = append(out, schema.UniqueIndex{Name: idx.Name, Fields: indexFields(idx.Columns)})
	}
	return out
}

// Package gostruct emits Go struct declarations carrying prisma struct tags
// for schema entities. Reflecting the emitted types with a TagSource yields
// the same entities back.
package gostruct

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/tordrt/prismaschema/internal/schema"
)

// MarkerPackage is the import path providing the Model and View markers.
const MarkerPackage = "github.com/tordrt/prismaschema"

// Struct tag keys, matching the ones read by the reflector.
const (
	tagKey    = "prisma"
	docTagKey = "prismadoc"
)

var rules = inflect.NewDefaultRuleset()

var acronyms = map[string]bool{
	"ACL": true, "API": true, "ASCII": true, "CPU": true, "CSS": true, "DNS": true,
	"EOF": true, "GUID": true, "HTML": true, "HTTP": true, "HTTPS": true, "ID": true,
	"IP": true, "JSON": true, "LHS": true, "QPS": true, "RAM": true, "RHS": true,
	"RPC": true, "SLA": true, "SMTP": true, "SQL": true, "SSH": true, "TCP": true,
	"TLS": true, "TTL": true, "UDP": true, "UI": true, "UID": true, "URI": true,
	"URL": true, "UTF8": true, "UUID": true, "VM": true, "XML": true, "XMPP": true,
}

// pascal converts a field name to an exported Go identifier: user_id -> UserID.
func pascal(s string) string {
	words := strings.FieldsFunc(rules.Underscore(s), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var b strings.Builder
	for _, w := range words {
		if upper := strings.ToUpper(w); acronyms[upper] {
			b.WriteString(upper)
			continue
		}
		b.WriteString(rules.Capitalize(w))
	}
	return b.String()
}

// Options configures Emit
type Options struct {
	// Package is the package clause of the emitted file.
	Package string
	// MarkerPackage overrides the import path of the Model and View markers.
	MarkerPackage string
}

// Emit writes a Go file declaring one struct per entity.
func Emit(w io.Writer, opts Options, entities []schema.Entity) error {
	if opts.Package == "" {
		return fmt.Errorf("package name is required")
	}
	marker := opts.MarkerPackage
	if marker == "" {
		marker = MarkerPackage
	}

	f := jen.NewFile(opts.Package)
	f.HeaderComment("Code generated by prismaschema. DO NOT EDIT.")

	for _, e := range entities {
		code, err := entityStruct(marker, e)
		if err != nil {
			return fmt.Errorf("failed to emit %s: %w", e.Name, err)
		}
		if e.Documentation != "" {
			f.Comment(e.Documentation)
		}
		f.Add(code)
		f.Line()
	}

	if err := f.Render(w); err != nil {
		return fmt.Errorf("failed to render Go source: %w", err)
	}
	return nil
}

func entityStruct(marker string, e schema.Entity) (jen.Code, error) {
	markerName := "Model"
	if e.Kind == schema.ViewKind {
		markerName = "View"
	}

	fields := make([]jen.Code, 0, len(e.Fields)+1)
	fields = append(fields, jen.Qual(marker, markerName).Tag(tags(EntityTag(e), e.Documentation)))

	used := map[string]bool{markerName: true}
	for _, field := range e.Fields {
		if field.Name == "" {
			return nil, fmt.Errorf("field without a name")
		}
		name := pascal(field.Name)
		if name == "" || !isLetter(name[0]) {
			name = "F" + name
		}
		for i := 2; used[name]; i++ {
			name = pascal(field.Name) + strconv.Itoa(i)
		}
		used[name] = true

		tag, err := FieldTag(field)
		if err != nil {
			return nil, err
		}
		fields = append(fields, jen.Id(name).Add(goType(field)).Tag(tags(tag, field.Documentation)))
	}

	return jen.Type().Id(e.Name).Struct(fields...), nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func tags(value, doc string) map[string]string {
	t := map[string]string{tagKey: value}
	if doc != "" {
		t[docTagKey] = doc
	}
	return t
}

// goType picks the Go type whose reflected type is the field's type.
// Optional singular fields are pointers.
func goType(f schema.Field) *jen.Statement {
	var t *jen.Statement
	nilable := false
	if f.Kind == schema.RelationKind {
		t = jen.Id(f.Relation.Type)
	} else {
		switch f.Scalar.Type {
		case schema.String:
			t = jen.String()
		case schema.Boolean:
			t = jen.Bool()
		case schema.Int:
			t = jen.Int()
		case schema.BigInt:
			t = jen.Int64()
		case schema.DateTime:
			t = jen.Qual("time", "Time")
		case schema.Json:
			t, nilable = jen.Qual("encoding/json", "RawMessage"), true
		case schema.Bytes:
			t, nilable = jen.Index().Byte(), true
		default:
			t = jen.Float64()
		}
	}

	switch {
	case f.IsList:
		return jen.Index().Add(t)
	case f.Kind == schema.RelationKind:
		return jen.Op("*").Add(t)
	case !f.IsRequired && !nilable:
		return jen.Op("*").Add(t)
	}
	return t
}

// typeOverride names the scalar types a Go type cannot express on its own.
func typeOverride(t schema.ScalarType) string {
	switch t {
	case schema.Int, schema.BigInt, schema.Decimal:
		return string(t)
	}
	return ""
}

func indexFields(fields []schema.IndexField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name
		if f.Sort != "" {
			parts[i] += ":" + string(f.Sort)
		}
	}
	return strings.Join(parts, "|")
}

// EntityTag renders the prisma tag of an entity's marker field.
func EntityTag(e schema.Entity) string {
	var opts []string
	if e.Map != "" {
		opts = append(opts, "map="+e.Map)
	}
	for _, idx := range e.Indexes {
		opts = append(opts, "index="+indexFields(idx.Fields))
	}
	for _, idx := range e.UniqueIndexes {
		v := indexFields(idx.Fields)
		if idx.Name != "" {
			v = idx.Name + "=" + v
		}
		opts = append(opts, "unique="+v)
	}
	for _, idx := range e.FullTextIndexes {
		opts = append(opts, "fulltext="+indexFields(idx.Fields))
	}
	return strings.Join(opts, ",")
}

func formatDefault(d schema.Default) (string, error) {
	if callee, ok := d.Callee(); ok {
		return callee + "()", nil
	}
	v, _ := d.Value()
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case bool:
		s = strconv.FormatBool(v)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "", fmt.Errorf("unsupported default %v", v)
	}
	if strings.Contains(s, ",") {
		return "", fmt.Errorf("default %s cannot be written to a struct tag", s)
	}
	return s, nil
}

// FieldTag renders the prisma tag of a field.
func FieldTag(f schema.Field) (string, error) {
	opts := []string{"name=" + f.Name}
	if f.IsRequired {
		opts = append(opts, "required")
	}

	if f.Kind == schema.ScalarKind {
		s := f.Scalar
		if t := typeOverride(s.Type); t != "" {
			if f.IsList {
				t += "[]"
			}
			opts = append(opts, "type="+t)
		}
		if s.IsID {
			opts = append(opts, "id")
		}
		if s.IsUnique {
			opts = append(opts, "unique")
		}
		if s.IsUpdatedAt {
			opts = append(opts, "updatedAt")
		}
		if s.IsForeignKey {
			opts = append(opts, "fk")
		}
		if s.Default.IsSet() {
			d, err := formatDefault(s.Default)
			if err != nil {
				return "", fmt.Errorf("field %s: %w", f.Name, err)
			}
			opts = append(opts, "default="+d)
		}
	} else {
		r := f.Relation
		if r.RelationName != "" {
			opts = append(opts, "relation="+r.RelationName)
		}
		if len(r.RelationToFields) > 0 {
			opts = append(opts, "fields="+strings.Join(r.RelationToFields, "|"))
		}
		if len(r.RelationReferences) > 0 {
			opts = append(opts, "references="+strings.Join(r.RelationReferences, "|"))
		}
		if r.OnDelete != "" && r.OnDelete != schema.NoneAction {
			opts = append(opts, "onDelete="+string(r.OnDelete))
		}
		if r.OnUpdate != "" && r.OnUpdate != schema.NoneAction {
			opts = append(opts, "onUpdate="+string(r.OnUpdate))
		}
	}

	if m := f.NativeMapping; m != nil {
		v := m.Name
		if len(m.Arguments) > 0 {
			args := make([]string, len(m.Arguments))
			for i, a := range m.Arguments {
				args[i] = fmt.Sprint(a)
			}
			v += "(" + strings.Join(args, ", ") + ")"
		}
		opts = append(opts, "native="+v)
	}

	return strings.Join(opts, ","), nil
}

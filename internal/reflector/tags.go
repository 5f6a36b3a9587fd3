package reflector

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tordrt/prismaschema/internal/errs"
	"github.com/tordrt/prismaschema/internal/schema"
)

// Struct tag keys read by TagSource.
const (
	TagKey    = "prisma"
	DocTagKey = "prismadoc"
)

// Model marks a struct as a model when embedded. Its prisma tag carries the
// entity options.
//
//	type Customer struct {
//		reflector.Model `prisma:"map=customers,unique=id"`
//		ID string `prisma:"id,required"`
//	}
type Model struct{}

// View marks a struct as a view when embedded.
type View struct{}

var (
	modelType      = reflect.TypeOf(Model{})
	viewType       = reflect.TypeOf(View{})
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage{})
)

// TagSource is a Source reading metadata from Go struct types. Struct types
// referenced by declared structs are discovered as they are reflected.
type TagSource struct {
	types map[Declaration]*declared
	order []Declaration
}

// declared is a registered struct type with its parsed entity options.
type declared struct {
	t    reflect.Type
	meta EntityMeta
	err  error
}

// NewTagSource creates an empty tag source
func NewTagSource() *TagSource {
	return &TagSource{types: make(map[Declaration]*declared)}
}

// DeclarationOf returns the declaration identifying t.
func DeclarationOf(t reflect.Type) Declaration {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return Declaration(t.Name())
	}
	return Declaration(t.PkgPath() + "." + t.Name())
}

// Declare registers the struct type of v, which may be a value, a pointer or
// a reflect.Type.
func (s *TagSource) Declare(v any) (Declaration, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	if t == nil {
		return "", errs.New(errs.KindClassification, "cannot declare a nil value")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t.Name() == "" {
		return "", errs.New(errs.KindClassification, fmt.Sprintf("%s is not a named struct type", t))
	}
	if _, ok := marker(t); !ok {
		return "", errs.New(errs.KindClassification, fmt.Sprintf("%s embeds neither Model nor View", t))
	}

	d := DeclarationOf(t)
	if dt, ok := s.types[d]; ok {
		return d, dt.err
	}
	meta, err := entityMeta(t)
	if err != nil {
		return "", err
	}
	s.add(d, &declared{t: t, meta: meta})
	return d, nil
}

// Declarations returns the declared and discovered declarations
func (s *TagSource) Declarations() []Declaration {
	return append([]Declaration(nil), s.order...)
}

// register records a struct type discovered through a field. Malformed
// entity options are kept and reported by Properties.
func (s *TagSource) register(t reflect.Type) Declaration {
	d := DeclarationOf(t)
	if _, ok := s.types[d]; !ok {
		meta, err := entityMeta(t)
		s.add(d, &declared{t: t, meta: meta, err: err})
	}
	return d
}

func (s *TagSource) add(d Declaration, dt *declared) {
	s.types[d] = dt
	s.order = append(s.order, d)
}

// entityMeta parses the options of the marker embedded in t.
func entityMeta(t reflect.Type) (EntityMeta, error) {
	m, _ := marker(t)
	meta := EntityMeta{Kind: schema.ModelKind, Name: t.Name(), Documentation: m.Tag.Get(DocTagKey)}
	if m.Type == viewType {
		meta.Kind = schema.ViewKind
	}
	if err := parseEntityTag(m.Tag.Get(TagKey), &meta); err != nil {
		return meta, errs.Wrap(errs.KindStructural, "invalid prisma tag", err).InEntity(meta.Name)
	}
	return meta, nil
}

// marker returns the embedded Model or View field of t.
func marker(t reflect.Type) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && (f.Type == modelType || f.Type == viewType) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// Entity implements Source
func (s *TagSource) Entity(d Declaration) (EntityMeta, bool) {
	dt, ok := s.types[d]
	if !ok {
		return EntityMeta{}, false
	}
	return dt.meta, true
}

// Properties implements Source
func (s *TagSource) Properties(d Declaration) ([]Property, error) {
	dt, ok := s.types[d]
	if !ok {
		return nil, errs.New(errs.KindClassification, fmt.Sprintf("declaration %s is not declared", d))
	}
	if dt.err != nil {
		return nil, dt.err
	}
	return s.properties(dt.t)
}

func (s *TagSource) properties(t reflect.Type) ([]Property, error) {
	var props []Property
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			if f.Type == modelType || f.Type == viewType {
				continue
			}
			et := f.Type
			for et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if _, tagged := f.Tag.Lookup(TagKey); !tagged && et.Kind() == reflect.Struct {
				if _, isEntity := marker(et); !isEntity {
					embedded, err := s.properties(et)
					if err != nil {
						return nil, err
					}
					props = append(props, embedded...)
					continue
				}
			}
		}
		if !f.IsExported() {
			continue
		}

		tag, ok := f.Tag.Lookup(TagKey)
		if !ok || tag == "-" {
			// not part of the entity; its type is not followed
			props = append(props, Property{Name: f.Name, Type: UnknownType(f.Type.String())})
			continue
		}
		meta, err := parseFieldTag(tag)
		if err != nil {
			return nil, errs.Wrap(errs.KindStructural, "invalid prisma tag", err).InField(f.Name)
		}
		meta.Documentation = f.Tag.Get(DocTagKey)
		props = append(props, Property{Name: f.Name, Type: s.typeOf(f.Type), Field: meta})
	}
	return props, nil
}

func (s *TagSource) typeOf(t reflect.Type) TypeRef {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return DateTimeType()
	case t == rawMessageType:
		return ScalarOf(schema.Json)
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return ScalarOf(schema.Bytes)
	}

	switch t.Kind() {
	case reflect.String:
		return StringType()
	case reflect.Bool:
		return BooleanType()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return NumberType()
	case reflect.Slice, reflect.Array:
		return ListOf(s.typeOf(t.Elem()))
	case reflect.Struct:
		if _, ok := marker(t); ok && t.Name() != "" {
			return DeclRef(s.register(t))
		}
	}
	return UnknownType(t.String())
}

// splitTag splits a tag on commas outside of parentheses.
func splitTag(tag string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range tag {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(tag[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(tag[start:]); rest != "" || len(parts) > 0 {
		parts = append(parts, rest)
	}
	return parts
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseIndexFields parses "a:desc|b" into index fields.
func parseIndexFields(v string) ([]schema.IndexField, error) {
	names := splitList(v)
	if len(names) == 0 {
		return nil, fmt.Errorf("index %q has no fields", v)
	}
	fields := make([]schema.IndexField, 0, len(names))
	for _, n := range names {
		name, sort, _ := strings.Cut(n, ":")
		fields = append(fields, schema.IndexField{Name: name, Sort: schema.SortOrder(strings.ToLower(sort))})
	}
	return fields, nil
}

func parseEntityTag(tag string, meta *EntityMeta) error {
	for _, opt := range splitTag(tag) {
		if opt == "" {
			continue
		}
		key, value, _ := strings.Cut(opt, "=")
		switch key {
		case "name":
			meta.Name = value
		case "map":
			meta.Map = value
		case "index":
			fields, err := parseIndexFields(value)
			if err != nil {
				return err
			}
			meta.Indexes = append(meta.Indexes, schema.Index{Fields: fields})
		case "unique":
			idx := schema.UniqueIndex{}
			if name, list, named := strings.Cut(value, "="); named {
				idx.Name, value = name, list
			}
			fields, err := parseIndexFields(value)
			if err != nil {
				return err
			}
			idx.Fields = fields
			meta.UniqueIndexes = append(meta.UniqueIndexes, idx)
		case "fulltext":
			fields, err := parseIndexFields(value)
			if err != nil {
				return err
			}
			meta.FullTextIndexes = append(meta.FullTextIndexes, schema.FullTextIndex{Fields: fields})
		default:
			return fmt.Errorf("unknown entity option %q", key)
		}
	}
	return nil
}

func parseFieldTag(tag string) (*FieldMeta, error) {
	meta := &FieldMeta{}
	for _, opt := range splitTag(tag) {
		if opt == "" {
			continue
		}
		key, value, _ := strings.Cut(opt, "=")
		switch key {
		case "name":
			meta.Name = value
		case "type":
			t := ParseTypeName(value)
			meta.Type = &t
		case "list":
			meta.IsList = boolPtr(true)
		case "nolist":
			meta.IsList = boolPtr(false)
		case "required":
			meta.IsRequired = true
		case "unique":
			meta.IsUnique = true
		case "id":
			meta.IsID = true
		case "updatedAt":
			meta.IsUpdatedAt = true
		case "fk":
			meta.IsForeignKey = true
		case "default":
			meta.Default = ParseDefault(value)
		case "native":
			m, err := ParseNativeMapping(value)
			if err != nil {
				return nil, err
			}
			meta.NativeMapping = m
		case "relation":
			meta.RelationName = value
		case "fields":
			meta.RelationFields = splitList(value)
		case "references":
			meta.RelationReferences = splitList(value)
		case "onDelete":
			meta.OnDelete = schema.ReferentialAction(value)
		case "onUpdate":
			meta.OnUpdate = schema.ReferentialAction(value)
		default:
			return nil, fmt.Errorf("unknown field option %q", key)
		}
	}
	return meta, nil
}

func boolPtr(b bool) *bool { return &b }

// ParseTypeName parses a type name as written in tags and configuration. A
// trailing [] marks a list. Scalar type names are scalar overrides, the
// lowercase names string, number, boolean and datetime are the built-in
// correspondences, and anything else references an entity by name.
func ParseTypeName(name string) TypeRef {
	name = strings.TrimSpace(name)
	list := strings.HasSuffix(name, "[]")
	name = strings.TrimSuffix(name, "[]")

	var t TypeRef
	switch {
	case schema.IsScalarType(name):
		t = ScalarOf(schema.ScalarType(name))
	case name == "string":
		t = StringType()
	case name == "number":
		t = NumberType()
	case name == "boolean":
		t = BooleanType()
	case name == "datetime":
		t = DateTimeType()
	default:
		t = NameRef(name)
	}
	t.List = list
	return t
}

var callPattern = regexp.MustCompile(`^(\w+)\(\)$`)

// ParseDefault parses a default value: name() is a call, true and false are
// booleans, numbers are numeric literals and anything else is kept verbatim.
func ParseDefault(v string) schema.Default {
	v = strings.TrimSpace(v)
	if m := callPattern.FindStringSubmatch(v); m != nil {
		return schema.Call(m[1])
	}
	switch v {
	case "true":
		return schema.Literal(true)
	case "false":
		return schema.Literal(false)
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return schema.Literal(i)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return schema.Literal(f)
	}
	return schema.Literal(v)
}

var nativePattern = regexp.MustCompile(`^(\w+)(?:\((.*)\))?$`)

// ParseNativeMapping parses Name or Name(arg, ...). Integer arguments are
// kept as numbers.
func ParseNativeMapping(v string) (*schema.NativeMapping, error) {
	m := nativePattern.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return nil, fmt.Errorf("invalid native mapping %q", v)
	}
	mapping := &schema.NativeMapping{Name: m[1]}
	if strings.TrimSpace(m[2]) == "" {
		return mapping, nil
	}
	for _, a := range strings.Split(m[2], ",") {
		a = strings.TrimSpace(a)
		if n, err := strconv.Atoi(a); err == nil {
			mapping.Arguments = append(mapping.Arguments, n)
			continue
		}
		mapping.Arguments = append(mapping.Arguments, a)
	}
	return mapping, nil
}

package schema

import (
	"fmt"
	"slices"

	"github.com/tordrt/prismaschema/internal/errs"
)

// ScalarFieldOptions configures NewScalarField. The zero value of every
// option is its default.
type ScalarFieldOptions struct {
	Name          string
	Type          ScalarType
	IsList        bool
	IsRequired    bool
	IsUnique      bool
	IsID          bool
	IsUpdatedAt   bool
	IsForeignKey  bool
	Default       Default
	Documentation string
	NativeMapping *NativeMapping
}

// NewScalarField builds a scalar field.
func NewScalarField(opts ScalarFieldOptions) (Field, error) {
	if opts.Name == "" {
		return Field{}, errs.New(errs.KindStructural, "field name is required")
	}
	if opts.Type == "" {
		return Field{}, errs.New(errs.KindStructural, "scalar type is required").InField(opts.Name)
	}
	if err := validateNativeMapping(opts.NativeMapping); err != nil {
		return Field{}, err.InField(opts.Name)
	}
	return Field{
		BaseField: BaseField{
			Name:          opts.Name,
			IsList:        opts.IsList,
			IsRequired:    opts.IsRequired,
			Documentation: opts.Documentation,
			NativeMapping: cloneNativeMapping(opts.NativeMapping),
		},
		Kind: ScalarKind,
		Scalar: &ScalarAttributes{
			Type:         opts.Type,
			IsUnique:     opts.IsUnique,
			IsID:         opts.IsID,
			IsUpdatedAt:  opts.IsUpdatedAt,
			IsForeignKey: opts.IsForeignKey,
			Default:      opts.Default,
		},
	}, nil
}

// RelationFieldOptions configures NewRelationField. Empty referential
// actions default to NoneAction.
type RelationFieldOptions struct {
	Name               string
	Type               string
	IsList             bool
	IsRequired         bool
	RelationName       string
	RelationFields     []string
	RelationReferences []string
	OnDelete           ReferentialAction
	OnUpdate           ReferentialAction
	Documentation      string
	NativeMapping      *NativeMapping
}

// NewRelationField builds a relational field.
func NewRelationField(opts RelationFieldOptions) (Field, error) {
	if opts.Name == "" {
		return Field{}, errs.New(errs.KindStructural, "field name is required")
	}
	if opts.Type == "" {
		return Field{}, errs.New(errs.KindStructural, "referenced entity is required").InField(opts.Name)
	}
	if IsScalarType(opts.Type) {
		return Field{}, errs.New(errs.KindStructural,
			fmt.Sprintf("relation cannot target scalar type %s", opts.Type)).InField(opts.Name)
	}
	onDelete, err := referentialAction(opts.OnDelete)
	if err != nil {
		return Field{}, err.InField(opts.Name)
	}
	onUpdate, err := referentialAction(opts.OnUpdate)
	if err != nil {
		return Field{}, err.InField(opts.Name)
	}
	if err := validateNativeMapping(opts.NativeMapping); err != nil {
		return Field{}, err.InField(opts.Name)
	}
	return Field{
		BaseField: BaseField{
			Name:          opts.Name,
			IsList:        opts.IsList,
			IsRequired:    opts.IsRequired,
			Documentation: opts.Documentation,
			NativeMapping: cloneNativeMapping(opts.NativeMapping),
		},
		Kind: RelationKind,
		Relation: &RelationAttributes{
			Type:               opts.Type,
			RelationName:       opts.RelationName,
			RelationToFields:   nonNil(opts.RelationFields),
			RelationReferences: nonNil(opts.RelationReferences),
			OnDelete:           onDelete,
			OnUpdate:           onUpdate,
		},
	}, nil
}

// Validate checks that exactly one variant is populated and that it matches Kind.
func (f Field) Validate() error {
	if err := f.validate(); err != nil {
		return err
	}
	return nil
}

func (f Field) validate() *errs.Error {
	if f.Name == "" {
		return errs.New(errs.KindStructural, "field name is required")
	}
	switch f.Kind {
	case ScalarKind:
		if f.Scalar == nil || f.Relation != nil {
			return errs.New(errs.KindStructural, "scalar field must carry only scalar attributes").InField(f.Name)
		}
	case RelationKind:
		if f.Relation == nil || f.Scalar != nil {
			return errs.New(errs.KindStructural, "relation field must carry only relation attributes").InField(f.Name)
		}
	default:
		return errs.New(errs.KindStructural, "field kind is not set").InField(f.Name)
	}
	return nil
}

// ModelOptions configures NewModel.
type ModelOptions struct {
	Name            string
	Fields          []Field
	Documentation   string
	Map             string
	Indexes         []Index
	UniqueIndexes   []UniqueIndex
	FullTextIndexes []FullTextIndex
}

// NewModel builds a model. A model may have no fields.
func NewModel(opts ModelOptions) (Entity, error) {
	e := Entity{
		Kind:            ModelKind,
		Name:            opts.Name,
		Fields:          slices.Clone(opts.Fields),
		Documentation:   opts.Documentation,
		Map:             opts.Map,
		Indexes:         slices.Clone(opts.Indexes),
		UniqueIndexes:   slices.Clone(opts.UniqueIndexes),
		FullTextIndexes: slices.Clone(opts.FullTextIndexes),
	}
	if err := e.validate(); err != nil {
		return Entity{}, err
	}
	return e, nil
}

// ViewOptions configures NewView. Views carry no full-text indexes.
type ViewOptions struct {
	Name          string
	Fields        []Field
	Documentation string
	Map           string
	Indexes       []Index
	UniqueIndexes []UniqueIndex
}

// NewView builds a view.
func NewView(opts ViewOptions) (Entity, error) {
	e := Entity{
		Kind:          ViewKind,
		Name:          opts.Name,
		Fields:        slices.Clone(opts.Fields),
		Documentation: opts.Documentation,
		Map:           opts.Map,
		Indexes:       slices.Clone(opts.Indexes),
		UniqueIndexes: slices.Clone(opts.UniqueIndexes),
	}
	if err := e.validate(); err != nil {
		return Entity{}, err
	}
	return e, nil
}

func (e Entity) validate() *errs.Error {
	if e.Name == "" {
		return errs.New(errs.KindStructural, "entity name is required")
	}
	if e.Kind == ViewKind && len(e.FullTextIndexes) > 0 {
		return errs.New(errs.KindStructural, "views cannot declare full-text indexes").InEntity(e.Name)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if err := f.validate(); err != nil {
			return err.InEntity(e.Name)
		}
		if seen[f.Name] {
			return errs.New(errs.KindStructural, "duplicate field name").InEntity(e.Name).InField(f.Name)
		}
		seen[f.Name] = true
	}
	for _, idx := range e.Indexes {
		if err := validateIndexFields(idx.Fields); err != nil {
			return err.InEntity(e.Name)
		}
	}
	for _, idx := range e.UniqueIndexes {
		if err := validateIndexFields(idx.Fields); err != nil {
			return err.InEntity(e.Name)
		}
	}
	for _, idx := range e.FullTextIndexes {
		if err := validateIndexFields(idx.Fields); err != nil {
			return err.InEntity(e.Name)
		}
	}
	return nil
}

// Field returns the field with the given name.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func validateIndexFields(fields []IndexField) *errs.Error {
	if len(fields) == 0 {
		return errs.New(errs.KindStructural, "index must list at least one field")
	}
	for _, f := range fields {
		if f.Name == "" {
			return errs.New(errs.KindStructural, "index field name is required")
		}
		switch f.Sort {
		case "", Asc, Desc:
		default:
			return errs.New(errs.KindStructural, fmt.Sprintf("invalid sort order %q", f.Sort)).InField(f.Name)
		}
	}
	return nil
}

// EnumOptions configures NewEnum.
type EnumOptions struct {
	Name          string
	Values        []string
	Documentation string
}

// NewEnum builds an enum. Values must be non-empty and distinct.
func NewEnum(opts EnumOptions) (Enum, error) {
	if opts.Name == "" {
		return Enum{}, errs.New(errs.KindStructural, "enum name is required")
	}
	if len(opts.Values) == 0 {
		return Enum{}, errs.New(errs.KindStructural, "enum has no values").InEntity(opts.Name)
	}
	seen := make(map[string]bool, len(opts.Values))
	for _, v := range opts.Values {
		if v == "" {
			return Enum{}, errs.New(errs.KindStructural, "enum value is empty").InEntity(opts.Name)
		}
		if seen[v] {
			return Enum{}, errs.New(errs.KindStructural, fmt.Sprintf("duplicate enum value %s", v)).InEntity(opts.Name)
		}
		seen[v] = true
	}
	return Enum{
		Name:          opts.Name,
		Values:        slices.Clone(opts.Values),
		Documentation: opts.Documentation,
	}, nil
}

// DataSourceOptions configures NewDataSource. URL accepts a string (literal)
// or a URL value built with LiteralURL or EnvURL; ShadowDatabaseURL is
// optional and accepts the same shapes.
type DataSourceOptions struct {
	Name              string
	Provider          Provider
	URL               any
	ShadowDatabaseURL any
	RelationMode      RelationMode
}

// NewDataSource builds a data source. Environment variables are not resolved.
func NewDataSource(opts DataSourceOptions) (DataSource, error) {
	if opts.Name == "" {
		return DataSource{}, errs.New(errs.KindStructural, "datasource name is required")
	}
	if opts.Provider == "" {
		return DataSource{}, errs.New(errs.KindStructural, "datasource provider is required")
	}
	url, ok, err := toURL(opts.URL)
	if err != nil {
		return DataSource{}, err
	}
	if !ok {
		return DataSource{}, errs.New(errs.KindStructural, "datasource url is required")
	}
	ds := DataSource{
		Name:         opts.Name,
		Provider:     opts.Provider,
		URL:          url,
		RelationMode: opts.RelationMode,
	}
	shadow, ok, err := toURL(opts.ShadowDatabaseURL)
	if err != nil {
		return DataSource{}, err
	}
	if ok {
		ds.ShadowDatabaseURL = &shadow
	}
	return ds, nil
}

func toURL(v any) (URL, bool, error) {
	switch u := v.(type) {
	case nil:
		return URL{}, false, nil
	case string:
		if u == "" {
			return URL{}, false, nil
		}
		return LiteralURL(u), true, nil
	case URL:
		if u.Value == "" {
			return URL{}, false, nil
		}
		return u, true, nil
	case *URL:
		if u == nil || u.Value == "" {
			return URL{}, false, nil
		}
		return *u, true, nil
	default:
		return URL{}, false, errs.New(errs.KindStructural, fmt.Sprintf("unsupported url value of type %T", v))
	}
}

// GeneratorOptions configures NewGenerator.
type GeneratorOptions struct {
	Name            string
	Provider        string
	Output          string
	BinaryTargets   []string
	PreviewFeatures []string
}

// NewGenerator builds a generator.
func NewGenerator(opts GeneratorOptions) (Generator, error) {
	if opts.Name == "" {
		return Generator{}, errs.New(errs.KindStructural, "generator name is required")
	}
	if opts.Provider == "" {
		return Generator{}, errs.New(errs.KindStructural, "generator provider is required").InEntity(opts.Name)
	}
	return Generator{
		Name:            opts.Name,
		Provider:        opts.Provider,
		Output:          opts.Output,
		BinaryTargets:   slices.Clone(opts.BinaryTargets),
		PreviewFeatures: slices.Clone(opts.PreviewFeatures),
	}, nil
}

// SchemaOptions configures NewSchema.
type SchemaOptions struct {
	DataSource *DataSource
	Generators []Generator
	Models     []Entity
	Views      []Entity
	Enums      []Enum
}

// NewSchema builds a schema. Entity names must be unique across models and
// views combined.
func NewSchema(opts SchemaOptions) (Schema, error) {
	seen := make(map[string]EntityKind, len(opts.Models)+len(opts.Views))
	check := func(entities []Entity, kind EntityKind) error {
		for _, e := range entities {
			if e.Kind != kind {
				return errs.New(errs.KindStructural, fmt.Sprintf("expected a %s", kind)).InEntity(e.Name)
			}
			if prev, ok := seen[e.Name]; ok {
				return errs.New(errs.KindStructural,
					fmt.Sprintf("name already used by a %s", prev)).InEntity(e.Name)
			}
			seen[e.Name] = kind
		}
		return nil
	}
	if err := check(opts.Models, ModelKind); err != nil {
		return Schema{}, err
	}
	if err := check(opts.Views, ViewKind); err != nil {
		return Schema{}, err
	}
	enums := make(map[string]bool, len(opts.Enums))
	for _, en := range opts.Enums {
		if enums[en.Name] {
			return Schema{}, errs.New(errs.KindStructural, "duplicate enum").InEntity(en.Name)
		}
		enums[en.Name] = true
	}
	s := Schema{
		Generators: slices.Clone(opts.Generators),
		Models:     slices.Clone(opts.Models),
		Views:      slices.Clone(opts.Views),
		Enums:      slices.Clone(opts.Enums),
	}
	if opts.DataSource != nil {
		ds := *opts.DataSource
		s.DataSource = &ds
	}
	return s, nil
}

func referentialAction(a ReferentialAction) (ReferentialAction, *errs.Error) {
	if a == "" {
		return NoneAction, nil
	}
	if slices.Contains(ReferentialActions, a) {
		return a, nil
	}
	return "", errs.New(errs.KindStructural, fmt.Sprintf("unknown referential action %q", a))
}

func validateNativeMapping(m *NativeMapping) *errs.Error {
	if m != nil && m.Name == "" {
		return errs.New(errs.KindStructural, "native mapping name is required")
	}
	return nil
}

func cloneNativeMapping(m *NativeMapping) *NativeMapping {
	if m == nil {
		return nil
	}
	return &NativeMapping{Name: m.Name, Arguments: slices.Clone(m.Arguments)}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

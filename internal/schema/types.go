// Package schema defines the intermediate representation of a Prisma schema
// and the builders that produce it.
//
// IR values are built once by the New* builders and are not mutated
// afterwards. The printer package turns them into schema text.
package schema

// Schema represents a complete Prisma schema
type Schema struct {
	DataSource *DataSource
	Generators []Generator
	Models     []Entity
	Views      []Entity
	Enums      []Enum
}

// Provider identifies the database engine of a data source
type Provider string

const (
	PostgreSQL  Provider = "postgresql"
	MySQL       Provider = "mysql"
	SQLite      Provider = "sqlite"
	SQLServer   Provider = "sqlserver"
	MongoDB     Provider = "mongodb"
	CockroachDB Provider = "cockroachdb"
)

// Providers lists every known provider.
var Providers = []Provider{PostgreSQL, MySQL, SQLite, SQLServer, MongoDB, CockroachDB}

// RelationMode selects how referential integrity is enforced
type RelationMode string

const (
	RelationModePrisma      RelationMode = "prisma"
	RelationModeForeignKeys RelationMode = "foreignKeys"
)

// URL is a data source URL: either a literal or an environment variable name
type URL struct {
	Value string
	Env   bool
}

// LiteralURL returns a URL printed as a quoted string.
func LiteralURL(s string) URL { return URL{Value: s} }

// EnvURL returns a URL printed as env("<name>").
func EnvURL(name string) URL { return URL{Value: name, Env: true} }

// DataSource represents a datasource block
type DataSource struct {
	Name              string
	Provider          Provider
	URL               URL
	ShadowDatabaseURL *URL
	RelationMode      RelationMode
}

// Generator represents a generator block
type Generator struct {
	Name            string
	Provider        string
	Output          string
	BinaryTargets   []string
	PreviewFeatures []string
}

// Enum represents an enum block
type Enum struct {
	Name          string
	Values        []string
	Documentation string
}

// ScalarType is the type of a scalar field
type ScalarType string

const (
	String   ScalarType = "String"
	Boolean  ScalarType = "Boolean"
	Int      ScalarType = "Int"
	BigInt   ScalarType = "BigInt"
	Float    ScalarType = "Float"
	Decimal  ScalarType = "Decimal"
	DateTime ScalarType = "DateTime"
	Json     ScalarType = "Json"
	Bytes    ScalarType = "Bytes"
)

// ScalarTypes lists every scalar type.
var ScalarTypes = []ScalarType{String, Boolean, Int, BigInt, Float, Decimal, DateTime, Json, Bytes}

// IsScalarType reports whether name is one of ScalarTypes.
func IsScalarType(name string) bool {
	for _, t := range ScalarTypes {
		if string(t) == name {
			return true
		}
	}
	return false
}

// ReferentialAction is applied to a relation when the referenced row changes
type ReferentialAction string

const (
	NoneAction ReferentialAction = "NONE"
	Cascade    ReferentialAction = "Cascade"
	Restrict   ReferentialAction = "Restrict"
	NoAction   ReferentialAction = "NoAction"
	SetNull    ReferentialAction = "SetNull"
	SetDefault ReferentialAction = "SetDefault"
)

// ReferentialActions lists every action, NoneAction included.
var ReferentialActions = []ReferentialAction{NoneAction, Cascade, Restrict, NoAction, SetNull, SetDefault}

// Default generator functions.
const (
	AutoIncrement = "autoincrement"
	Now           = "now"
	UUID          = "uuid"
	CUID          = "cuid"
	DBGenerated   = "dbgenerated"
	Auto          = "auto"
)

// Default is the optional default value of a scalar field. The zero value
// means "no default" and is distinct from a literal false, 0 or "".
type Default struct {
	set    bool
	callee string
	value  any
}

// NoDefault returns an absent default.
func NoDefault() Default { return Default{} }

// Literal returns a literal default. Strings are printed verbatim.
func Literal[T bool | int | int64 | float64 | string](v T) Default {
	return Default{set: true, value: v}
}

// Call returns a default produced by a zero-argument function such as now().
func Call(callee string) Default {
	return Default{set: true, callee: callee}
}

// IsSet reports whether a default is present.
func (d Default) IsSet() bool { return d.set }

// Callee returns the function name of a call default.
func (d Default) Callee() (string, bool) { return d.callee, d.set && d.callee != "" }

// Value returns the literal value of a literal default.
func (d Default) Value() (any, bool) { return d.value, d.set && d.callee == "" }

// NativeMapping is an engine specific type, printed as @<datasource>.<Name>(<Arguments>)
type NativeMapping struct {
	Name      string
	Arguments []any
}

// FieldKind tags the variant held by a Field
type FieldKind int

const (
	ScalarKind FieldKind = iota + 1
	RelationKind
)

func (k FieldKind) String() string {
	switch k {
	case ScalarKind:
		return "scalar"
	case RelationKind:
		return "relation"
	default:
		return "invalid"
	}
}

// BaseField holds the attributes shared by both field variants
type BaseField struct {
	Name          string
	IsList        bool
	IsRequired    bool
	Documentation string
	NativeMapping *NativeMapping
}

// ScalarAttributes holds the attributes of a scalar field
type ScalarAttributes struct {
	Type         ScalarType
	IsUnique     bool
	IsID         bool
	IsUpdatedAt  bool
	IsForeignKey bool
	Default      Default
}

// RelationAttributes holds the attributes of a relational field
type RelationAttributes struct {
	Type               string // referenced entity name
	RelationName       string
	RelationToFields   []string
	RelationReferences []string
	OnDelete           ReferentialAction
	OnUpdate           ReferentialAction
}

// Field is a scalar or relational field. Exactly one of Scalar and Relation
// is set, matching Kind.
type Field struct {
	BaseField
	Kind     FieldKind
	Scalar   *ScalarAttributes
	Relation *RelationAttributes
}

// EntityKind distinguishes models from views
type EntityKind int

const (
	ModelKind EntityKind = iota + 1
	ViewKind
)

func (k EntityKind) String() string {
	switch k {
	case ModelKind:
		return "model"
	case ViewKind:
		return "view"
	default:
		return "invalid"
	}
}

// Entity represents a model or a view
type Entity struct {
	Kind            EntityKind
	Name            string
	Fields          []Field
	Documentation   string
	Map             string
	Indexes         []Index
	UniqueIndexes   []UniqueIndex
	FullTextIndexes []FullTextIndex // models only
}

// SortOrder is the direction of an indexed field
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// IndexField is one field of a composite index
type IndexField struct {
	Name string
	Sort SortOrder
}

// Index represents @@index
type Index struct {
	Fields []IndexField
}

// UniqueIndex represents @@unique
type UniqueIndex struct {
	Fields []IndexField
	Name   string
}

// FullTextIndex represents @@fulltext
type FullTextIndex struct {
	Fields []IndexField
}

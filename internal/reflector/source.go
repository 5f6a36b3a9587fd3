// Package reflector builds schema entities from declaration metadata.
//
// A Source answers two questions about a declaration: its entity metadata and
// its ordered properties. Registry is a Source backed by an explicit
// registration table; TagSource derives both from Go struct tags.
package reflector

import (
	"strconv"
	"strings"

	"github.com/tordrt/prismaschema/internal/schema"
)

// Declaration is a stable identifier for an entity declaration
type Declaration string

// Name returns the last dot separated segment of the declaration.
func (d Declaration) Name() string {
	s := string(d)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Source provides declaration metadata to the Reflector
type Source interface {
	// Entity returns the entity metadata of d. ok is false when d carries none.
	Entity(d Declaration) (meta EntityMeta, ok bool)
	// Properties returns the properties of d in declaration order.
	Properties(d Declaration) ([]Property, error)
}

// EntityMeta is the entity level metadata of a declaration
type EntityMeta struct {
	Kind            schema.EntityKind
	Name            string // defaults to Declaration.Name()
	Map             string
	Documentation   string
	Indexes         []schema.Index
	UniqueIndexes   []schema.UniqueIndex
	FullTextIndexes []schema.FullTextIndex
}

// Property is a declared property. A nil Field means the property carries no
// field metadata and is not part of the entity.
type Property struct {
	Name  string
	Type  TypeRef
	Field *FieldMeta
}

// FieldMeta is the field level metadata of a property
type FieldMeta struct {
	Name          string   // defaults to the property name
	Type          *TypeRef // replaces the property type when set
	IsList        *bool    // overrides the list flag of the payload type
	IsRequired    bool
	IsUnique      bool
	IsID          bool
	IsUpdatedAt   bool
	IsForeignKey  bool
	Default       schema.Default
	Documentation string
	NativeMapping *schema.NativeMapping

	RelationName       string
	RelationFields     []string
	RelationReferences []string
	OnDelete           schema.ReferentialAction
	OnUpdate           schema.ReferentialAction
}

// TypeKind classifies a property payload type
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeScalar
	TypeDateTime
	TypeString
	TypeNumber
	TypeBoolean
	TypeDeclaration
	TypeName
)

// TypeRef describes a property payload type
type TypeRef struct {
	Kind   TypeKind
	Scalar schema.ScalarType // TypeScalar
	Decl   Declaration       // TypeDeclaration
	Name   string            // TypeName, or a description of an unknown type
	List   bool
}

// ScalarOf returns an explicit scalar type.
func ScalarOf(t schema.ScalarType) TypeRef { return TypeRef{Kind: TypeScalar, Scalar: t} }

// DateTimeType, StringType, NumberType and BooleanType are the built-in
// payload correspondences.
func DateTimeType() TypeRef { return TypeRef{Kind: TypeDateTime} }
func StringType() TypeRef   { return TypeRef{Kind: TypeString} }
func NumberType() TypeRef   { return TypeRef{Kind: TypeNumber} }
func BooleanType() TypeRef  { return TypeRef{Kind: TypeBoolean} }

// DeclRef returns a reference to another declaration, reflected on demand.
func DeclRef(d Declaration) TypeRef { return TypeRef{Kind: TypeDeclaration, Decl: d} }

// NameRef returns a reference to an entity by name. The entity is not
// resolved, so it may be declared later or elsewhere.
func NameRef(name string) TypeRef { return TypeRef{Kind: TypeName, Name: name} }

// UnknownType returns a payload type the reflector cannot classify.
func UnknownType(desc string) TypeRef { return TypeRef{Kind: TypeUnknown, Name: desc} }

// ListOf marks t as a collection.
func ListOf(t TypeRef) TypeRef {
	t.List = true
	return t
}

func (t TypeRef) String() string {
	var s string
	switch t.Kind {
	case TypeScalar:
		s = string(t.Scalar)
	case TypeDateTime:
		s = "datetime"
	case TypeString:
		s = "string"
	case TypeNumber:
		s = "number"
	case TypeBoolean:
		s = "boolean"
	case TypeDeclaration:
		s = string(t.Decl)
	case TypeName:
		s = strconv.Quote(t.Name)
	default:
		s = "unknown " + t.Name
	}
	if t.List {
		s += "[]"
	}
	return s
}

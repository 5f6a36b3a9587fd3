package reflector

import (
	"fmt"
	"slices"

	"github.com/tordrt/prismaschema/internal/errs"
)

// Registry is a Source backed by an explicit registration table
type Registry struct {
	entities   map[Declaration]EntityMeta
	properties map[Declaration][]Property
	order      []Declaration
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entities:   make(map[Declaration]EntityMeta),
		properties: make(map[Declaration][]Property),
	}
}

// Register records the metadata of d. Registering a declaration twice is an
// error.
func (r *Registry) Register(d Declaration, meta EntityMeta, props ...Property) error {
	if d == "" {
		return errs.New(errs.KindStructural, "declaration is required")
	}
	if _, ok := r.entities[d]; ok {
		return errs.New(errs.KindStructural, fmt.Sprintf("declaration %s is already registered", d))
	}
	r.entities[d] = meta
	r.properties[d] = slices.Clone(props)
	r.order = append(r.order, d)
	return nil
}

// Declarations returns the registered declarations in registration order
func (r *Registry) Declarations() []Declaration {
	return slices.Clone(r.order)
}

// Entity implements Source
func (r *Registry) Entity(d Declaration) (EntityMeta, bool) {
	meta, ok := r.entities[d]
	return meta, ok
}

// Properties implements Source
func (r *Registry) Properties(d Declaration) ([]Property, error) {
	props, ok := r.properties[d]
	if !ok {
		return nil, errs.New(errs.KindClassification, fmt.Sprintf("declaration %s is not registered", d))
	}
	return slices.Clone(props), nil
}

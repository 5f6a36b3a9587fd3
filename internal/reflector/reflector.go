package reflector

import (
	"errors"
	"fmt"

	"github.com/tordrt/prismaschema/internal/errs"
	"github.com/tordrt/prismaschema/internal/schema"
)

// Reflector walks declarations from a Source and builds schema entities.
// Each declaration is built at most once per Reflector. A Reflector is not
// safe for concurrent use.
type Reflector struct {
	source Source

	models map[Declaration]schema.Entity
	views  map[Declaration]schema.Entity
	// order holds declarations in the order reflection started on them
	order []Declaration
	// resolving maps declarations being built to their entity names
	resolving map[Declaration]string
}

// New creates a reflector reading metadata from source
func New(source Source) *Reflector {
	return &Reflector{
		source:    source,
		models:    make(map[Declaration]schema.Entity),
		views:     make(map[Declaration]schema.Entity),
		resolving: make(map[Declaration]string),
	}
}

// Reflect builds the entities of decls and of every declaration they
// reference. Declarations already built are skipped. When a declaration
// fails, every entity built while reflecting it is discarded.
func (r *Reflector) Reflect(decls ...Declaration) error {
	for _, d := range decls {
		mark := len(r.order)
		if _, err := r.reflect(d); err != nil {
			r.rollback(mark)
			return err
		}
	}
	return nil
}

// rollback forgets the declarations reflected after order[:mark].
func (r *Reflector) rollback(mark int) {
	for _, d := range r.order[mark:] {
		delete(r.models, d)
		delete(r.views, d)
	}
	r.order = r.order[:mark]
}

// Entity returns the entity built for d.
func (r *Reflector) Entity(d Declaration) (schema.Entity, bool) {
	if e, ok := r.models[d]; ok {
		return e, true
	}
	e, ok := r.views[d]
	return e, ok
}

// Models returns a snapshot of the built models.
func (r *Reflector) Models() []schema.Entity {
	return r.snapshot(r.models)
}

// Views returns a snapshot of the built views.
func (r *Reflector) Views() []schema.Entity {
	return r.snapshot(r.views)
}

// Reset forgets every built entity.
func (r *Reflector) Reset() {
	clear(r.models)
	clear(r.views)
	clear(r.resolving)
	r.order = nil
}

func (r *Reflector) snapshot(entities map[Declaration]schema.Entity) []schema.Entity {
	out := make([]schema.Entity, 0, len(entities))
	for _, d := range r.order {
		if e, ok := entities[d]; ok {
			out = append(out, e)
		}
	}
	return out
}

// reflect builds d and returns its entity name.
func (r *Reflector) reflect(d Declaration) (string, error) {
	if e, ok := r.Entity(d); ok {
		return e.Name, nil
	}
	// d references itself, directly or through other declarations
	if name, ok := r.resolving[d]; ok {
		return name, nil
	}

	meta, ok := r.source.Entity(d)
	if !ok {
		return "", errs.New(errs.KindClassification, fmt.Sprintf("declaration %s carries no entity metadata", d))
	}
	if meta.Name == "" {
		meta.Name = d.Name()
	}

	r.resolving[d] = meta.Name
	r.order = append(r.order, d)
	defer delete(r.resolving, d)

	entity, err := r.build(d, meta)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.Entity == "" {
			return "", e.InEntity(meta.Name)
		}
		return "", err
	}

	if entity.Kind == schema.ViewKind {
		r.views[d] = entity
	} else {
		r.models[d] = entity
	}
	return entity.Name, nil
}

func (r *Reflector) build(d Declaration, meta EntityMeta) (schema.Entity, error) {
	props, err := r.source.Properties(d)
	if err != nil {
		return schema.Entity{}, fmt.Errorf("failed to read properties of %s: %w", d, err)
	}

	fields := make([]schema.Field, 0, len(props))
	for _, p := range props {
		if p.Field == nil {
			continue
		}
		f, err := r.buildField(p)
		if err != nil {
			var e *errs.Error
			if errors.As(err, &e) && e.Field == "" {
				return schema.Entity{}, e.InField(fieldName(p))
			}
			return schema.Entity{}, err
		}
		fields = append(fields, f)
	}

	switch meta.Kind {
	case schema.ModelKind:
		return schema.NewModel(schema.ModelOptions{
			Name:            meta.Name,
			Fields:          fields,
			Documentation:   meta.Documentation,
			Map:             meta.Map,
			Indexes:         meta.Indexes,
			UniqueIndexes:   meta.UniqueIndexes,
			FullTextIndexes: meta.FullTextIndexes,
		})
	case schema.ViewKind:
		return schema.NewView(schema.ViewOptions{
			Name:          meta.Name,
			Fields:        fields,
			Documentation: meta.Documentation,
			Map:           meta.Map,
			Indexes:       meta.Indexes,
			UniqueIndexes: meta.UniqueIndexes,
		})
	default:
		return schema.Entity{}, errs.New(errs.KindClassification, fmt.Sprintf("declaration %s is neither a model nor a view", d))
	}
}

func fieldName(p Property) string {
	if p.Field.Name != "" {
		return p.Field.Name
	}
	return p.Name
}

func (r *Reflector) buildField(p Property) (schema.Field, error) {
	meta := p.Field
	t := p.Type
	if meta.Type != nil {
		t = *meta.Type
	}

	isList := t.List
	if meta.IsList != nil {
		isList = *meta.IsList
	}

	scalar, target, err := r.resolve(t)
	if err != nil {
		return schema.Field{}, err
	}

	if target == "" {
		return schema.NewScalarField(schema.ScalarFieldOptions{
			Name:          fieldName(p),
			Type:          scalar,
			IsList:        isList,
			IsRequired:    meta.IsRequired,
			IsUnique:      meta.IsUnique,
			IsID:          meta.IsID,
			IsUpdatedAt:   meta.IsUpdatedAt,
			IsForeignKey:  meta.IsForeignKey,
			Default:       meta.Default,
			Documentation: meta.Documentation,
			NativeMapping: meta.NativeMapping,
		})
	}
	return schema.NewRelationField(schema.RelationFieldOptions{
		Name:               fieldName(p),
		Type:               target,
		IsList:             isList,
		IsRequired:         meta.IsRequired,
		RelationName:       meta.RelationName,
		RelationFields:     meta.RelationFields,
		RelationReferences: meta.RelationReferences,
		OnDelete:           meta.OnDelete,
		OnUpdate:           meta.OnUpdate,
		Documentation:      meta.Documentation,
		NativeMapping:      meta.NativeMapping,
	})
}

// resolve returns either a scalar type or the name of a target entity.
func (r *Reflector) resolve(t TypeRef) (schema.ScalarType, string, error) {
	switch t.Kind {
	case TypeScalar:
		if !schema.IsScalarType(string(t.Scalar)) {
			return "", "", errs.New(errs.KindClassification, fmt.Sprintf("unknown scalar type %q", t.Scalar))
		}
		return t.Scalar, "", nil
	case TypeDateTime:
		return schema.DateTime, "", nil
	case TypeString:
		return schema.String, "", nil
	case TypeNumber:
		return schema.Float, "", nil
	case TypeBoolean:
		return schema.Boolean, "", nil
	case TypeDeclaration:
		name, err := r.reflect(t.Decl)
		if err != nil {
			return "", "", err
		}
		return "", name, nil
	case TypeName:
		if t.Name == "" {
			return "", "", errs.New(errs.KindClassification, "empty type name")
		}
		if schema.IsScalarType(t.Name) {
			return schema.ScalarType(t.Name), "", nil
		}
		return "", t.Name, nil
	default:
		return "", "", errs.New(errs.KindClassification, fmt.Sprintf("unrecognized type %s", t))
	}
}

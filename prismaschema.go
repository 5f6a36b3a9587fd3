// Package prismaschema generates Prisma schema files from Go declarations.
//
// Entities are described either by Go structs carrying prisma struct tags or
// by an explicit registration table. The generator reflects them into a
// schema, prints it as Prisma schema text and hands the text to a formatter.
//
// # Quick Start
//
//	type Customer struct {
//		prismaschema.Model `prisma:"map=customers"`
//		ID     string          `prisma:"id,required,default=uuid()"`
//		Email  string          `prisma:"required,unique"`
//		Tokens []CustomerToken `prisma:"name=tokens"`
//	}
//
//	src, decls, err := prismaschema.Structs(Customer{})
//	if err != nil {
//		return err
//	}
//	gen := prismaschema.New(src, prismaschema.WithDataSource(ds))
//	res, err := gen.Generate(ctx, decls...)
//	if err != nil {
//		return err
//	}
//	err = prismaschema.WriteSchema("prisma/schema.prisma", res.Text)
//
// # Struct Tags
//
// The prisma tag of the embedded Model or View marker carries the entity
// options name, map, index, unique and fulltext. The prisma tag of a field
// carries name, type, list, nolist, required, unique, id, updatedAt, fk,
// default, native, relation, fields, references, onDelete and onUpdate.
// Fields without a prisma tag are not part of the entity, and the prismadoc
// tag carries documentation.
package prismaschema

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tordrt/prismaschema/internal/client"
	"github.com/tordrt/prismaschema/internal/config"
	"github.com/tordrt/prismaschema/internal/logger"
	"github.com/tordrt/prismaschema/internal/printer"
	"github.com/tordrt/prismaschema/internal/reflector"
	"github.com/tordrt/prismaschema/internal/schema"
)

// Schema IR
type (
	Schema         = schema.Schema
	DataSource     = schema.DataSource
	GeneratorBlock = schema.Generator
	Enum           = schema.Enum
	Entity         = schema.Entity
	Field          = schema.Field
	NativeMapping  = schema.NativeMapping
)

// Entity metadata
type (
	Model       = reflector.Model
	View        = reflector.View
	Source      = reflector.Source
	Declaration = reflector.Declaration
	Registry    = reflector.Registry
	TagSource   = reflector.TagSource
)

// Formatter normalizes printed schema text.
type Formatter = printer.Formatter

// Logger is the structured logger used by the generator.
type Logger = logger.Logger

// Generator reflects declarations into a schema and prints it. A Generator
// is not safe for concurrent use; use one per goroutine.
type Generator struct {
	reflector  *reflector.Reflector
	dataSource *schema.DataSource
	generators []schema.Generator
	enums      []schema.Enum
	formatter  printer.Formatter
	log        *logger.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithDataSource sets the datasource block. Native type mappings require one.
func WithDataSource(ds DataSource) Option {
	return func(g *Generator) {
		g.dataSource = &ds
	}
}

// WithGenerators appends generator blocks
func WithGenerators(gens ...GeneratorBlock) Option {
	return func(g *Generator) {
		g.generators = append(g.generators, gens...)
	}
}

// WithEnums appends enum blocks
func WithEnums(enums ...Enum) Option {
	return func(g *Generator) {
		g.enums = append(g.enums, enums...)
	}
}

// WithFormatter replaces the built-in formatter. A nil formatter leaves the
// printed text as is.
func WithFormatter(f Formatter) Option {
	return func(g *Generator) {
		g.formatter = f
	}
}

// WithLogger sets the logger
func WithLogger(l *Logger) Option {
	return func(g *Generator) {
		g.log = l
	}
}

// New creates a generator reading entity metadata from source.
func New(source Source, opts ...Option) *Generator {
	g := &Generator{
		reflector: reflector.New(source),
		formatter: printer.Normalizer{},
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Reflect builds the entities of decls and of every declaration they
// reference.
func (g *Generator) Reflect(decls ...Declaration) error {
	for _, d := range decls {
		if err := g.reflector.Reflect(d); err != nil {
			return fmt.Errorf("failed to reflect %s: %w", d, err)
		}
		g.log.With().Str("declaration", string(d)).Logger().Debug("entity registered")
	}
	return nil
}

// Schema assembles the schema from the entities reflected so far.
func (g *Generator) Schema() (Schema, error) {
	return schema.NewSchema(schema.SchemaOptions{
		DataSource: g.dataSource,
		Generators: g.generators,
		Models:     g.reflector.Models(),
		Views:      g.reflector.Views(),
		Enums:      g.enums,
	})
}

// Result is the outcome of Generate
type Result struct {
	Schema Schema
	Text   string
}

// Generate reflects decls, assembles the schema and prints it through the
// formatter.
func (g *Generator) Generate(ctx context.Context, decls ...Declaration) (*Result, error) {
	if err := g.Reflect(decls...); err != nil {
		return nil, err
	}
	s, err := g.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble schema: %w", err)
	}
	text, err := printer.Print(ctx, &s, g.formatter)
	if err != nil {
		return nil, err
	}
	g.log.Debugf("printed %d models, %d views, %d enums", len(s.Models), len(s.Views), len(s.Enums))
	return &Result{Schema: s, Text: text}, nil
}

// Fprint generates the schema and writes the formatted text to w.
func (g *Generator) Fprint(ctx context.Context, w io.Writer, decls ...Declaration) (Schema, error) {
	if err := g.Reflect(decls...); err != nil {
		return Schema{}, err
	}
	s, err := g.Schema()
	if err != nil {
		return Schema{}, fmt.Errorf("failed to assemble schema: %w", err)
	}
	if err := printer.NewPrinter(w, g.formatter).Print(ctx, &s); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// Reset forgets every reflected entity.
func (g *Generator) Reset() {
	g.reflector.Reset()
}

// WriteFile generates the schema and writes it to path.
func (g *Generator) WriteFile(ctx context.Context, path string, decls ...Declaration) (*Result, error) {
	res, err := g.Generate(ctx, decls...)
	if err != nil {
		return nil, err
	}
	if err := WriteSchema(path, res.Text); err != nil {
		return nil, err
	}
	g.log.With().Str("path", path).Logger().Info("schema written")
	return res, nil
}

// Structs declares the struct types of values in a new TagSource. Values may
// be structs, pointers to structs or reflect.Type values; each must embed
// Model or View.
func Structs(values ...any) (*TagSource, []Declaration, error) {
	src := reflector.NewTagSource()
	decls := make([]Declaration, 0, len(values))
	for _, v := range values {
		d, err := src.Declare(v)
		if err != nil {
			return nil, nil, err
		}
		decls = append(decls, d)
	}
	return src, decls, nil
}

// WriteSchema writes text to path, creating parent directories.
func WriteSchema(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}

// GenerateClient runs the client generation command for the schema at
// schemaPath and returns its combined output. An empty command runs
// npx prisma generate.
func GenerateClient(ctx context.Context, command []string, schemaPath string) (string, error) {
	log := logger.FromContext(ctx)
	log.With().Str("schema", schemaPath).Logger().Info("generating client")

	out, err := client.Generator{Command: command}.Generate(ctx, schemaPath)
	if err != nil {
		return out, fmt.Errorf("failed to generate client: %w", err)
	}
	return out, nil
}

// Formatter names accepted by NewFormatter
const (
	FormatterBuiltin = config.FormatterBuiltin
	FormatterPrisma  = config.FormatterPrisma
	FormatterNone    = config.FormatterNone
)

// NewFormatter returns the formatter registered under name. command replaces
// npx prisma format for the prisma formatter.
func NewFormatter(name string, command []string) (Formatter, error) {
	switch name {
	case "", FormatterBuiltin:
		return printer.Normalizer{}, nil
	case FormatterPrisma:
		return printer.CommandFormatter{Command: command}, nil
	case FormatterNone:
		return printer.Noop, nil
	}
	return nil, fmt.Errorf("unknown formatter %q", name)
}

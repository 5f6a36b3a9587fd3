// Package printer serializes schema IR into Prisma schema text.
//
// The Print* functions render a single construct without indentation or
// alignment. Render joins them into a whole schema and Print passes the result
// through a Formatter, which owns the final whitespace.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tordrt/prismaschema/internal/errs"
	"github.com/tordrt/prismaschema/internal/schema"
)

// Printer writes formatted schema text to a writer
type Printer struct {
	writer    io.Writer
	formatter Formatter
}

// NewPrinter creates a new printer. A nil formatter leaves the text unformatted.
func NewPrinter(w io.Writer, f Formatter) *Printer {
	return &Printer{writer: w, formatter: f}
}

// Print writes the schema to the printer's writer
func (p *Printer) Print(ctx context.Context, s *schema.Schema) error {
	text, err := Print(ctx, s, p.formatter)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(p.writer, text); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}

// Print renders the schema and runs the result through f. A formatter
// failure is returned as a KindFormat error carrying the rendered text.
func Print(ctx context.Context, s *schema.Schema, f Formatter) (string, error) {
	text, err := Render(s)
	if err != nil {
		return "", err
	}
	if f == nil {
		return text, nil
	}
	formatted, err := f.Format(ctx, text)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.Kind == errs.KindFormat {
			if e.Text == "" {
				e.Text = text
			}
			return "", e
		}
		e = errs.Wrap(errs.KindFormat, "formatter rejected schema", err)
		e.Text = text
		return "", e
	}
	return formatted, nil
}

// Render returns the unformatted schema text. Sections are printed in the
// order data source, generators, models, enums, views; empty sections are
// omitted.
func Render(s *schema.Schema) (string, error) {
	var blocks []string
	if s.DataSource != nil {
		blocks = append(blocks, PrintDataSource(*s.DataSource))
	}
	for _, g := range s.Generators {
		blocks = append(blocks, PrintGenerator(g))
	}
	for _, m := range s.Models {
		text, err := PrintModel(m, s.DataSource)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, text)
	}
	for _, e := range s.Enums {
		blocks = append(blocks, PrintEnum(e))
	}
	for _, v := range s.Views {
		text, err := PrintView(v, s.DataSource)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, text)
	}
	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

// PrintDataSource prints a datasource block
func PrintDataSource(ds schema.DataSource) string {
	lines := []string{
		"datasource " + ds.Name + " {",
		"provider = " + quote(string(ds.Provider)),
		"url = " + PrintDataSourceURL(ds.URL),
	}
	if ds.RelationMode != "" {
		lines = append(lines, "relationMode = "+quote(string(ds.RelationMode)))
	}
	if ds.ShadowDatabaseURL != nil {
		lines = append(lines, "shadowDatabaseUrl = "+PrintDataSourceURL(*ds.ShadowDatabaseURL))
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

// PrintDataSourceURL prints a URL as env("<name>") or as a quoted literal
func PrintDataSourceURL(u schema.URL) string {
	if u.Env {
		return "env(" + quote(u.Value) + ")"
	}
	return quote(u.Value)
}

// PrintGenerator prints a generator block
func PrintGenerator(g schema.Generator) string {
	lines := []string{
		"generator " + g.Name + " {",
		"provider = " + quote(g.Provider),
	}
	if g.Output != "" {
		lines = append(lines, "output = "+quote(g.Output))
	}
	if len(g.BinaryTargets) > 0 {
		lines = append(lines, "binaryTargets = "+quoteList(g.BinaryTargets))
	}
	if len(g.PreviewFeatures) > 0 {
		lines = append(lines, "previewFeatures = "+quoteList(g.PreviewFeatures))
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

// PrintDocumentation prints a documentation comment
func PrintDocumentation(doc string) string {
	return "/// " + doc
}

func withDocumentation(doc, code string) string {
	if doc == "" {
		return code
	}
	return PrintDocumentation(doc) + "\n" + code
}

// PrintEnum prints an enum block, one value per line
func PrintEnum(e schema.Enum) string {
	code := "enum " + e.Name + " {\n" + strings.Join(e.Values, "\n") + "\n}"
	return withDocumentation(e.Documentation, code)
}

// PrintModel prints a model block. ds may be nil unless a field carries a
// native type mapping.
func PrintModel(m schema.Entity, ds *schema.DataSource) (string, error) {
	return printEntity("model", m, ds)
}

// PrintView prints a view block
func PrintView(v schema.Entity, ds *schema.DataSource) (string, error) {
	return printEntity("view", v, ds)
}

func printEntity(keyword string, e schema.Entity, ds *schema.DataSource) (string, error) {
	var sections []string

	if len(e.Fields) > 0 {
		fields := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			text, err := PrintField(f, ds)
			if err != nil {
				var fe *errs.Error
				if errors.As(err, &fe) && fe.Entity == "" {
					return "", fe.InEntity(e.Name)
				}
				return "", err
			}
			fields = append(fields, text)
		}
		sections = append(sections, strings.Join(fields, "\n"))
	}
	if e.Map != "" {
		sections = append(sections, PrintMap(e.Map))
	}
	if len(e.Indexes) > 0 {
		lines := make([]string, 0, len(e.Indexes))
		for _, idx := range e.Indexes {
			lines = append(lines, PrintIndex(idx))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(e.UniqueIndexes) > 0 {
		lines := make([]string, 0, len(e.UniqueIndexes))
		for _, idx := range e.UniqueIndexes {
			lines = append(lines, PrintUniqueIndex(idx))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if e.Kind == schema.ModelKind && len(e.FullTextIndexes) > 0 {
		lines := make([]string, 0, len(e.FullTextIndexes))
		for _, idx := range e.FullTextIndexes {
			lines = append(lines, PrintFullTextIndex(idx))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	code := keyword + " " + e.Name + " {\n"
	if len(sections) > 0 {
		code += strings.Join(sections, "\n\n") + "\n"
	}
	code += "}"
	return withDocumentation(e.Documentation, code), nil
}

// PrintField prints a field line, preceded by its documentation if any
func PrintField(f schema.Field, ds *schema.DataSource) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	switch f.Kind {
	case schema.ScalarKind:
		text, err = printScalarField(f.BaseField, f.Scalar, ds)
	case schema.RelationKind:
		text, err = printRelationField(f.BaseField, f.Relation, ds)
	}
	if err != nil {
		return "", err
	}
	return withDocumentation(f.Documentation, text), nil
}

func printScalarField(base schema.BaseField, attrs *schema.ScalarAttributes, ds *schema.DataSource) (string, error) {
	var attributes []string
	mongo := ds != nil && ds.Provider == schema.MongoDB

	if attrs.IsID {
		if mongo {
			attributes = append(attributes, `@id @map("_id") @`+ds.Name+".ObjectId")
		} else {
			attributes = append(attributes, "@id")
		}
	}
	if mongo && attrs.IsForeignKey {
		attributes = append(attributes, "@"+ds.Name+".ObjectId")
	}
	if attrs.IsUnique {
		attributes = append(attributes, "@unique")
	}
	if attrs.IsUpdatedAt {
		attributes = append(attributes, "@updatedAt")
	}
	if base.NativeMapping != nil {
		attr, err := printNativeMapping(base.Name, base.NativeMapping, ds)
		if err != nil {
			return "", err
		}
		attributes = append(attributes, attr)
	}
	if attrs.Default.IsSet() {
		if mongo && attrs.IsID {
			attributes = append(attributes, "@default(auto())")
		} else {
			attributes = append(attributes, "@default("+printDefault(attrs.Default)+")")
		}
	}

	return joinNonEmpty(base.Name, string(attrs.Type)+printModifiers(base), strings.Join(attributes, " ")), nil
}

func printDefault(d schema.Default) string {
	if callee, ok := d.Callee(); ok {
		return callee + "()"
	}
	v, _ := d.Value()
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func printRelationField(base schema.BaseField, attrs *schema.RelationAttributes, ds *schema.DataSource) (string, error) {
	var attributes []string
	if base.NativeMapping != nil {
		attr, err := printNativeMapping(base.Name, base.NativeMapping, ds)
		if err != nil {
			return "", err
		}
		attributes = append(attributes, attr)
	}
	if attrs.RelationName != "" || len(attrs.RelationToFields) > 0 || len(attrs.RelationReferences) > 0 {
		attributes = append(attributes, printRelation(attrs))
	}
	return joinNonEmpty(base.Name, attrs.Type+printModifiers(base), strings.Join(attributes, " ")), nil
}

func printRelation(attrs *schema.RelationAttributes) string {
	var args []string
	if attrs.RelationName != "" {
		args = append(args, "name: "+quote(attrs.RelationName))
	}
	if len(attrs.RelationToFields) > 0 {
		args = append(args, "fields: ["+strings.Join(attrs.RelationToFields, ", ")+"]")
	}
	if len(attrs.RelationReferences) > 0 {
		args = append(args, "references: ["+strings.Join(attrs.RelationReferences, ", ")+"]")
	}
	if attrs.OnDelete != "" && attrs.OnDelete != schema.NoneAction {
		args = append(args, "onDelete: "+string(attrs.OnDelete))
	}
	if attrs.OnUpdate != "" && attrs.OnUpdate != schema.NoneAction {
		args = append(args, "onUpdate: "+string(attrs.OnUpdate))
	}
	return "@relation(" + strings.Join(args, ", ") + ")"
}

// printModifiers returns [] for lists, ? for optional non-list fields.
func printModifiers(base schema.BaseField) string {
	if base.IsList {
		return "[]"
	}
	if !base.IsRequired {
		return "?"
	}
	return ""
}

func printNativeMapping(field string, m *schema.NativeMapping, ds *schema.DataSource) (string, error) {
	if ds == nil {
		return "", errs.New(errs.KindConfiguration, "datasource is required when using the native mapping").InField(field)
	}
	attr := "@" + ds.Name + "." + m.Name
	if len(m.Arguments) > 0 {
		args := make([]string, 0, len(m.Arguments))
		for _, a := range m.Arguments {
			args = append(args, fmt.Sprint(a))
		}
		attr += "(" + strings.Join(args, ", ") + ")"
	}
	return attr, nil
}

// PrintMap prints the @@map directive
func PrintMap(name string) string {
	return "@@map(" + quote(name) + ")"
}

// PrintIndex prints an @@index directive
func PrintIndex(idx schema.Index) string {
	return "@@index(fields: [" + printIndexFields(idx.Fields, true) + "])"
}

// PrintUniqueIndex prints an @@unique directive
func PrintUniqueIndex(idx schema.UniqueIndex) string {
	args := "fields: [" + printIndexFields(idx.Fields, true) + "]"
	if idx.Name != "" {
		args += ", name: " + quote(idx.Name)
	}
	return "@@unique(" + args + ")"
}

// PrintFullTextIndex prints an @@fulltext directive. Sort orders are ignored.
func PrintFullTextIndex(idx schema.FullTextIndex) string {
	return "@@fulltext(fields: [" + printIndexFields(idx.Fields, false) + "])"
}

func printIndexFields(fields []schema.IndexField, withSort bool) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if withSort && f.Sort != "" {
			parts = append(parts, f.Name+"(sort: "+cases.Title(language.English).String(string(f.Sort))+")")
			continue
		}
		parts = append(parts, f.Name)
	}
	return strings.Join(parts, ", ")
}

func quote(s string) string {
	return strconv.Quote(s)
}

func quoteList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, quote(v))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Package config loads the YAML configuration of the generate command.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/prismaschema/internal/errs"
	"github.com/tordrt/prismaschema/internal/reflector"
	"github.com/tordrt/prismaschema/internal/schema"
)

// Formatter names
const (
	FormatterBuiltin = "builtin"
	FormatterPrisma  = "prisma"
	FormatterNone    = "none"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRISMASCHEMA_"

type Config struct {
	Output           string                 `yaml:"output"`
	Formatter        string                 `yaml:"formatter"`
	FormatCommand    []string               `yaml:"formatCommand"`
	Log              LogConfig              `yaml:"log"`
	ClientGeneration ClientGenerationConfig `yaml:"clientGeneration"`
	DataSource       *DataSourceConfig      `yaml:"datasource"`
	Generators       []GeneratorConfig      `yaml:"generators"`
	Enums            []EnumConfig           `yaml:"enums"`
	Models           []EntityConfig         `yaml:"models"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ClientGenerationConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command"`
}

type DataSourceConfig struct {
	Name              string `yaml:"name"`
	Provider          string `yaml:"provider"`
	URL               string `yaml:"url"`
	Env               string `yaml:"env"`
	ShadowDatabaseURL string `yaml:"shadowDatabaseUrl"`
	ShadowEnv         string `yaml:"shadowEnv"`
	RelationMode      string `yaml:"relationMode"`
}

type GeneratorConfig struct {
	Name            string   `yaml:"name"`
	Provider        string   `yaml:"provider"`
	Output          string   `yaml:"output"`
	BinaryTargets   []string `yaml:"binaryTargets"`
	PreviewFeatures []string `yaml:"previewFeatures"`
}

type EnumConfig struct {
	Name          string   `yaml:"name"`
	Values        []string `yaml:"values"`
	Documentation string   `yaml:"documentation"`
}

// EntityConfig describes a model or a view
type EntityConfig struct {
	Kind            string        `yaml:"kind"` // model (default) or view
	Name            string        `yaml:"name"`
	Map             string        `yaml:"map"`
	Documentation   string        `yaml:"documentation"`
	Indexes         []IndexConfig `yaml:"indexes"`
	UniqueIndexes   []IndexConfig `yaml:"uniqueIndexes"`
	FullTextIndexes []IndexConfig `yaml:"fullTextIndexes"`
	Fields          []FieldConfig `yaml:"fields"`
}

// IndexConfig lists index fields as "name" or "name:asc|desc"
type IndexConfig struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

type FieldConfig struct {
	Name          string         `yaml:"name"`
	Type          string         `yaml:"type"`
	List          *bool          `yaml:"list"`
	Required      bool           `yaml:"required"`
	Unique        bool           `yaml:"unique"`
	ID            bool           `yaml:"id"`
	UpdatedAt     bool           `yaml:"updatedAt"`
	ForeignKey    bool           `yaml:"foreignKey"`
	Default       any            `yaml:"default"`
	Native        string         `yaml:"native"`
	Documentation string         `yaml:"documentation"`
	Relation      RelationConfig `yaml:"relation"`
}

type RelationConfig struct {
	Name       string   `yaml:"name"`
	Fields     []string `yaml:"fields"`
	References []string `yaml:"references"`
	OnDelete   string   `yaml:"onDelete"`
	OnUpdate   string   `yaml:"onUpdate"`
}

// Default returns the configuration used when a key is not set
func Default() *Config {
	return &Config{
		Output:    "prisma/schema.prisma",
		Formatter: FormatterBuiltin,
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the configuration file at path, applies environment overrides
// and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from PRISMASCHEMA_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "OUTPUT"); ok {
		c.Output = v
	}
	if v, ok := lookup(EnvPrefix + "FORMATTER"); ok {
		c.Formatter = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvPrefix + "CLIENT_GENERATION"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errs.Wrap(errs.KindConfiguration, EnvPrefix+"CLIENT_GENERATION must be a boolean", err)
		}
		c.ClientGeneration.Enabled = enabled
	}
	return nil
}

// Validate reports settings that cannot produce a schema
func (c *Config) Validate() error {
	if !slices.Contains([]string{FormatterBuiltin, FormatterPrisma, FormatterNone}, c.Formatter) {
		return errs.New(errs.KindConfiguration, fmt.Sprintf("unknown formatter %q", c.Formatter))
	}
	if c.Output == "" {
		return errs.New(errs.KindConfiguration, "output is required")
	}
	if ds := c.DataSource; ds != nil {
		if ds.Name == "" {
			return errs.New(errs.KindConfiguration, "datasource.name is required")
		}
		if !slices.Contains(schema.Providers, schema.Provider(ds.Provider)) {
			return errs.New(errs.KindConfiguration, fmt.Sprintf("unknown datasource provider %q", ds.Provider))
		}
		if ds.URL == "" && ds.Env == "" {
			return errs.New(errs.KindConfiguration, "datasource requires url or env")
		}
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return errs.New(errs.KindConfiguration, "models entry without name")
		}
		if m.Kind != "" && m.Kind != "model" && m.Kind != "view" {
			return errs.New(errs.KindConfiguration, fmt.Sprintf("unknown kind %q", m.Kind)).InEntity(m.Name)
		}
		if seen[m.Name] {
			return errs.New(errs.KindConfiguration, "entity is configured twice").InEntity(m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// SchemaDataSource builds the configured data source. It returns nil when
// none is configured.
func (c *Config) SchemaDataSource() (*schema.DataSource, error) {
	if c.DataSource == nil {
		return nil, nil
	}
	ds := c.DataSource
	opts := schema.DataSourceOptions{
		Name:         ds.Name,
		Provider:     schema.Provider(ds.Provider),
		URL:          ds.URL,
		RelationMode: schema.RelationMode(ds.RelationMode),
	}
	if ds.Env != "" {
		opts.URL = schema.EnvURL(ds.Env)
	}
	switch {
	case ds.ShadowEnv != "":
		opts.ShadowDatabaseURL = schema.EnvURL(ds.ShadowEnv)
	case ds.ShadowDatabaseURL != "":
		opts.ShadowDatabaseURL = ds.ShadowDatabaseURL
	}

	built, err := schema.NewDataSource(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build datasource: %w", err)
	}
	return &built, nil
}

// SchemaGenerators builds the configured generators
func (c *Config) SchemaGenerators() ([]schema.Generator, error) {
	out := make([]schema.Generator, 0, len(c.Generators))
	for _, g := range c.Generators {
		built, err := schema.NewGenerator(schema.GeneratorOptions{
			Name:            g.Name,
			Provider:        g.Provider,
			Output:          g.Output,
			BinaryTargets:   g.BinaryTargets,
			PreviewFeatures: g.PreviewFeatures,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build generator %s: %w", g.Name, err)
		}
		out = append(out, built)
	}
	return out, nil
}

// SchemaEnums builds the configured enums
func (c *Config) SchemaEnums() ([]schema.Enum, error) {
	out := make([]schema.Enum, 0, len(c.Enums))
	for _, e := range c.Enums {
		built, err := schema.NewEnum(schema.EnumOptions{
			Name:          e.Name,
			Values:        e.Values,
			Documentation: e.Documentation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build enum %s: %w", e.Name, err)
		}
		out = append(out, built)
	}
	return out, nil
}

// Registry registers every configured entity under its name. A field type
// naming another configured entity is a declaration reference; see
// reflector.ParseTypeName for the other forms.
func (c *Config) Registry() (*reflector.Registry, error) {
	entities := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		entities[m.Name] = true
	}

	reg := reflector.NewRegistry()
	for _, m := range c.Models {
		meta, err := m.entityMeta()
		if err != nil {
			return nil, err
		}
		props := make([]reflector.Property, 0, len(m.Fields))
		for _, f := range m.Fields {
			p, err := f.property(entities)
			if err != nil {
				var e *errs.Error
				if errors.As(err, &e) && e.Entity == "" {
					return nil, e.InEntity(m.Name)
				}
				return nil, err
			}
			props = append(props, p)
		}
		if err := reg.Register(reflector.Declaration(m.Name), meta, props...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (m EntityConfig) entityMeta() (reflector.EntityMeta, error) {
	meta := reflector.EntityMeta{
		Kind:          schema.ModelKind,
		Name:          m.Name,
		Map:           m.Map,
		Documentation: m.Documentation,
	}
	if m.Kind == "view" {
		meta.Kind = schema.ViewKind
	}
	for _, idx := range m.Indexes {
		fields, err := indexFields(m.Name, idx)
		if err != nil {
			return meta, err
		}
		meta.Indexes = append(meta.Indexes, schema.Index{Fields: fields})
	}
	for _, idx := range m.UniqueIndexes {
		fields, err := indexFields(m.Name, idx)
		if err != nil {
			return meta, err
		}
		meta.UniqueIndexes = append(meta.UniqueIndexes, schema.UniqueIndex{Fields: fields, Name: idx.Name})
	}
	for _, idx := range m.FullTextIndexes {
		fields, err := indexFields(m.Name, idx)
		if err != nil {
			return meta, err
		}
		meta.FullTextIndexes = append(meta.FullTextIndexes, schema.FullTextIndex{Fields: fields})
	}
	return meta, nil
}

func indexFields(entity string, idx IndexConfig) ([]schema.IndexField, error) {
	if len(idx.Fields) == 0 {
		return nil, errs.New(errs.KindConfiguration, "index without fields").InEntity(entity)
	}
	fields := make([]schema.IndexField, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		name, sort, _ := strings.Cut(f, ":")
		fields = append(fields, schema.IndexField{Name: name, Sort: schema.SortOrder(strings.ToLower(sort))})
	}
	return fields, nil
}

func (f FieldConfig) property(entities map[string]bool) (reflector.Property, error) {
	if f.Type == "" {
		return reflector.Property{}, errs.New(errs.KindConfiguration, "type is required").InField(f.Name)
	}

	name := strings.TrimSuffix(f.Type, "[]")
	t := reflector.ParseTypeName(f.Type)
	if entities[name] {
		t = reflector.DeclRef(reflector.Declaration(name))
		t.List = strings.HasSuffix(f.Type, "[]")
	}

	meta := &reflector.FieldMeta{
		Name:               f.Name,
		IsList:             f.List,
		IsRequired:         f.Required,
		IsUnique:           f.Unique,
		IsID:               f.ID,
		IsUpdatedAt:        f.UpdatedAt,
		IsForeignKey:       f.ForeignKey,
		Documentation:      f.Documentation,
		RelationName:       f.Relation.Name,
		RelationFields:     f.Relation.Fields,
		RelationReferences: f.Relation.References,
		OnDelete:           schema.ReferentialAction(f.Relation.OnDelete),
		OnUpdate:           schema.ReferentialAction(f.Relation.OnUpdate),
	}

	switch v := f.Default.(type) {
	case nil:
	case string:
		meta.Default = reflector.ParseDefault(v)
	case bool:
		meta.Default = schema.Literal(v)
	case int:
		meta.Default = schema.Literal(v)
	case float64:
		meta.Default = schema.Literal(v)
	default:
		return reflector.Property{}, errs.New(errs.KindConfiguration, fmt.Sprintf("unsupported default %v", v)).InField(f.Name)
	}

	if f.Native != "" {
		m, err := reflector.ParseNativeMapping(f.Native)
		if err != nil {
			return reflector.Property{}, errs.Wrap(errs.KindConfiguration, "invalid native mapping", err).InField(f.Name)
		}
		meta.NativeMapping = m
	}

	return reflector.Property{Name: f.Name, Type: t, Field: meta}, nil
}

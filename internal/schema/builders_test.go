package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/prismaschema/internal/errs"
)

func TestNewScalarField_Defaults(t *testing.T) {
	f, err := NewScalarField(ScalarFieldOptions{Name: "name", Type: String})
	require.NoError(t, err)

	assert.Equal(t, ScalarKind, f.Kind)
	assert.Nil(t, f.Relation)
	require.NotNil(t, f.Scalar)
	assert.False(t, f.IsList)
	assert.False(t, f.IsRequired)
	assert.False(t, f.Scalar.IsUnique)
	assert.False(t, f.Scalar.IsID)
	assert.False(t, f.Scalar.IsUpdatedAt)
	assert.False(t, f.Scalar.IsForeignKey)
	assert.False(t, f.Scalar.Default.IsSet())
	assert.Empty(t, f.Documentation)
	assert.Nil(t, f.NativeMapping)
}

func TestDefault_AbsentVersusFalsy(t *testing.T) {
	tests := []struct {
		name    string
		def     Default
		set     bool
		literal any
	}{
		{name: "absent", def: NoDefault(), set: false},
		{name: "zero value", def: Default{}, set: false},
		{name: "false", def: Literal(false), set: true, literal: false},
		{name: "zero int", def: Literal(0), set: true, literal: 0},
		{name: "empty string", def: Literal(""), set: true, literal: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.set, tt.def.IsSet())
			v, ok := tt.def.Value()
			assert.Equal(t, tt.set, ok)
			if tt.set {
				assert.Equal(t, tt.literal, v)
			}
			_, isCall := tt.def.Callee()
			assert.False(t, isCall)
		})
	}

	callee, ok := Call(Now).Callee()
	assert.True(t, ok)
	assert.Equal(t, "now", callee)
	_, isLiteral := Call(Now).Value()
	assert.False(t, isLiteral)
}

func TestNewScalarField_Invalid(t *testing.T) {
	_, err := NewScalarField(ScalarFieldOptions{Type: String})
	assert.True(t, errs.IsStructural(err))

	_, err = NewScalarField(ScalarFieldOptions{Name: "id"})
	assert.True(t, errs.IsStructural(err))

	_, err = NewScalarField(ScalarFieldOptions{Name: "id", Type: String, NativeMapping: &NativeMapping{}})
	assert.True(t, errs.IsStructural(err))
}

func TestNewRelationField_Defaults(t *testing.T) {
	f, err := NewRelationField(RelationFieldOptions{Name: "customer", Type: "Customer"})
	require.NoError(t, err)

	assert.Equal(t, RelationKind, f.Kind)
	assert.Nil(t, f.Scalar)
	require.NotNil(t, f.Relation)
	assert.Equal(t, "Customer", f.Relation.Type)
	assert.Empty(t, f.Relation.RelationName)
	assert.Equal(t, []string{}, f.Relation.RelationToFields)
	assert.Equal(t, []string{}, f.Relation.RelationReferences)
	assert.Equal(t, NoneAction, f.Relation.OnDelete)
	assert.Equal(t, NoneAction, f.Relation.OnUpdate)
}

func TestNewRelationField_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts RelationFieldOptions
	}{
		{name: "missing target", opts: RelationFieldOptions{Name: "customer"}},
		{name: "scalar target", opts: RelationFieldOptions{Name: "customer", Type: "String"}},
		{name: "unknown action", opts: RelationFieldOptions{Name: "customer", Type: "Customer", OnDelete: "DROP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRelationField(tt.opts)
			assert.True(t, errs.IsStructural(err))
		})
	}
}

func TestField_Validate(t *testing.T) {
	f, err := NewScalarField(ScalarFieldOptions{Name: "id", Type: String})
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	f.Relation = &RelationAttributes{Type: "Customer"}
	assert.True(t, errs.IsStructural(f.Validate()))

	assert.True(t, errs.IsStructural(Field{BaseField: BaseField{Name: "x"}}.Validate()))
}

func TestNewModel(t *testing.T) {
	id, err := NewScalarField(ScalarFieldOptions{Name: "id", Type: String, IsID: true, IsRequired: true})
	require.NoError(t, err)

	t.Run("zero fields allowed", func(t *testing.T) {
		m, err := NewModel(ModelOptions{Name: "Empty"})
		require.NoError(t, err)
		assert.Equal(t, ModelKind, m.Kind)
		assert.Empty(t, m.Fields)
		assert.Nil(t, m.Indexes)
		assert.Nil(t, m.UniqueIndexes)
	})

	t.Run("duplicate field", func(t *testing.T) {
		_, err := NewModel(ModelOptions{Name: "Customer", Fields: []Field{id, id}})
		require.Error(t, err)
		assert.True(t, errs.IsStructural(err))
		assert.Contains(t, err.Error(), "entity Customer field id")
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := NewModel(ModelOptions{Fields: []Field{id}})
		assert.True(t, errs.IsStructural(err))
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, err := NewModel(ModelOptions{
			Name:    "Customer",
			Fields:  []Field{id},
			Indexes: []Index{{Fields: []IndexField{{Name: "id", Sort: "up"}}}},
		})
		assert.True(t, errs.IsStructural(err))
	})

	t.Run("inputs are copied", func(t *testing.T) {
		fields := []Field{id}
		m, err := NewModel(ModelOptions{Name: "Customer", Fields: fields})
		require.NoError(t, err)
		fields[0].Name = "changed"
		assert.Equal(t, "id", m.Fields[0].Name)
	})
}

func TestNewView(t *testing.T) {
	v, err := NewView(ViewOptions{Name: "CustomerSummary"})
	require.NoError(t, err)
	assert.Equal(t, ViewKind, v.Kind)
	assert.Nil(t, v.FullTextIndexes)
}

func TestNewEnum(t *testing.T) {
	e, err := NewEnum(EnumOptions{Name: "Role", Values: []string{"USER", "ADMIN"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"USER", "ADMIN"}, e.Values)

	_, err = NewEnum(EnumOptions{Name: "Role"})
	assert.True(t, errs.IsStructural(err))

	_, err = NewEnum(EnumOptions{Name: "Role", Values: []string{"USER", "USER"}})
	assert.True(t, errs.IsStructural(err))
}

func TestNewDataSource(t *testing.T) {
	t.Run("literal url", func(t *testing.T) {
		ds, err := NewDataSource(DataSourceOptions{Name: "db", Provider: PostgreSQL, URL: "postgres://localhost/app"})
		require.NoError(t, err)
		assert.Equal(t, LiteralURL("postgres://localhost/app"), ds.URL)
		assert.Nil(t, ds.ShadowDatabaseURL)
	})

	t.Run("env url and shadow", func(t *testing.T) {
		ds, err := NewDataSource(DataSourceOptions{
			Name:              "db",
			Provider:          MySQL,
			URL:               EnvURL("DATABASE_URL"),
			ShadowDatabaseURL: EnvURL("SHADOW_DATABASE_URL"),
			RelationMode:      RelationModePrisma,
		})
		require.NoError(t, err)
		assert.True(t, ds.URL.Env)
		assert.Equal(t, "DATABASE_URL", ds.URL.Value)
		require.NotNil(t, ds.ShadowDatabaseURL)
		assert.Equal(t, "SHADOW_DATABASE_URL", ds.ShadowDatabaseURL.Value)
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := NewDataSource(DataSourceOptions{Name: "db", Provider: SQLite})
		assert.True(t, errs.IsStructural(err))
	})

	t.Run("unsupported url value", func(t *testing.T) {
		_, err := NewDataSource(DataSourceOptions{Name: "db", Provider: SQLite, URL: 42})
		assert.True(t, errs.IsStructural(err))
	})
}

func TestNewSchema_UniqueEntityNames(t *testing.T) {
	model, err := NewModel(ModelOptions{Name: "Customer"})
	require.NoError(t, err)
	view, err := NewView(ViewOptions{Name: "Customer"})
	require.NoError(t, err)

	_, err = NewSchema(SchemaOptions{Models: []Entity{model}, Views: []Entity{view}})
	require.Error(t, err)
	assert.True(t, errs.IsStructural(err))

	_, err = NewSchema(SchemaOptions{Models: []Entity{view}})
	assert.True(t, errs.IsStructural(err))

	s, err := NewSchema(SchemaOptions{Models: []Entity{model}})
	require.NoError(t, err)
	assert.Nil(t, s.DataSource)
	assert.Len(t, s.Models, 1)
}

package prismaschema

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/prismaschema/internal/errs"
	"github.com/tordrt/prismaschema/internal/logger"
	"github.com/tordrt/prismaschema/internal/printer"
	"github.com/tordrt/prismaschema/internal/reflector"
	"github.com/tordrt/prismaschema/internal/schema"
)

type Customer struct {
	Model     `prisma:"unique=id,fulltext=firstname|lastname" prismadoc:"A paying customer"`
	ID        string          `prisma:"name=id,id,required"`
	Firstname string          `prisma:"name=firstname,required"`
	Lastname  string          `prisma:"name=lastname,required"`
	Age       *float64        `prisma:"name=age"`
	Tokens    []CustomerToken `prisma:"name=tokens"`
	cache     map[string]int
}

type CustomerToken struct {
	Model
	ID         string    `prisma:"name=id,id,required"`
	CustomerID string    `prisma:"name=customerId,required,fk"`
	Customer   *Customer `prisma:"name=customer,required,fields=customerId,references=id"`
	CreatedAt  time.Time `prisma:"name=createdAt,required,default=now()"`
	Revoked    bool      `prisma:"name=revoked,required,default=false"`
}

type CustomerStats struct {
	View   `prisma:"map=customer_stats"`
	ID     string `prisma:"name=id,required,unique"`
	Tokens int    `prisma:"name=tokens,required,type=Int"`
}

type Invoice struct {
	Model
	ID     string `prisma:"name=id,id,required"`
	Amount string `prisma:"name=amount,required,native=Money"`
}

type Broken struct {
	Model
	ID   string         `prisma:"name=id,id,required"`
	Meta map[string]int `prisma:"name=meta"`
}

var expectedShop = `model Customer {
id String @id
firstname String
lastname String
age Float?
tokens CustomerToken[]

@@unique(fields: [id])

@@fulltext(fields: [firstname, lastname])
}`

func newShopGenerator(t *testing.T, opts ...Option) (*Generator, []Declaration) {
	t.Helper()
	src, decls, err := Structs(Customer{}, &CustomerStats{})
	require.NoError(t, err)
	return New(src, append([]Option{WithFormatter(printer.Noop)}, opts...)...), decls
}

func TestGenerator_Generate(t *testing.T) {
	gen, decls := newShopGenerator(t)

	res, err := gen.Generate(context.Background(), decls...)
	require.NoError(t, err)

	require.Len(t, res.Schema.Models, 2)
	require.Len(t, res.Schema.Views, 1)
	assert.Equal(t, "Customer", res.Schema.Models[0].Name)
	assert.Equal(t, "CustomerToken", res.Schema.Models[1].Name, "referenced declarations are discovered")

	assert.Contains(t, res.Text, "/// A paying customer\n"+expectedShop)
	assert.Contains(t, res.Text, "\ncustomer Customer @relation(fields: [customerId], references: [id])\n")
	assert.Contains(t, res.Text, "\ncreatedAt DateTime @default(now())\n")
	assert.Contains(t, res.Text, "\nrevoked Boolean @default(false)\n")
	assert.Contains(t, res.Text, "view CustomerStats {\nid String @unique\ntokens Int\n\n@@map(\"customer_stats\")\n}")
	assert.NotContains(t, res.Text, "cache")
}

func TestGenerator_Deterministic(t *testing.T) {
	first, decls := newShopGenerator(t)
	a, err := first.Generate(context.Background(), decls...)
	require.NoError(t, err)

	second, decls := newShopGenerator(t)
	b, err := second.Generate(context.Background(), decls...)
	require.NoError(t, err)

	assert.Equal(t, a.Text, b.Text)

	again, err := first.Generate(context.Background(), decls...)
	require.NoError(t, err)
	assert.Equal(t, a.Text, again.Text)
}

func TestGenerator_Blocks(t *testing.T) {
	ds, err := schema.NewDataSource(schema.DataSourceOptions{
		Name:     "db",
		Provider: schema.PostgreSQL,
		URL:      schema.EnvURL("DATABASE_URL"),
	})
	require.NoError(t, err)
	client, err := schema.NewGenerator(schema.GeneratorOptions{Name: "client", Provider: "prisma-client-js"})
	require.NoError(t, err)
	role, err := schema.NewEnum(schema.EnumOptions{Name: "Role", Values: []string{"USER", "ADMIN"}})
	require.NoError(t, err)

	src, decls, err := Structs(Invoice{})
	require.NoError(t, err)
	gen := New(src, WithDataSource(ds), WithGenerators(client), WithEnums(role), WithFormatter(nil))

	res, err := gen.Generate(context.Background(), decls...)
	require.NoError(t, err)

	expected := "datasource db {\nprovider = \"postgresql\"\nurl = env(\"DATABASE_URL\")\n}\n\n" +
		"generator client {\nprovider = \"prisma-client-js\"\n}\n\n" +
		"model Invoice {\nid String @id\namount String @db.Money\n}\n\n" +
		"enum Role {\nUSER\nADMIN\n}\n"
	assert.Equal(t, expected, res.Text)
}

func TestGenerator_Fprint(t *testing.T) {
	gen, decls := newShopGenerator(t)
	var buf bytes.Buffer
	s, err := gen.Fprint(context.Background(), &buf, decls...)
	require.NoError(t, err)
	assert.Len(t, s.Models, 2)

	other, decls := newShopGenerator(t)
	res, err := other.Generate(context.Background(), decls...)
	require.NoError(t, err)
	assert.Equal(t, res.Text, buf.String())
}

func TestGenerator_Reset(t *testing.T) {
	gen, decls := newShopGenerator(t)
	_, err := gen.Generate(context.Background(), decls...)
	require.NoError(t, err)

	gen.Reset()
	s, err := gen.Schema()
	require.NoError(t, err)
	assert.Empty(t, s.Models)
	assert.Empty(t, s.Views)

	// decls[1] is CustomerStats
	res, err := gen.Generate(context.Background(), decls[1])
	require.NoError(t, err)
	assert.Empty(t, res.Schema.Models)
	require.Len(t, res.Schema.Views, 1)
	assert.NotContains(t, res.Text, "model Customer")
}

func TestGenerator_BuiltinFormatter(t *testing.T) {
	src, decls, err := Structs(Customer{})
	require.NoError(t, err)

	res, err := New(src).Generate(context.Background(), decls...)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "model Customer {\n  id ")
}

func TestGenerator_Errors(t *testing.T) {
	t.Run("classification", func(t *testing.T) {
		src, decls, err := Structs(Broken{})
		require.NoError(t, err)
		_, err = New(src).Generate(context.Background(), decls...)
		require.Error(t, err)
		assert.True(t, errs.IsClassification(err))
	})

	t.Run("native mapping without datasource", func(t *testing.T) {
		src, decls, err := Structs(Invoice{})
		require.NoError(t, err)
		_, err = New(src).Generate(context.Background(), decls...)
		require.Error(t, err)
		assert.True(t, errs.IsConfiguration(err))
	})

	t.Run("formatter failure", func(t *testing.T) {
		gen, decls := newShopGenerator(t, WithFormatter(printer.FormatterFunc(func(context.Context, string) (string, error) {
			return "", assert.AnError
		})))
		_, err := gen.Generate(context.Background(), decls...)
		require.Error(t, err)
		assert.True(t, errs.IsFormat(err))
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("not an entity", func(t *testing.T) {
		_, _, err := Structs(struct{ Name string }{})
		assert.True(t, errs.IsClassification(err))
	})
}

func TestGenerator_Registry(t *testing.T) {
	reg := reflector.NewRegistry()
	require.NoError(t, reg.Register("Account", reflector.EntityMeta{Kind: schema.ModelKind, Map: "accounts"},
		reflector.Property{Name: "ID", Type: reflector.StringType(), Field: &reflector.FieldMeta{Name: "id", IsID: true, IsRequired: true}},
		reflector.Property{Name: "Owner", Type: reflector.NameRef("User"), Field: &reflector.FieldMeta{Name: "owner"}},
	))

	res, err := New(reg, WithFormatter(nil)).Generate(context.Background(), reg.Declarations()...)
	require.NoError(t, err)
	assert.Equal(t, "model Account {\nid String @id\nowner User?\n\n@@map(\"accounts\")\n}\n", res.Text)
}

func TestGenerator_WriteFile(t *testing.T) {
	var logs bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &logs})

	gen, decls := newShopGenerator(t, WithLogger(log))
	path := filepath.Join(t.TempDir(), "prisma", "schema.prisma")

	res, err := gen.WriteFile(context.Background(), path, decls...)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Text, string(data))
	assert.Contains(t, logs.String(), `"message":"schema written"`)
	assert.Contains(t, logs.String(), `"declaration":"`)
}

func TestWriteSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "schema.prisma")

	require.NoError(t, WriteSchema(path, "model A {\n}\n"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "model A {\n}\n", string(data))

	require.NoError(t, WriteSchema(path, "model B {\n}\n"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "model B {\n}\n", string(data), "existing files are overwritten")
}

func TestGenerateClient(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	out, err := GenerateClient(context.Background(), []string{"sh", "-c", `echo "client for $1"`}, "prisma/schema.prisma")
	require.NoError(t, err)
	assert.Equal(t, "client for prisma/schema.prisma\n", out)

	_, err = GenerateClient(context.Background(), []string{"sh", "-c", "exit 3"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate client")
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("", nil)
	require.NoError(t, err)
	assert.IsType(t, printer.Normalizer{}, f)

	f, err = NewFormatter(FormatterPrisma, []string{"prisma", "format"})
	require.NoError(t, err)
	assert.Equal(t, printer.CommandFormatter{Command: []string{"prisma", "format"}}, f)

	f, err = NewFormatter(FormatterNone, nil)
	require.NoError(t, err)
	text, err := f.Format(context.Background(), "model A {\n}")
	require.NoError(t, err)
	assert.Equal(t, "model A {\n}", text)

	_, err = NewFormatter("gofmt", nil)
	assert.Error(t, err)
}

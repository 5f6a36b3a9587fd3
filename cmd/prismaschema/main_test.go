package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/prismaschema/internal/config"
	"github.com/tordrt/prismaschema/internal/logger"
	"github.com/tordrt/prismaschema/internal/printer"
	"github.com/tordrt/prismaschema/internal/schema"
)

const blogConfig = `
formatter: none
datasource:
  name: db
  provider: sqlite
  url: file:dev.db
models:
  - name: Post
    fields:
      - {name: id, type: Int, id: true, required: true, default: "autoincrement()"}
      - {name: title, type: string, required: true}
`

const blogSchema = "datasource db {\n" +
	"provider = \"sqlite\"\n" +
	"url = \"file:dev.db\"\n" +
	"}\n\n" +
	"model Post {\n" +
	"id Int @id @default(autoincrement())\n" +
	"title String\n" +
	"}\n"

func TestDatabaseURL(t *testing.T) {
	tests := []struct {
		name                    string
		postgres, mysql, sqlite string
		want                    string
		wantErr                 bool
	}{
		{name: "postgres", postgres: "postgres://localhost/shop", want: "postgres://localhost/shop"},
		{name: "mysql", mysql: "root@tcp(localhost:3306)/shop", want: "mysql://root@tcp(localhost:3306)/shop"},
		{name: "sqlite", sqlite: "shop.db", want: "sqlite://shop.db"},
		{name: "none", wantErr: true},
		{name: "two", postgres: "postgres://localhost/shop", sqlite: "shop.db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := databaseURL(tt.postgres, tt.mysql, tt.sqlite)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateJob_Stdout(t *testing.T) {
	cfg, err := config.Parse([]byte(blogConfig))
	require.NoError(t, err)

	var out bytes.Buffer
	job := generateJob{cfg: cfg, log: logger.Nop(), stdout: &out, print: true}
	require.NoError(t, job.run(context.Background()))
	assert.Equal(t, blogSchema, out.String())
}

func TestGenerateJob_WritesFile(t *testing.T) {
	cfg, err := config.Parse([]byte(blogConfig))
	require.NoError(t, err)
	cfg.Output = filepath.Join(t.TempDir(), "prisma", "schema.prisma")

	job := generateJob{cfg: cfg, log: logger.Nop()}
	require.NoError(t, job.run(context.Background()))

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, blogSchema, string(data))

	job.output = filepath.Join(t.TempDir(), "override.prisma")
	require.NoError(t, job.run(context.Background()))
	assert.FileExists(t, job.output)
}

func TestGenerateJob_UnknownFormatter(t *testing.T) {
	cfg, err := config.Parse([]byte(blogConfig))
	require.NoError(t, err)
	cfg.Formatter = "gofmt"

	job := generateJob{cfg: cfg, log: logger.Nop(), stdout: &bytes.Buffer{}, print: true}
	assert.Error(t, job.run(context.Background()))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prismaschema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(blogConfig), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, path, logger.Nop(), func() error {
			select {
			case calls <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	// rewrite until the watcher has registered the directory
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

wait:
	for {
		select {
		case <-calls:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(blogConfig), 0o644))
		case <-deadline:
			t.Fatal("watch did not report the configuration change")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestPulledSchema(t *testing.T) {
	id, err := schema.NewScalarField(schema.ScalarFieldOptions{Name: "id", Type: schema.Int, IsRequired: true, IsID: true})
	require.NoError(t, err)
	user, err := schema.NewModel(schema.ModelOptions{Name: "User", Map: "users", Fields: []schema.Field{id}})
	require.NoError(t, err)

	s, err := pulledSchema(schema.PostgreSQL, []schema.Entity{user})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printer.NewPrinter(&out, printer.Noop).Print(context.Background(), s))
	assert.Equal(t, "datasource db {\n"+
		"provider = \"postgresql\"\n"+
		"url = env(\"DATABASE_URL\")\n"+
		"}\n\n"+
		"model User {\n"+
		"id Int @id\n\n"+
		"@@map(\"users\")\n"+
		"}\n", out.String())
}

func TestFormatCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.prisma")
	require.NoError(t, os.WriteFile(path, []byte(blogSchema), 0o644))

	expected, err := printer.Normalizer{}.Format(context.Background(), blogSchema)
	require.NoError(t, err)

	defer func() { formatCheck = false }()

	rootCmd.SetArgs([]string{"format", "--check", path})
	assert.Error(t, rootCmd.Execute(), "unformatted file fails the check")

	formatCheck = false
	rootCmd.SetArgs([]string{"format", path})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected, string(data))

	rootCmd.SetArgs([]string{"format", "--check", path})
	assert.NoError(t, rootCmd.Execute())
}

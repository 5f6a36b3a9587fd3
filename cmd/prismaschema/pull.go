package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tordrt/prismaschema"
	"github.com/tordrt/prismaschema/internal/gostruct"
	"github.com/tordrt/prismaschema/internal/introspect"
	"github.com/tordrt/prismaschema/internal/printer"
	"github.com/tordrt/prismaschema/internal/schema"
)

var (
	dbURL         string
	mysqlURL      string
	sqlitePath    string
	pullOutput    string
	tables        string
	excludeTables string
	schemaName    string
	dsName        string
	urlEnv        string
	pullFormatter string
	goOut         string
	goPackage     string
	concurrency   int
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Generate a Prisma schema from an existing database",
	Long: `pull reads the tables of a PostgreSQL, MySQL or SQLite database and prints one model
per table, with relations derived from foreign keys.`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	pullCmd.Flags().StringVar(&mysqlURL, "mysql-url", "", "MySQL connection string")
	pullCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file path")
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", "Schema file (default: stdout)")
	pullCmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	pullCmd.Flags().StringVar(&excludeTables, "exclude", "", "Tables to leave out (comma-separated)")
	pullCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL, the DSN database for MySQL)")
	pullCmd.Flags().StringVar(&dsName, "datasource", "db", "Datasource block name")
	pullCmd.Flags().StringVar(&urlEnv, "url-env", "DATABASE_URL", "Environment variable read by the datasource url")
	pullCmd.Flags().StringVarP(&pullFormatter, "formatter", "f", prismaschema.FormatterBuiltin, "Formatter: builtin, prisma or none")
	pullCmd.Flags().StringVar(&goOut, "go-out", "", "Also write tagged Go structs to this file")
	pullCmd.Flags().StringVar(&goPackage, "go-package", "models", "Package name of the Go structs")
	pullCmd.Flags().IntVar(&concurrency, "concurrency", introspect.DefaultConcurrency, "Tables extracted in parallel")
}

// databaseURL turns the database flags into a URL understood by
// introspect.Connect. Exactly one of them must be set.
func databaseURL(postgres, mysql, sqlite string) (string, error) {
	count := 0
	for _, v := range []string{postgres, mysql, sqlite} {
		if v != "" {
			count++
		}
	}
	if count == 0 {
		return "", fmt.Errorf("one of --db-url, --mysql-url, or --sqlite must be specified")
	}
	if count > 1 {
		return "", fmt.Errorf("only one of --db-url, --mysql-url, or --sqlite can be specified")
	}

	switch {
	case mysql != "":
		return "mysql://" + mysql, nil
	case sqlite != "":
		return "sqlite://" + sqlite, nil
	}
	return postgres, nil
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger("", "")

	url, err := databaseURL(dbURL, mysqlURL, sqlitePath)
	if err != nil {
		return err
	}

	conn, err := introspect.Connect(ctx, url, schemaName)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warnf("failed to close database connection: %v", err)
		}
	}()

	entities, err := introspect.Pull(ctx, conn, introspect.Options{
		Tables:        introspect.ParseTableList(tables),
		ExcludeTables: introspect.ParseTableList(excludeTables),
		Concurrency:   concurrency,
	})
	if err != nil {
		return err
	}
	log.With().Str("provider", string(conn.Provider())).Logger().Infof("introspected %d tables", len(entities))

	formatter, err := prismaschema.NewFormatter(pullFormatter, nil)
	if err != nil {
		return err
	}
	s, err := pulledSchema(conn.Provider(), entities)
	if err != nil {
		return err
	}

	if pullOutput == "" {
		if err := printer.NewPrinter(cmd.OutOrStdout(), formatter).Print(ctx, s); err != nil {
			return err
		}
	} else {
		text, err := printer.Print(ctx, s, formatter)
		if err != nil {
			return err
		}
		if err := prismaschema.WriteSchema(pullOutput, text); err != nil {
			return err
		}
		log.Infof("schema written to %s", pullOutput)
	}

	if goOut != "" {
		var buf bytes.Buffer
		if err := gostruct.Emit(&buf, gostruct.Options{Package: goPackage}, entities); err != nil {
			return err
		}
		if err := prismaschema.WriteSchema(goOut, buf.String()); err != nil {
			return err
		}
		log.Infof("Go structs written to %s", goOut)
	}
	return nil
}

// pulledSchema places introspected models under a datasource reading its url
// from the environment.
func pulledSchema(provider schema.Provider, entities []schema.Entity) (*schema.Schema, error) {
	ds, err := schema.NewDataSource(schema.DataSourceOptions{
		Name:     dsName,
		Provider: provider,
		URL:      schema.EnvURL(urlEnv),
	})
	if err != nil {
		return nil, err
	}
	s, err := schema.NewSchema(schema.SchemaOptions{DataSource: &ds, Models: entities})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble schema: %w", err)
	}
	return &s, nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tordrt/prismaschema/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "prismaschema",
	Short: "Generate Prisma schema files",
	Long: `prismaschema builds Prisma schema files from a YAML description of models and views,
or from the tables of a live PostgreSQL, MySQL or SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: from config, else info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json (default: from config, else console)")

	rootCmd.AddCommand(generateCmd, pullCmd, formatCmd)
}

// newLogger builds the CLI logger. Flags win over the configured values.
func newLogger(level, format string) *logger.Logger {
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: level, Format: format, Output: os.Stderr})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/prismaschema"
)

var (
	formatWith   string
	formatCheck  bool
	formatStdout bool
)

var formatCmd = &cobra.Command{
	Use:   "format <schema.prisma>",
	Short: "Format a Prisma schema file in place",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormat,
}

func init() {
	formatCmd.Flags().StringVarP(&formatWith, "formatter", "f", prismaschema.FormatterBuiltin, "Formatter: builtin or prisma")
	formatCmd.Flags().BoolVar(&formatCheck, "check", false, "Fail if the file is not formatted instead of rewriting it")
	formatCmd.Flags().BoolVar(&formatStdout, "stdout", false, "Print the formatted schema instead of rewriting the file")
}

func runFormat(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	formatter, err := prismaschema.NewFormatter(formatWith, nil)
	if err != nil {
		return err
	}
	text, err := formatter.Format(cmd.Context(), string(data))
	if err != nil {
		return err
	}

	switch {
	case formatCheck:
		if text != string(data) {
			return fmt.Errorf("%s is not formatted", path)
		}
		return nil
	case formatStdout:
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	if text == string(data) {
		return nil
	}
	return prismaschema.WriteSchema(path, text)
}

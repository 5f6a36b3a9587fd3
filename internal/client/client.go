// Package client runs the external client generation step after a schema has
// been written.
package client

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommand generates the Prisma client for the schema found by the
// Prisma CLI.
var DefaultCommand = []string{"npx", "prisma", "generate"}

// Generator runs a client generation command
type Generator struct {
	Command []string
	Dir     string
}

// Generate runs the command with schemaPath passed as --schema when set, and
// returns its combined output.
func (g Generator) Generate(ctx context.Context, schemaPath string) (string, error) {
	command := g.Command
	if len(command) == 0 {
		command = DefaultCommand
	}

	args := append([]string{}, command[1:]...)
	if schemaPath != "" {
		args = append(args, "--schema", schemaPath)
	}

	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = g.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("failed to run %s: %w: %s", strings.Join(command, " "), err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}

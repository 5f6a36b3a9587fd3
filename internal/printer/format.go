package printer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/tordrt/prismaschema/internal/errs"
)

// Formatter normalizes raw schema text
type Formatter interface {
	Format(ctx context.Context, text string) (string, error)
}

// FormatterFunc adapts a function to the Formatter interface
type FormatterFunc func(ctx context.Context, text string) (string, error)

// Format calls f(ctx, text).
func (f FormatterFunc) Format(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Noop returns the text unchanged.
var Noop Formatter = FormatterFunc(func(_ context.Context, text string) (string, error) {
	return text, nil
})

// DefaultFormatCommand is the command run by CommandFormatter when none is set.
var DefaultFormatCommand = []string{"npx", "prisma", "format"}

// CommandFormatter formats schema text with an external command. The text is
// written to a temporary file whose path is passed as --schema <path>, and the
// file is read back once the command exits successfully.
type CommandFormatter struct {
	Command []string
	Dir     string
}

// Format runs the command over text.
func (c CommandFormatter) Format(ctx context.Context, text string) (string, error) {
	command := c.Command
	if len(command) == 0 {
		command = DefaultFormatCommand
	}

	file, err := os.CreateTemp("", "schema-*.prisma")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary schema file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.WriteString(text); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write temporary schema file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close temporary schema file: %w", err)
	}

	args := append(append([]string{}, command[1:]...), "--schema", path)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = c.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.Join(command, " ") + " failed"
		}
		e := errs.Wrap(errs.KindFormat, msg, err)
		e.Text = text
		return "", e
	}

	out, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read formatted schema: %w", err)
	}
	return string(out), nil
}

var blockHeader = regexp.MustCompile(`^(datasource|generator|model|view|enum|type)\s+(\w+)\s*\{$`)

// Normalizer is an in-process formatter. It indents block bodies by two
// spaces, aligns field columns and key = value assignments, and collapses
// runs of blank lines. Text outside of blocks may only be comments.
type Normalizer struct{}

type normalizedBlock struct {
	leading []string
	keyword string
	name    string
	body    []string
}

// Format normalizes text.
func (Normalizer) Format(_ context.Context, text string) (string, error) {
	blocks, err := splitBlocks(text)
	if err != nil {
		e := errs.Wrap(errs.KindFormat, "malformed schema", err)
		e.Text = text
		return "", e
	}
	if len(blocks) == 0 {
		return "", nil
	}

	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		var sb strings.Builder
		for _, l := range b.leading {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
		sb.WriteString(b.keyword + " " + b.name + " {\n")
		for _, l := range alignBody(b.keyword, b.body) {
			if l != "" {
				sb.WriteString("  " + l)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("}")
		out = append(out, sb.String())
	}
	return strings.Join(out, "\n\n") + "\n", nil
}

func splitBlocks(text string) ([]normalizedBlock, error) {
	var (
		blocks  []normalizedBlock
		leading []string
		current *normalizedBlock
	)
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if current == nil {
			switch {
			case line == "":
				continue
			case strings.HasPrefix(line, "//"):
				leading = append(leading, line)
			default:
				m := blockHeader.FindStringSubmatch(line)
				if m == nil {
					return nil, fmt.Errorf("line %d: unexpected %q outside of a block", i+1, line)
				}
				current = &normalizedBlock{leading: leading, keyword: m[1], name: m[2]}
				leading = nil
			}
			continue
		}
		if line == "}" {
			current.body = trimBlank(current.body)
			blocks = append(blocks, *current)
			current = nil
			continue
		}
		if blockHeader.MatchString(line) {
			return nil, fmt.Errorf("line %d: block %s is not closed", i+1, current.name)
		}
		if line == "" && (len(current.body) == 0 || current.body[len(current.body)-1] == "") {
			continue
		}
		current.body = append(current.body, line)
	}
	if current != nil {
		return nil, fmt.Errorf("block %s is not closed", current.name)
	}
	if len(leading) > 0 {
		return nil, fmt.Errorf("trailing comment %q is not attached to a block", leading[0])
	}
	return blocks, nil
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// alignBody aligns consecutive lines. Blank lines end a run; comments and
// block attributes are passed through without breaking it.
func alignBody(keyword string, body []string) []string {
	out := make([]string, len(body))
	copy(out, body)

	var align func([]int)
	switch keyword {
	case "datasource", "generator":
		align = func(run []int) { alignAssignments(out, run) }
	case "model", "view", "type":
		align = func(run []int) { alignFields(out, run) }
	default:
		return out
	}

	var run []int
	for i, l := range body {
		switch {
		case l == "":
			align(run)
			run = nil
		case strings.HasPrefix(l, "//"), strings.HasPrefix(l, "@@"):
		default:
			run = append(run, i)
		}
	}
	align(run)
	return out
}

func alignAssignments(lines []string, run []int) {
	width := 0
	keys := make(map[int][2]string, len(run))
	for _, i := range run {
		key, value, ok := strings.Cut(lines[i], "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		keys[i] = [2]string{key, value}
		width = max(width, len(key))
	}
	for i, kv := range keys {
		lines[i] = pad(kv[0], width) + " = " + kv[1]
	}
}

func alignFields(lines []string, run []int) {
	type columns struct{ name, typ, rest string }
	cols := make(map[int]columns, len(run))
	nameWidth, typeWidth := 0, 0
	for _, i := range run {
		name, rest := cutField(lines[i])
		typ, rest := cutField(rest)
		cols[i] = columns{name, typ, rest}
		nameWidth = max(nameWidth, len(name))
		typeWidth = max(typeWidth, len(typ))
	}
	for i, c := range cols {
		switch {
		case c.rest != "":
			lines[i] = pad(c.name, nameWidth) + " " + pad(c.typ, typeWidth) + " " + c.rest
		case c.typ != "":
			lines[i] = pad(c.name, nameWidth) + " " + c.typ
		default:
			lines[i] = c.name
		}
	}
}

// cutField splits off the first whitespace separated token.
func cutField(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

package printer

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/prismaschema/internal/errs"
)

func TestNormalizer_Format(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:  "datasource assignments are aligned",
			input: "datasource db {\nprovider = \"postgresql\"\nurl = env(\"DATABASE_URL\")\n}\n",
			expected: "datasource db {\n" +
				"  provider = \"postgresql\"\n" +
				"  url      = env(\"DATABASE_URL\")\n" +
				"}\n",
		},
		{
			name: "model columns, comments and directives",
			input: "/// Doc\nmodel Customer {\n/// The id\nid String @id @default(uuid())\nfirstname String\n\n\n" +
				"@@unique(fields: [id])\n}\n",
			expected: "/// Doc\n" +
				"model Customer {\n" +
				"  /// The id\n" +
				"  id        String @id @default(uuid())\n" +
				"  firstname String\n" +
				"\n" +
				"  @@unique(fields: [id])\n" +
				"}\n",
		},
		{
			name:  "blocks are separated by one blank line",
			input: "\n\nenum Role {\nUSER\n   ADMIN\n}\n\n\n\nmodel Empty {\n}",
			expected: "enum Role {\n" +
				"  USER\n" +
				"  ADMIN\n" +
				"}\n" +
				"\n" +
				"model Empty {\n" +
				"}\n",
		},
		{
			name:     "already formatted text is stable",
			input:    "model Customer {\n  id  String @id\n  age Float?\n}\n",
			expected: "model Customer {\n  id  String @id\n  age Float?\n}\n",
		},
		{
			name:     "empty input",
			input:    "\n\n",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalizer{}.Format(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestNormalizer_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed block", input: "model Customer {\nid String\n"},
		{name: "nested block", input: "model Customer {\nmodel Token {\n}\n}\n"},
		{name: "stray content", input: "id String\n"},
		{name: "dangling comment", input: "model Customer {\n}\n/// orphan\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalizer{}.Format(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errs.IsFormat(err))

			var e *errs.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.input, e.Text)
		})
	}
}

func TestNoop(t *testing.T) {
	out, err := Noop.Format(context.Background(), "model X {\n}")
	require.NoError(t, err)
	assert.Equal(t, "model X {\n}", out)
}

func TestCommandFormatter(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("reads the file back", func(t *testing.T) {
		// $0 is --schema and $1 is the temporary file path.
		f := CommandFormatter{Command: []string{"sh", "-c", `printf 'model Formatted {\n}\n' > "$1"`}}
		out, err := f.Format(context.Background(), "model Raw {}")
		require.NoError(t, err)
		assert.Equal(t, "model Formatted {\n}\n", out)
	})

	t.Run("failure carries stderr and text", func(t *testing.T) {
		f := CommandFormatter{Command: []string{"sh", "-c", "echo 'Error parsing attribute' >&2; exit 1"}}
		_, err := f.Format(context.Background(), "model Raw {")
		require.Error(t, err)
		assert.True(t, errs.IsFormat(err))
		assert.Contains(t, err.Error(), "Error parsing attribute")

		var e *errs.Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, "model Raw {", e.Text)
	})
}

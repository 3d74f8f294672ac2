package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Var
	}{
		{"simple", "A=1\nB=2", []Var{{"A", "1"}, {"B", "2"}}},
		{"comments and blanks", "# note\n\nA=1\n  # indented note\n", []Var{{"A", "1"}}},
		{"export prefix", "export TOKEN=abc", []Var{{"TOKEN", "abc"}}},
		{"double quotes", `MSG="hello world"`, []Var{{"MSG", "hello world"}}},
		{"single quotes", "MSG='hello world'", []Var{{"MSG", "hello world"}}},
		{"whitespace around equals", "  KEY =  value  ", []Var{{"KEY", "value"}}},
		{"value containing equals", "URL=https://u:p@host/?a=1", []Var{{"URL", "https://u:p@host/?a=1"}}},
		{"empty value", "EMPTY=", []Var{{"EMPTY", ""}}},
		{"line without equals skipped", "JUSTAWORD\nA=1", []Var{{"A", "1"}}},
		{"empty key skipped", "=nope\nA=1", []Var{{"A", "1"}}},
		{"repeated key keeps file order", "A=1\nA=2", []Var{{"A", "1"}, {"A", "2"}}},
		{"lone quote stays literal", `A="half`, []Var{{"A", `"half`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open env file")
}

func TestExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path,
		[]byte("GOCURL_TEST_A=from-file\nGOCURL_TEST_B=first\nGOCURL_TEST_B=last\n"), 0o600))

	for _, key := range []string{"GOCURL_TEST_A", "GOCURL_TEST_B"} {
		// Setenv registers the restore; Unsetenv makes the variable
		// truly absent rather than present-but-empty.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	vars, err := ExportFile(path)
	require.NoError(t, err)
	assert.Len(t, vars, 3)
	assert.Equal(t, "from-file", os.Getenv("GOCURL_TEST_A"))
	assert.Equal(t, "last", os.Getenv("GOCURL_TEST_B"))
}

func TestExportFileKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOCURL_TEST_KEEP=file\n"), 0o600))

	t.Setenv("GOCURL_TEST_KEEP", "process")

	_, err := ExportFile(path)
	require.NoError(t, err)
	assert.Equal(t, "process", os.Getenv("GOCURL_TEST_KEEP"))
}

func TestExportFileFillsEmptyValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOCURL_TEST_EMPTY=filled\n"), 0o600))

	t.Setenv("GOCURL_TEST_EMPTY", "")

	_, err := ExportFile(path)
	require.NoError(t, err)
	assert.Equal(t, "filled", os.Getenv("GOCURL_TEST_EMPTY"))
}

package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Var is one assignment read from a dotenv file.
type Var struct {
	Key   string
	Value string
}

// Parse reads dotenv assignments from r in file order. Lines look like
// KEY=value with optional surrounding quotes, an optional shell-style
// "export " prefix, and # starting a comment line. Lines without an =
// are skipped, the way most dotenv readers skip them.
func Parse(r io.Reader) ([]Var, error) {
	var vars []Var
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if v, ok := parseLine(sc.Text()); ok {
			vars = append(vars, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	return vars, nil
}

func parseLine(line string) (Var, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Var{}, false
	}

	key, value, found := strings.Cut(line, "=")
	if !found {
		return Var{}, false
	}

	key = strings.TrimSpace(key)
	if rest, ok := strings.CutPrefix(key, "export "); ok {
		key = strings.TrimSpace(rest)
	}
	if key == "" {
		return Var{}, false
	}

	return Var{Key: key, Value: unquote(strings.TrimSpace(value))}, true
}

// unquote strips one matching pair of single or double quotes.
func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// LoadFile parses the dotenv file at path.
func LoadFile(path string) ([]Var, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// ExportFile loads path and exports its variables so credential, proxy
// and NO_PROXY resolution can see them. A variable the process already
// carries a non-empty value for is left alone; within the file the last
// assignment to a key wins.
func ExportFile(path string) ([]Var, error) {
	vars, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	last := make(map[string]string, len(vars))
	for _, v := range vars {
		last[v.Key] = v.Value
	}
	for _, v := range vars {
		if os.Getenv(v.Key) == "" {
			os.Setenv(v.Key, last[v.Key])
		}
	}
	return vars, nil
}

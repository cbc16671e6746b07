package feature

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidColumns = errors.New("invalid expected columns")

// Columns is the ordered list of feature names the model was trained on.
type Columns []string

// NewColumns validates names and returns them as Columns.
func NewColumns(names []string) (Columns, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrInvalidColumns)
	}

	seen := make(map[string]struct{}, len(names))
	cols := make(Columns, 0, len(names))
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("%w: empty name at position %d", ErrInvalidColumns, i)
		}
		n = NormalizeLabel(n)
		if _, ok := seen[n]; ok {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidColumns, n)
		}
		seen[n] = struct{}{}
		cols = append(cols, n)
	}
	return cols, nil
}

// LoadColumns reads the column list from a YAML or JSON file.
func LoadColumns(path string) (Columns, error) {
	if path == "" {
		return nil, errors.New("columns file path required")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading columns file %s: %w", path, err)
	}

	var names []string
	if err := yaml.Unmarshal(b, &names); err != nil {
		return nil, fmt.Errorf("error parsing columns file %s: %w", path, err)
	}

	return NewColumns(names)
}

// Index returns a lookup from column name to position.
func (c Columns) Index() map[string]int {
	m := make(map[string]int, len(c))
	for i, n := range c {
		m[n] = i
	}
	return m
}

// WithPrefix returns the columns that are one-hot indicators of field.
func (c Columns) WithPrefix(field string) []string {
	list := make([]string, 0)
	p := field + oneHotSeparator
	for _, n := range c {
		if strings.HasPrefix(n, p) {
			list = append(list, n)
		}
	}
	return list
}

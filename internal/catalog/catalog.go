// Package catalog loads the ordered list of patient attributes the intake form
// collects and classifies each attribute into an input kind.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnavailable is wrapped by every load failure. Callers must stop.
	ErrUnavailable = errors.New("catalog unavailable")

	ErrNotFound        = fmt.Errorf("%w: source not found", ErrUnavailable)
	ErrMalformedSource = fmt.Errorf("%w: malformed source", ErrUnavailable)
	ErrUnknown         = fmt.Errorf("%w: unreadable source", ErrUnavailable)
)

// Catalog is the ordered, read-only list of attribute names.
type Catalog []string

type source struct {
	DataColumns []string `json:"data_columns" yaml:"data_columns"`
}

// Load reads the catalog from path. JSON is expected; .yaml and .yml files are
// decoded as YAML with the same key.
func Load(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknown, path, err)
	}

	var src source
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &src)
	default:
		err = json.Unmarshal(raw, &src)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSource, path, err)
	}
	if len(src.DataColumns) == 0 {
		return nil, fmt.Errorf("%w: %s has no data_columns", ErrMalformedSource, path)
	}

	cols := make(Catalog, 0, len(src.DataColumns))
	for _, c := range src.DataColumns {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("%w: %s contains an empty column name", ErrMalformedSource, path)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// Contains reports whether name is tracked by the catalog.
func (c Catalog) Contains(name string) bool {
	for _, col := range c {
		if col == name {
			return true
		}
	}
	return false
}

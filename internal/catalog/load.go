package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/sosagent/nova/pkg/models"
)

// Load reads a catalog file from path. Files ending in .yaml or .yml are
// decoded as YAML; everything else is decoded as JSON. Entries that fail
// schema validation are skipped and reported, not fatal; a file that
// cannot be read or parsed at all is an error.
func Load(path string) (*Catalog, []ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON array of catalog entries.
func ParseJSON(data []byte) (*Catalog, []ValidationError, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}

	entries := make([][]byte, len(raws))
	for i, raw := range raws {
		entries[i] = []byte(raw)
	}
	return build(entries)
}

// ParseYAML decodes a YAML sequence of catalog entries. Each entry is
// normalized to JSON before validation so both formats share one schema.
func ParseYAML(data []byte) (*Catalog, []ValidationError, error) {
	var docs []any
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}

	entries := make([][]byte, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, nil, fmt.Errorf("convert catalog entry: %w", err)
		}
		entries = append(entries, raw)
	}
	return build(entries)
}

// build validates and decodes raw entries, skipping the invalid ones.
func build(raws [][]byte) (*Catalog, []ValidationError, error) {
	var (
		entries []models.CatalogEntry
		skipped []ValidationError
	)
	for i, raw := range raws {
		verr, ok := validateEntry(raw)
		if !ok {
			verr.Index = i
			skipped = append(skipped, verr)
			continue
		}

		var e models.CatalogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			skipped = append(skipped, ValidationError{Index: i, Message: err.Error()})
			continue
		}
		entries = append(entries, e)
	}
	return New(entries), skipped, nil
}

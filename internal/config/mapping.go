package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mapping is the translation table from vendor field identifiers to output
// column names. Declaration order is preserved and defines the column order
// of the export, so the table cannot be a plain Go map.
type Mapping struct {
	keys    []string          // vendor keys in declaration order
	columns map[string]string // vendor key -> column name
}

// Entry is one vendor-key-to-column pair of a mapping table.
type Entry struct {
	VendorKey string
	Column    string
}

// NewMapping builds a mapping from ordered entries. Duplicate vendor keys
// and duplicate column names are rejected.
func NewMapping(entries []Entry) (*Mapping, error) {
	m := &Mapping{columns: make(map[string]string, len(entries))}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.VendorKey == "" || e.Column == "" {
			return nil, fmt.Errorf("%w: mapping entries need both a vendor key and a column name", ErrConfig)
		}
		if _, dup := m.columns[e.VendorKey]; dup {
			return nil, fmt.Errorf("%w: duplicate vendor key %q in mapping", ErrConfig, e.VendorKey)
		}
		if seen[e.Column] {
			return nil, fmt.Errorf("%w: duplicate column name %q in mapping", ErrConfig, e.Column)
		}
		m.keys = append(m.keys, e.VendorKey)
		m.columns[e.VendorKey] = e.Column
		seen[e.Column] = true
	}
	return m, nil
}

// Len returns the number of entries in the table.
func (m *Mapping) Len() int { return len(m.keys) }

// VendorKeys returns the vendor field identifiers in declaration order.
func (m *Mapping) VendorKeys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Column returns the output column name for a vendor key.
func (m *Mapping) Column(vendorKey string) (string, bool) {
	col, ok := m.columns[vendorKey]
	return col, ok
}

// Columns returns the output column names in declaration order.
func (m *Mapping) Columns() []string {
	cols := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		cols = append(cols, m.columns[k])
	}
	return cols
}

// UnmarshalYAML decodes a flat YAML mapping node, keeping the document's
// key order (a plain map target would lose it).
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: mapping must be a flat key/value table", ErrConfig)
	}
	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		entries = append(entries, Entry{
			VendorKey: node.Content[i].Value,
			Column:    node.Content[i+1].Value,
		})
	}
	parsed, err := NewMapping(entries)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// UnmarshalJSON decodes a flat JSON object through the token stream, which
// preserves the declaration order that json.Unmarshal into a map would
// discard.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: parsing mapping: %v", ErrConfig, err)
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("%w: mapping must be a flat JSON object", ErrConfig)
	}

	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: parsing mapping: %v", ErrConfig, err)
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: mapping value for %q must be a string: %v", ErrConfig, key, err)
		}
		entries = append(entries, Entry{VendorKey: key, Column: value})
	}
	parsed, err := NewMapping(entries)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// LoadMapping reads a mapping file (YAML or JSON by extension).
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	m := new(Mapping)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s: unknown file type %q, expected YAML or JSON",
			ErrConfig, path, ext)
	}
	if m.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: mapping table is empty", ErrConfig, path)
	}
	return m, nil
}

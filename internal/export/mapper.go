// Package export turns raw ALM test records into spreadsheet rows: the
// mapper renames vendor fields to user-facing columns and strips HTML from
// rich-text values, the writer serializes the rows into an xlsx workbook.
package export

import "github.com/nocturnalbeast/cutie/internal/config"

// Record is one exported row: output column name to cleaned value.
type Record map[string]string

// Mapper translates raw vendor records according to a mapping table. The
// table acts as an allow-list: vendor fields absent from it are dropped.
type Mapper struct {
	mapping *config.Mapping
}

// NewMapper creates a mapper over an immutable mapping table.
func NewMapper(mapping *config.Mapping) *Mapper {
	return &Mapper{mapping: mapping}
}

// Columns returns the output column names in mapping declaration order.
func (m *Mapper) Columns() []string {
	return m.mapping.Columns()
}

// Map produces the output record for a raw vendor record. Exactly the
// vendor keys present in both the record and the table survive, renamed to
// their column names; every value is stripped of markup.
func (m *Mapper) Map(raw map[string]string) Record {
	out := make(Record, len(raw))
	for _, key := range m.mapping.VendorKeys() {
		value, ok := raw[key]
		if !ok {
			continue
		}
		column, _ := m.mapping.Column(key)
		out[column] = StripHTML(value)
	}
	return out
}

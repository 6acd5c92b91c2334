// Package sheets talks to the remote spreadsheet script endpoints and models
// the loosely typed rows they return.
package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is one spreadsheet row: a mapping from column name to raw scalar that
// preserves the source column order. Order matters — the hourly login sheets
// are decoded positionally (serial number at column 0, name at column 1, and
// so on), and a map alone would scramble that.
type Row struct {
	cols []string
	vals map[string]any
}

// NewRow returns an empty row.
func NewRow() Row {
	return Row{vals: make(map[string]any)}
}

// Get returns the raw value for a column, or nil when absent.
func (r Row) Get(key string) any {
	if r.vals == nil {
		return nil
	}
	return r.vals[key]
}

// Has reports whether the row carries the column at all.
func (r Row) Has(key string) bool {
	if r.vals == nil {
		return false
	}
	_, ok := r.vals[key]
	return ok
}

// Set stores a value, appending the column to the order when new.
func (r *Row) Set(key string, v any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[key]; !ok {
		r.cols = append(r.cols, key)
	}
	r.vals[key] = v
}

// Columns returns the column names in source order. Synthetic columns added
// after ingestion (DATE, provenance tags) appear after the originals.
func (r Row) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.cols) }

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	c := Row{
		cols: make([]string, len(r.cols)),
		vals: make(map[string]any, len(r.vals)),
	}
	copy(c.cols, r.cols)
	for k, v := range r.vals {
		c.vals[k] = v
	}
	return c
}

// UnmarshalJSON decodes a JSON object preserving key order. Numbers decode as
// json.Number so large frame IDs survive the round trip intact.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sheets: row must be a JSON object, got %v", tok)
	}

	r.cols = nil
	r.vals = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sheets: unexpected key token %v", keyTok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		r.Set(key, val)
	}

	// Consume the closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.vals[col])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

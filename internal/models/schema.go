package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Column is one attribute of an output table. References maps the referenced
// table name to the referenced column and is set on foreign-key columns only.
type Column struct {
	Name       string            `json:"-"`
	Type       string            `json:"type"`
	References map[string]string `json:"references,omitempty"`
}

// Table is a relational table derived from an entity or relationship.
// Name is bookkeeping only and is not serialized; the schema keys tables by name.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Unique     [][]string
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return t.Columns[i], true
		}
	}
	return Column{}, false
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// AddColumn appends c unless a column with the same name already exists.
// It reports whether the column was added.
func (t *Table) AddColumn(c Column) bool {
	if t.HasColumn(c.Name) {
		return false
	}
	t.Columns = append(t.Columns, c)
	return true
}

// MarshalJSON writes the table as a JSON-Schema-like object. Attributes keep
// column order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","attributes":`)

	keys := make([]string, len(t.Columns))
	values := make([]any, len(t.Columns))
	for i := range t.Columns {
		keys[i] = t.Columns[i].Name
		values[i] = t.Columns[i]
	}
	if err := writeObject(&buf, keys, values); err != nil {
		return nil, fmt.Errorf("table %s: %w", t.Name, err)
	}

	pk := t.PrimaryKey
	if pk == nil {
		pk = []string{}
	}
	unique := t.Unique
	if unique == nil {
		unique = [][]string{}
	}
	if err := writeField(&buf, "primary_key", pk); err != nil {
		return nil, fmt.Errorf("table %s: %w", t.Name, err)
	}
	if err := writeField(&buf, "unique", unique); err != nil {
		return nil, fmt.Errorf("table %s: %w", t.Name, err)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Schema is the terminal output of a resolution pass. Tables are kept in the
// order they were resolved.
type Schema struct {
	Tables []*Table
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Names returns the table names in resolution order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// MarshalJSON writes the schema as an object keyed by table name.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	keys := make([]string, len(s.Tables))
	values := make([]any, len(s.Tables))
	for i, t := range s.Tables {
		keys[i] = t.Name
		values[i] = t
	}
	if err := writeObject(&buf, keys, values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeObject writes an ordered JSON object.
func writeObject(buf *bytes.Buffer, keys []string, values []any) error {
	buf.WriteByte('{')
	for i := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(keys[i])
		if err != nil {
			return fmt.Errorf("encoding key %q: %w", keys[i], err)
		}
		v, err := json.Marshal(values[i])
		if err != nil {
			return fmt.Errorf("encoding %q: %w", keys[i], err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

func writeField(buf *bytes.Buffer, key string, value any) error {
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	fmt.Fprintf(buf, `,%q:`, key)
	buf.Write(v)
	return nil
}

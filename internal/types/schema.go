package types

import (
	"encoding/json"
	"fmt"
)

// Column describes one field of a Schema. VarcharLen bounds the on-disk
// width for Varchar columns (storage of true variable-length values is out
// of scope; a Varchar column reserves a fixed maximum width instead).
type Column struct {
	Name       string
	DataType   Kind
	Nullable   bool
	Relation   string
	VarcharLen int

	// offset is the column's byte offset within an encoded tuple's payload
	// area (after the null bitmap); computed by NewSchema.
	offset int
}

func (c Column) Offset() int { return c.offset }

// Width is the fixed on-disk payload width of the column, including the
// 2-byte length prefix reserved for Varchar columns.
func (c Column) Width() int {
	if c.DataType == Varchar {
		return 2 + c.VarcharLen
	}
	return c.DataType.FixedWidth()
}

// Schema is an ordered sequence of columns. It is immutable once built:
// NewSchema precomputes each column's tuple offset.
type Schema struct {
	Columns []Column
}

// NewSchema builds a Schema and assigns byte offsets in column order.
func NewSchema(cols []Column) *Schema {
	off := 0
	out := make([]Column, len(cols))
	for i, c := range cols {
		c.offset = off
		out[i] = c
		off += c.Width()
	}
	return &Schema{Columns: out}
}

func (s *Schema) NumColumns() int { return len(s.Columns) }

// BitmapBytes is the size of the leading null bitmap, MSB-first within
// each byte.
func (s *Schema) BitmapBytes() int {
	return (len(s.Columns) + 7) / 8
}

// PayloadBytes is the total width of all non-bitmap fixed fields.
func (s *Schema) PayloadBytes() int {
	total := 0
	for _, c := range s.Columns {
		total += c.Width()
	}
	return total
}

// IndexOf returns the position of a named column, optionally qualified by
// relation. Returns -1 if not found.
func (s *Schema) IndexOf(relation, name string) int {
	for i, c := range s.Columns {
		if c.Name == name && (relation == "" || c.Relation == "" || c.Relation == relation) {
			return i
		}
	}
	return -1
}

// UnmarshalJSON recomputes each column's offset after decoding, since
// offset is unexported and so never round-trips through JSON on its own.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw struct {
		Columns []Column
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = *NewSchema(raw.Columns)
	return nil
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(%d cols)", len(s.Columns))
}

// Project returns a new schema containing only the columns at indexes, in
// the given order; used by the catalog to build an index's key schema.
func (s *Schema) Project(indexes []int) *Schema {
	cols := make([]Column, len(indexes))
	for i, idx := range indexes {
		cols[i] = s.Columns[idx]
	}
	return NewSchema(cols)
}

// Concat builds the schema produced by joining left and right tuples,
// optionally marking one side's columns nullable (outer joins).
func Concat(left, right *Schema, nullableLeft, nullableRight bool) *Schema {
	cols := make([]Column, 0, len(left.Columns)+len(right.Columns))
	for _, c := range left.Columns {
		if nullableLeft {
			c.Nullable = true
		}
		cols = append(cols, c)
	}
	for _, c := range right.Columns {
		if nullableRight {
			c.Nullable = true
		}
		cols = append(cols, c)
	}
	return NewSchema(cols)
}

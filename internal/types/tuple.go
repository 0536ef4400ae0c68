package types

import (
	"fmt"

	"github.com/tuannm99/novadb/internal/bx"
)

// RecordId uniquely names a tuple inside a table heap.
type RecordId struct {
	PageID uint32
	Slot   uint32
}

var InvalidRecordId = RecordId{PageID: 0, Slot: 0}

func (r RecordId) IsValid() bool { return r.PageID != 0 }

func (r RecordId) String() string { return fmt.Sprintf("(%d,%d)", r.PageID, r.Slot) }

// TupleMeta is stored alongside each tuple in the table page's slot
// directory. The transaction id fields are reserved for a WAL/transaction
// subsystem that this engine does not implement; they are carried through
// encode/decode so the on-disk layout has a stable home for them.
type TupleMeta struct {
	InsertTxnID uint64
	DeleteTxnID uint64
	IsDeleted   bool
}

// Tuple is a fixed-arity, schema-typed row.
type Tuple struct {
	Schema *Schema
	Values []Value
}

func NewTuple(schema *Schema, values []Value) Tuple {
	return Tuple{Schema: schema, Values: values}
}

// Encode serializes the tuple as:
//
//	[null_bitmap : ceil(ncols/8) bytes, MSB-first within each byte]
//	[non-null values, big-endian, in column order]
//
// Varchar values are stored length-prefixed (u16 BE) within their column's
// reserved fixed width; the remainder of the reserved width is zero-padded.
func (t Tuple) Encode() ([]byte, error) {
	s := t.Schema
	if len(t.Values) != len(s.Columns) {
		return nil, fmt.Errorf("types: tuple has %d values, schema has %d columns", len(t.Values), len(s.Columns))
	}
	buf := make([]byte, s.BitmapBytes()+s.PayloadBytes())
	bitmap := buf[:s.BitmapBytes()]
	payload := buf[s.BitmapBytes():]

	for i, col := range s.Columns {
		v := t.Values[i]
		if v.IsNull() {
			if !col.Nullable {
				return nil, fmt.Errorf("types: column %q is not nullable", col.Name)
			}
			bitmap[i/8] |= 1 << (7 - uint(i%8))
			continue
		}
		dst := payload[col.offset : col.offset+col.Width()]
		if col.DataType == Varchar {
			if err := encodeVarchar(dst, v, col.VarcharLen); err != nil {
				return nil, err
			}
			continue
		}
		if err := v.EncodeFixed(dst); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeVarchar(dst []byte, v Value, maxLen int) error {
	s := v.s
	if len(s) > maxLen {
		return fmt.Errorf("types: varchar value exceeds declared length %d", maxLen)
	}
	bx.PutU16BE(dst[0:2], uint16(len(s)))
	copy(dst[2:], s)
	for i := 2 + len(s); i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// Decode parses a tuple payload produced by Encode, against the given
// schema. decode(encode(t)) == t for any tuple compatible with schema.
func Decode(schema *Schema, buf []byte) (Tuple, error) {
	need := schema.BitmapBytes() + schema.PayloadBytes()
	if len(buf) < need {
		return Tuple{}, fmt.Errorf("types: tuple buffer too short: have %d want %d", len(buf), need)
	}
	bitmap := buf[:schema.BitmapBytes()]
	payload := buf[schema.BitmapBytes():]

	values := make([]Value, len(schema.Columns))
	for i, col := range schema.Columns {
		if bitmap[i/8]&(1<<(7-uint(i%8))) != 0 {
			values[i] = Null(col.DataType)
			continue
		}
		src := payload[col.offset : col.offset+col.Width()]
		if col.DataType == Varchar {
			n := int(bx.U16BE(src[0:2]))
			if 2+n > len(src) {
				return Tuple{}, fmt.Errorf("types: varchar length %d exceeds reserved width", n)
			}
			values[i] = NewVarchar(string(src[2 : 2+n]))
			continue
		}
		v, err := DecodeFixed(col.DataType, src)
		if err != nil {
			return Tuple{}, err
		}
		values[i] = v
	}
	return Tuple{Schema: schema, Values: values}, nil
}

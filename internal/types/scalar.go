// Package types implements the scalar value, schema, and tuple model shared
// by storage, indexing, and execution.
package types

import (
	"fmt"
	"math"

	"github.com/tuannm99/novadb/internal/bx"
)

// Kind tags the concrete SQL type carried by a Value.
type Kind uint8

const (
	Boolean Kind = iota + 1
	Int8
	Int16
	Int32
	Int64
	Uint64
	Float32
	Float64
	Varchar
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "BOOLEAN"
	case Int8:
		return "INT8"
	case Int16:
		return "INT16"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Uint64:
		return "UINT64"
	case Float32:
		return "FLOAT32"
	case Float64:
		return "FLOAT64"
	case Varchar:
		return "VARCHAR"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// FixedWidth returns the on-disk payload width for fixed-size kinds.
// Varchar is not fixed-size at this layer; callers must use
// Column.Width() which accounts for the declared max length.
func (k Kind) FixedWidth() int {
	switch k {
	case Boolean:
		return 1
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32:
		return 4
	case Int64:
		return 8
	case Uint64:
		return 8
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Value is a tagged-variant scalar, the SQL-level equivalent of Rust's
// Option<T> per-type enum. Null is tracked explicitly rather than via a
// pointer so that Value remains comparable and copyable.
type Value struct {
	kind Kind
	null bool

	b   bool
	i8  int8
	i16 int16
	i32 int32
	i64 int64
	u64 uint64
	f32 float32
	f64 float64
	s   string
}

func NewBoolean(v bool) Value  { return Value{kind: Boolean, b: v} }
func NewInt8(v int8) Value     { return Value{kind: Int8, i8: v} }
func NewInt16(v int16) Value   { return Value{kind: Int16, i16: v} }
func NewInt32(v int32) Value   { return Value{kind: Int32, i32: v} }
func NewInt64(v int64) Value   { return Value{kind: Int64, i64: v} }
func NewUint64(v uint64) Value { return Value{kind: Uint64, u64: v} }
func NewFloat32(v float32) Value { return Value{kind: Float32, f32: v} }
func NewFloat64(v float64) Value { return Value{kind: Float64, f64: v} }
func NewVarchar(v string) Value  { return Value{kind: Varchar, s: v} }

// Null constructs a typed SQL NULL of the given kind.
func Null(k Kind) Value { return Value{kind: k, null: true} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.null }

func (v Value) Bool() (bool, bool)       { return v.b, !v.null }
func (v Value) Int8() (int8, bool)       { return v.i8, !v.null }
func (v Value) Int16() (int16, bool)     { return v.i16, !v.null }
func (v Value) Int32() (int32, bool)     { return v.i32, !v.null }
func (v Value) Int64() (int64, bool)     { return v.i64, !v.null }
func (v Value) Uint64() (uint64, bool)   { return v.u64, !v.null }
func (v Value) Float32() (float32, bool) { return v.f32, !v.null }
func (v Value) Float64() (float64, bool) { return v.f64, !v.null }
func (v Value) String() string {
	if v.null {
		return "NULL"
	}
	switch v.kind {
	case Boolean:
		return fmt.Sprintf("%v", v.b)
	case Int8:
		return fmt.Sprintf("%d", v.i8)
	case Int16:
		return fmt.Sprintf("%d", v.i16)
	case Int32:
		return fmt.Sprintf("%d", v.i32)
	case Int64:
		return fmt.Sprintf("%d", v.i64)
	case Uint64:
		return fmt.Sprintf("%d", v.u64)
	case Float32:
		return fmt.Sprintf("%v", v.f32)
	case Float64:
		return fmt.Sprintf("%v", v.f64)
	case Varchar:
		return v.s
	default:
		return "?"
	}
}

// AsInt64 widens any integer kind to int64; used by arithmetic/comparisons
// that want a common numeric representation.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case Int8:
		return int64(v.i8), !v.null
	case Int16:
		return int64(v.i16), !v.null
	case Int32:
		return int64(v.i32), !v.null
	case Int64:
		return v.i64, !v.null
	case Uint64:
		return int64(v.u64), !v.null
	default:
		return 0, false
	}
}

// AsFloat64 widens any numeric kind to float64.
func (v Value) AsFloat64() (float64, bool) {
	if f, ok := v.AsInt64(); ok {
		return float64(f), true
	}
	switch v.kind {
	case Float32:
		return float64(v.f32), !v.null
	case Float64:
		return v.f64, !v.null
	default:
		return 0, false
	}
}

// Compare orders two non-null values of the same kind. Comparisons between
// distinct kinds, or involving a NULL operand, return an error.
func (v Value) Compare(other Value) (int, error) {
	if v.kind != other.kind {
		return 0, fmt.Errorf("types: cannot compare %s with %s", v.kind, other.kind)
	}
	if v.null || other.null {
		return 0, fmt.Errorf("types: cannot compare NULL values")
	}
	switch v.kind {
	case Boolean:
		return cmpBool(v.b, other.b), nil
	case Int8:
		return cmpInt(int64(v.i8), int64(other.i8)), nil
	case Int16:
		return cmpInt(int64(v.i16), int64(other.i16)), nil
	case Int32:
		return cmpInt(int64(v.i32), int64(other.i32)), nil
	case Int64:
		return cmpInt(v.i64, other.i64), nil
	case Uint64:
		return cmpUint(v.u64, other.u64), nil
	case Float32:
		return cmpFloat(float64(v.f32), float64(other.f32)), nil
	case Float64:
		return cmpFloat(v.f64, other.f64), nil
	case Varchar:
		switch {
		case v.s < other.s:
			return -1, nil
		case v.s > other.s:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("types: unsupported kind for comparison %s", v.kind)
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// EncodeFixed writes the non-null payload for fixed-width kinds into dst,
// which must be exactly Kind.FixedWidth() bytes. Big-endian, per the
// on-disk format.
func (v Value) EncodeFixed(dst []byte) error {
	switch v.kind {
	case Boolean:
		if v.b {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case Int8:
		dst[0] = byte(v.i8)
	case Int16:
		bx.PutU16BE(dst, uint16(v.i16))
	case Int32:
		bx.PutU32BE(dst, uint32(v.i32))
	case Int64:
		bx.PutU64BE(dst, uint64(v.i64))
	case Uint64:
		bx.PutU64BE(dst, v.u64)
	case Float32:
		bx.PutU32BE(dst, math.Float32bits(v.f32))
	case Float64:
		bx.PutU64BE(dst, math.Float64bits(v.f64))
	default:
		return fmt.Errorf("types: %s is not a fixed-width kind", v.kind)
	}
	return nil
}

// DecodeFixed parses the non-null payload for a fixed-width kind.
func DecodeFixed(k Kind, src []byte) (Value, error) {
	switch k {
	case Boolean:
		return NewBoolean(src[0] != 0), nil
	case Int8:
		return NewInt8(int8(src[0])), nil
	case Int16:
		return NewInt16(int16(bx.U16BE(src))), nil
	case Int32:
		return NewInt32(int32(bx.U32BE(src))), nil
	case Int64:
		return NewInt64(int64(bx.U64BE(src))), nil
	case Uint64:
		return NewUint64(bx.U64BE(src)), nil
	case Float32:
		return NewFloat32(math.Float32frombits(bx.U32BE(src))), nil
	case Float64:
		return NewFloat64(math.Float64frombits(bx.U64BE(src))), nil
	default:
		return Value{}, fmt.Errorf("types: %s is not a fixed-width kind", k)
	}
}

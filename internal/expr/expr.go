// Package expr implements the scalar expression trees evaluated by the
// physical executors: column references, literals, aliases, casts, and
// binary operators (arithmetic, comparison, logical).
package expr

import (
	"fmt"

	"github.com/tuannm99/novadb/internal/types"
)

// Expr is evaluated against one tuple at a time. ResolveType answers what
// kind (and nullability) the expression produces against a given input
// schema, without evaluating anything; it is used while building a
// logical plan's output schema.
type Expr interface {
	Evaluate(tuple types.Tuple) (types.Value, error)
	ResolveType(schema *types.Schema) (types.Kind, bool, error)
	String() string
}

// Column references a (possibly relation-qualified) input column by name.
type Column struct {
	Relation string
	Name     string
}

func (c *Column) String() string {
	if c.Relation == "" {
		return c.Name
	}
	return c.Relation + "." + c.Name
}

func (c *Column) resolve(schema *types.Schema) (int, error) {
	idx := schema.IndexOf(c.Relation, c.Name)
	if idx < 0 {
		return -1, fmt.Errorf("expr: unknown column %q", c.String())
	}
	return idx, nil
}

func (c *Column) Evaluate(tuple types.Tuple) (types.Value, error) {
	idx, err := c.resolve(tuple.Schema)
	if err != nil {
		return types.Value{}, err
	}
	return tuple.Values[idx], nil
}

func (c *Column) ResolveType(schema *types.Schema) (types.Kind, bool, error) {
	idx, err := c.resolve(schema)
	if err != nil {
		return 0, false, err
	}
	col := schema.Columns[idx]
	return col.DataType, col.Nullable, nil
}

// Literal is a constant value, independent of the input tuple.
type Literal struct {
	Value types.Value
}

func (l *Literal) String() string { return l.Value.String() }

func (l *Literal) Evaluate(types.Tuple) (types.Value, error) { return l.Value, nil }

func (l *Literal) ResolveType(*types.Schema) (types.Kind, bool, error) {
	return l.Value.Kind(), l.Value.IsNull(), nil
}

// Alias renames Child's output without changing its value; used to name
// projected columns (e.g. "SELECT a+b AS total").
type Alias struct {
	Name  string
	Child Expr
}

func (a *Alias) String() string { return a.Child.String() + " AS " + a.Name }

func (a *Alias) Evaluate(tuple types.Tuple) (types.Value, error) { return a.Child.Evaluate(tuple) }

func (a *Alias) ResolveType(schema *types.Schema) (types.Kind, bool, error) {
	return a.Child.ResolveType(schema)
}

// Cast converts Child's evaluated value to DataType.
type Cast struct {
	Child    Expr
	DataType types.Kind
}

func (c *Cast) String() string { return "CAST(" + c.Child.String() + " AS " + c.DataType.String() + ")" }

func (c *Cast) Evaluate(tuple types.Tuple) (types.Value, error) {
	v, err := c.Child.Evaluate(tuple)
	if err != nil {
		return types.Value{}, err
	}
	return CastValue(v, c.DataType)
}

func (c *Cast) ResolveType(schema *types.Schema) (types.Kind, bool, error) {
	_, nullable, err := c.Child.ResolveType(schema)
	if err != nil {
		return 0, false, err
	}
	return c.DataType, nullable, nil
}

// CastValue converts v to the target kind, widening/narrowing numerics and
// parsing/formatting Varchar as needed. NULL casts to a typed NULL.
func CastValue(v types.Value, to types.Kind) (types.Value, error) {
	if v.IsNull() {
		return types.Null(to), nil
	}
	if v.Kind() == to {
		return v, nil
	}
	switch to {
	case types.Boolean:
		b, ok := v.Bool()
		if v.Kind() != types.Boolean || !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to BOOLEAN", v.Kind())
		}
		return types.NewBoolean(b), nil
	case types.Int8:
		n, ok := v.AsInt64()
		if !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to INT8", v.Kind())
		}
		return types.NewInt8(int8(n)), nil
	case types.Int16:
		n, ok := v.AsInt64()
		if !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to INT16", v.Kind())
		}
		return types.NewInt16(int16(n)), nil
	case types.Int32:
		n, ok := v.AsInt64()
		if !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to INT32", v.Kind())
		}
		return types.NewInt32(int32(n)), nil
	case types.Int64:
		n, ok := v.AsInt64()
		if !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to INT64", v.Kind())
		}
		return types.NewInt64(n), nil
	case types.Uint64:
		n, ok := v.AsInt64()
		if !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to UINT64", v.Kind())
		}
		return types.NewUint64(uint64(n)), nil
	case types.Float32:
		f, ok := v.AsFloat64()
		if !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to FLOAT32", v.Kind())
		}
		return types.NewFloat32(float32(f)), nil
	case types.Float64:
		f, ok := v.AsFloat64()
		if !ok {
			return types.Value{}, fmt.Errorf("expr: cannot cast %s to FLOAT64", v.Kind())
		}
		return types.NewFloat64(f), nil
	case types.Varchar:
		return types.NewVarchar(v.String()), nil
	default:
		return types.Value{}, fmt.Errorf("expr: unsupported cast target %s", to)
	}
}

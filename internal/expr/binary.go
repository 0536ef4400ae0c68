package expr

import (
	"fmt"

	"github.com/tuannm99/novadb/internal/types"
)

// BinOp is a binary operator tag.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Lt
	Le
	Eq
	Ne
	Ge
	Gt
	And
	Or
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Lt:
		return "<"
	case Le:
		return "<="
	case Eq:
		return "="
	case Ne:
		return "!="
	case Ge:
		return ">="
	case Gt:
		return ">"
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return "?"
	}
}

func (op BinOp) isComparison() bool {
	return op == Lt || op == Le || op == Eq || op == Ne || op == Ge || op == Gt
}

func (op BinOp) isLogical() bool { return op == And || op == Or }

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Left  Expr
	Op    BinOp
	Right Expr
}

func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

func (b *BinaryExpr) ResolveType(schema *types.Schema) (types.Kind, bool, error) {
	if b.Op.isComparison() || b.Op.isLogical() {
		return types.Boolean, false, nil
	}
	return b.Left.ResolveType(schema)
}

func (b *BinaryExpr) Evaluate(tuple types.Tuple) (types.Value, error) {
	if b.Op.isLogical() {
		return b.evaluateLogical(tuple)
	}

	left, err := b.Left.Evaluate(tuple)
	if err != nil {
		return types.Value{}, err
	}
	right, err := b.Right.Evaluate(tuple)
	if err != nil {
		return types.Value{}, err
	}

	if b.Op.isComparison() {
		return evaluateComparison(left, b.Op, right)
	}
	return evaluateArithmetic(left, b.Op, right)
}

// evaluateLogical implements the reference simplification: AND with any
// non-true operand (including NULL) is false; OR is true if either operand
// evaluates true, otherwise false.
func (b *BinaryExpr) evaluateLogical(tuple types.Tuple) (types.Value, error) {
	left, err := b.Left.Evaluate(tuple)
	if err != nil {
		return types.Value{}, err
	}
	leftTrue := isTrue(left)

	if b.Op == And && !leftTrue {
		return types.NewBoolean(false), nil
	}
	if b.Op == Or && leftTrue {
		return types.NewBoolean(true), nil
	}

	right, err := b.Right.Evaluate(tuple)
	if err != nil {
		return types.Value{}, err
	}
	rightTrue := isTrue(right)

	if b.Op == And {
		return types.NewBoolean(leftTrue && rightTrue), nil
	}
	return types.NewBoolean(leftTrue || rightTrue), nil
}

func isTrue(v types.Value) bool {
	if v.IsNull() || v.Kind() != types.Boolean {
		return false
	}
	b, _ := v.Bool()
	return b
}

func evaluateComparison(left types.Value, op BinOp, right types.Value) (types.Value, error) {
	if left.IsNull() || right.IsNull() {
		return types.Value{}, fmt.Errorf("expr: comparison with NULL operand is an execution error")
	}
	cmp, err := left.Compare(right)
	if err != nil {
		return types.Value{}, fmt.Errorf("expr: %w", err)
	}
	var result bool
	switch op {
	case Lt:
		result = cmp < 0
	case Le:
		result = cmp <= 0
	case Eq:
		result = cmp == 0
	case Ne:
		result = cmp != 0
	case Ge:
		result = cmp >= 0
	case Gt:
		result = cmp > 0
	default:
		return types.Value{}, fmt.Errorf("expr: not a comparison operator: %s", op)
	}
	return types.NewBoolean(result), nil
}

func evaluateArithmetic(left types.Value, op BinOp, right types.Value) (types.Value, error) {
	if left.IsNull() || right.IsNull() {
		return types.Null(left.Kind()), nil
	}

	// Float path if either side is floating point.
	if left.Kind() == types.Float32 || left.Kind() == types.Float64 ||
		right.Kind() == types.Float32 || right.Kind() == types.Float64 {
		lf, ok1 := left.AsFloat64()
		rf, ok2 := right.AsFloat64()
		if !ok1 || !ok2 {
			return types.Value{}, fmt.Errorf("expr: cannot apply %s to %s and %s", op, left.Kind(), right.Kind())
		}
		res, err := applyFloatOp(lf, rf, op)
		if err != nil {
			return types.Value{}, err
		}
		if left.Kind() == types.Float32 && right.Kind() == types.Float32 {
			return types.NewFloat32(float32(res)), nil
		}
		return types.NewFloat64(res), nil
	}

	li, ok1 := left.AsInt64()
	ri, ok2 := right.AsInt64()
	if !ok1 || !ok2 {
		return types.Value{}, fmt.Errorf("expr: cannot apply %s to %s and %s", op, left.Kind(), right.Kind())
	}
	res, err := applyIntOp(li, ri, op)
	if err != nil {
		return types.Value{}, err
	}
	if left.Kind() == types.Uint64 {
		return types.NewUint64(uint64(res)), nil
	}
	return types.NewInt64(res), nil
}

func applyFloatOp(a, b float64, op BinOp) (float64, error) {
	switch op {
	case Add:
		return a + b, nil
	case Sub:
		return a - b, nil
	case Mul:
		return a * b, nil
	case Div:
		if b == 0 {
			return 0, fmt.Errorf("expr: division by zero")
		}
		return a / b, nil
	default:
		return 0, fmt.Errorf("expr: not an arithmetic operator: %s", op)
	}
}

func applyIntOp(a, b int64, op BinOp) (int64, error) {
	switch op {
	case Add:
		return a + b, nil
	case Sub:
		return a - b, nil
	case Mul:
		return a * b, nil
	case Div:
		if b == 0 {
			return 0, fmt.Errorf("expr: division by zero")
		}
		return a / b, nil
	default:
		return 0, fmt.Errorf("expr: not an arithmetic operator: %s", op)
	}
}

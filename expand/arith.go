package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luckboy/rsush-sub000/syntax"
)

// Arithm evaluates an arithmetic expression over env, following the
// precedence already baked into the AST by the parser; this function
// only needs to implement each node's runtime semantics over
// syntax.ArithExpr and int64 shell arithmetic.
func Arithm(env *Environ, expr syntax.ArithExpr) (int64, error) {
	switch e := expr.(type) {
	case *syntax.ArithNumber:
		return e.Value, nil
	case *syntax.ArithParam:
		return atoi(paramValue(env, e.Name)), nil
	case *syntax.ArithUnary:
		return arithUnary(env, e)
	case *syntax.ArithBinary:
		return arithBinary(env, e)
	case *syntax.ArithConditional:
		cond, err := Arithm(env, e.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return Arithm(env, e.Then)
		}
		return Arithm(env, e.Else)
	default:
		return 0, fmt.Errorf("unsupported arithmetic expression %T", expr)
	}
}

func paramValue(env *Environ, name syntax.ParameterName) string {
	switch n := name.(type) {
	case syntax.VarName:
		return env.Get(string(n)).Value
	case syntax.Positional:
		return env.Positional1(int(n))
	case syntax.Special:
		return env.Special(byte(n))
	}
	return ""
}

func atoi(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 0, 64)
	return n
}

func oneIf(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// lvalueName extracts the assignable variable name out of an arithmetic
// operand; only a bare parameter reference to a named variable can be
// the target of an assignment or increment/decrement operator.
func lvalueName(x syntax.ArithExpr) (string, error) {
	p, ok := x.(*syntax.ArithParam)
	if !ok {
		return "", fmt.Errorf("arithmetic: invalid assignment target")
	}
	name, ok := p.Name.(syntax.VarName)
	if !ok {
		return "", fmt.Errorf("arithmetic: invalid assignment target")
	}
	return string(name), nil
}

func arithUnary(env *Environ, e *syntax.ArithUnary) (int64, error) {
	switch e.Op {
	case syntax.ArithPrefixIncr, syntax.ArithPrefixDecr, syntax.ArithPostfixIncr, syntax.ArithPostfixDecr:
		name, err := lvalueName(e.X)
		if err != nil {
			return 0, err
		}
		old := atoi(env.Get(name).Value)
		val := old
		switch e.Op {
		case syntax.ArithPrefixIncr, syntax.ArithPostfixIncr:
			val++
		default:
			val--
		}
		if err := env.Set(name, strconv.FormatInt(val, 10)); err != nil {
			return 0, err
		}
		if e.Op == syntax.ArithPostfixIncr || e.Op == syntax.ArithPostfixDecr {
			return old, nil
		}
		return val, nil
	}
	val, err := Arithm(env, e.X)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case syntax.ArithNegate:
		return -val, nil
	case syntax.ArithUnaryPlus:
		return val, nil
	case syntax.ArithLogicalNot:
		return oneIf(val == 0), nil
	case syntax.ArithBitwiseNot:
		return ^val, nil
	}
	return 0, fmt.Errorf("unsupported unary arithmetic operator")
}

func arithBinary(env *Environ, e *syntax.ArithBinary) (int64, error) {
	if op, ok := assignOp(e.Op); ok {
		return arithAssign(env, e, op)
	}
	x, err := Arithm(env, e.X)
	if err != nil {
		return 0, err
	}
	y, err := Arithm(env, e.Y)
	if err != nil {
		return 0, err
	}
	return applyBinary(e.Op, x, y)
}

// assignOp reports whether op is one of the compound-assignment
// variants, and if so the underlying arithmetic operator to combine
// with the existing value (ArithAssign itself has no underlying op).
func assignOp(op syntax.ArithBinaryOp) (syntax.ArithBinaryOp, bool) {
	switch op {
	case syntax.ArithAssign:
		return 0, true
	case syntax.ArithAddAssign:
		return syntax.ArithAdd, true
	case syntax.ArithSubAssign:
		return syntax.ArithSub, true
	case syntax.ArithMulAssign:
		return syntax.ArithMul, true
	case syntax.ArithDivAssign:
		return syntax.ArithDiv, true
	case syntax.ArithModAssign:
		return syntax.ArithMod, true
	case syntax.ArithAndAssign:
		return syntax.ArithBitAnd, true
	case syntax.ArithOrAssign:
		return syntax.ArithBitOr, true
	case syntax.ArithXorAssign:
		return syntax.ArithBitXor, true
	case syntax.ArithShlAssign:
		return syntax.ArithShiftL, true
	case syntax.ArithShrAssign:
		return syntax.ArithShiftR, true
	}
	return 0, false
}

func arithAssign(env *Environ, e *syntax.ArithBinary, underlying syntax.ArithBinaryOp) (int64, error) {
	name, err := lvalueName(e.X)
	if err != nil {
		return 0, err
	}
	rhs, err := Arithm(env, e.Y)
	if err != nil {
		return 0, err
	}
	val := rhs
	if e.Op != syntax.ArithAssign {
		old := atoi(env.Get(name).Value)
		val, err = applyBinary(underlying, old, rhs)
		if err != nil {
			return 0, err
		}
	}
	if err := env.Set(name, strconv.FormatInt(val, 10)); err != nil {
		return 0, err
	}
	return val, nil
}

func applyBinary(op syntax.ArithBinaryOp, x, y int64) (int64, error) {
	switch op {
	case syntax.ArithAdd:
		return x + y, nil
	case syntax.ArithSub:
		return x - y, nil
	case syntax.ArithMul:
		return x * y, nil
	case syntax.ArithDiv:
		if y == 0 {
			return 0, fmt.Errorf("arithmetic: division by zero")
		}
		return x / y, nil
	case syntax.ArithMod:
		if y == 0 {
			return 0, fmt.Errorf("arithmetic: division by zero")
		}
		return x % y, nil
	case syntax.ArithBitAnd:
		return x & y, nil
	case syntax.ArithBitOr:
		return x | y, nil
	case syntax.ArithBitXor:
		return x ^ y, nil
	case syntax.ArithShiftL:
		return x << uint(y), nil
	case syntax.ArithShiftR:
		return x >> uint(y), nil
	case syntax.ArithLt:
		return oneIf(x < y), nil
	case syntax.ArithLe:
		return oneIf(x <= y), nil
	case syntax.ArithGt:
		return oneIf(x > y), nil
	case syntax.ArithGe:
		return oneIf(x >= y), nil
	case syntax.ArithEq:
		return oneIf(x == y), nil
	case syntax.ArithNe:
		return oneIf(x != y), nil
	case syntax.ArithLogicalAnd:
		return oneIf(x != 0 && y != 0), nil
	case syntax.ArithLogicalOr:
		return oneIf(x != 0 || y != 0), nil
	}
	return 0, fmt.Errorf("unsupported binary arithmetic operator")
}

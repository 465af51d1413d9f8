package vm

import (
	"math"
	"strings"
)

// Truthy implements the value model's truthiness rule (spec §4.1): Nil is
// always false; Int is nonzero (a deliberate change from the original
// VM's ">0", see DESIGN.md); Float preserves the original's surprising
// "strictly positive" rule; every heap value is true.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Int:
		return v != 0
	case Float:
		return v > 0
	default:
		return true
	}
}

func boolInt(b bool) Int {
	if b {
		return 1
	}
	return 0
}

func asNumbers(a, b Value) (af, bf float64, isFloat bool, ok bool) {
	switch a := a.(type) {
	case Int:
		switch b := b.(type) {
		case Int:
			return float64(a), float64(b), false, true
		case Float:
			return float64(a), float64(b), true, true
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return float64(a), float64(b), true, true
		case Float:
			return float64(a), float64(b), true, true
		}
	}
	return 0, 0, false, false
}

// Add implements the Add opcode: numeric addition with Int/Float
// promotion, and string concatenation for two Str operands.
func Add(a, b Value) (Value, error) {
	if as, ok := a.(*Str); ok {
		if bs, ok := b.(*Str); ok {
			return NewStr(as.S + bs.S), nil
		}
	}
	return arith(a, b, "+", func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func Sub(a, b Value) (Value, error) {
	return arith(a, b, "-", func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

// Mul implements the Mul opcode: numeric multiplication with Int/Float
// promotion, plus two repetition forms (spec §4.1, either operand
// order): Str * Int repeats the string n times (n <= 0 yields ""), and
// Array * Int builds a fresh array holding n concatenated copies of the
// original's elements, each retained for its new slot.
func Mul(a, b Value) (Value, error) {
	if s, n, ok := strRepeatOperands(a, b); ok {
		if n < 0 {
			n = 0
		}
		return NewStr(strings.Repeat(s.S, int(n))), nil
	}
	if arr, n, ok := arrayRepeatOperands(a, b); ok {
		return repeatArray(arr, n), nil
	}
	return arith(a, b, "*", func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

func strRepeatOperands(a, b Value) (*Str, int64, bool) {
	if s, ok := a.(*Str); ok {
		if n, ok := b.(Int); ok {
			return s, int64(n), true
		}
	}
	if s, ok := b.(*Str); ok {
		if n, ok := a.(Int); ok {
			return s, int64(n), true
		}
	}
	return nil, 0, false
}

func arrayRepeatOperands(a, b Value) (*Array, int64, bool) {
	if arr, ok := a.(*Array); ok {
		if n, ok := b.(Int); ok {
			return arr, int64(n), true
		}
	}
	if arr, ok := b.(*Array); ok {
		if n, ok := a.(Int); ok {
			return arr, int64(n), true
		}
	}
	return nil, 0, false
}

func repeatArray(a *Array, n int64) *Array {
	if n <= 0 || len(a.Elems) == 0 {
		return NewArray(nil)
	}
	out := make([]Value, 0, int64(len(a.Elems))*n)
	for i := int64(0); i < n; i++ {
		for _, e := range a.Elems {
			Retain(e)
			out = append(out, e)
		}
	}
	return NewArray(out)
}

// Div implements the Div opcode. Unlike the other arithmetic opcodes, "/"
// always yields a Float, even for two Int operands (spec §4.1): there is
// no integer-division result in this language, only a zero-divisor check
// shared with the Int/Int case.
func Div(a, b Value) (Value, error) {
	af, bf, _, ok := asNumbers(a, b)
	if !ok {
		return nil, typeMismatch("/", a, b)
	}
	if _, aok := a.(Int); aok {
		if _, bok := b.(Int); bok && bf == 0 {
			return nil, newErr(KindTypeMismatch, "integer division by zero")
		}
	}
	return Float(af / bf), nil
}

func Mod(a, b Value) (Value, error) {
	if ai, aok := a.(Int); aok {
		if bi, bok := b.(Int); bok {
			if bi == 0 {
				return nil, newErr(KindTypeMismatch, "integer modulo by zero")
			}
			return Int(int64(ai) % int64(bi)), nil
		}
	}
	af, bf, _, ok := asNumbers(a, b)
	if !ok {
		return nil, typeMismatch("%", a, b)
	}
	return Float(math.Mod(af, bf)), nil
}

func arith(a, b Value, op string, ifn func(int64, int64) int64, ffn func(float64, float64) float64) (Value, error) {
	af, bf, isFloat, ok := asNumbers(a, b)
	if !ok {
		return nil, typeMismatch(op, a, b)
	}
	if isFloat {
		return Float(ffn(af, bf)), nil
	}
	return Int(ifn(int64(af), int64(bf))), nil
}

func typeMismatch(op string, a, b Value) error {
	return newErr(KindTypeMismatch, "unsupported operand types for %s: %s and %s", op, a.Type(), b.Type())
}

// And/Or implement the catalog's eager boolean opcodes. The compiler
// never emits these for source-level and/or (it short-circuits with jumps
// instead, see compiler.compileShortCircuit); they exist for hand-written
// bytecode.
func And(a, b Value) (Value, error) { return boolInt(Truthy(a) && Truthy(b)), nil }
func Or(a, b Value) (Value, error)  { return boolInt(Truthy(a) || Truthy(b)), nil }

// Negate implements the Negate opcode (unary minus).
func Negate(v Value) (Value, error) {
	switch v := v.(type) {
	case Int:
		return -v, nil
	case Float:
		return -v, nil
	default:
		return nil, newErr(KindTypeMismatch, "unsupported operand type for unary -: %s", v.Type())
	}
}

// Not implements the Not opcode (logical negation, not bitwise).
func Not(v Value) (Value, error) { return boolInt(!Truthy(v)), nil }

// Compare implements Lt/Leq/Gt/Geq: Int/Float with promotion, Str
// lexicographically. Any other combination is a type mismatch.
func Compare(op string, a, b Value) (Value, error) {
	if as, ok := a.(*Str); ok {
		if bs, ok := b.(*Str); ok {
			return compareOrdered(op, as.S < bs.S, as.S == bs.S)
		}
	}
	af, bf, _, ok := asNumbers(a, b)
	if !ok {
		return nil, typeMismatch(op, a, b)
	}
	return compareOrdered(op, af < bf, af == bf)
}

func compareOrdered(op string, lt, eq bool) (Value, error) {
	switch op {
	case "<":
		return boolInt(lt), nil
	case "<=":
		return boolInt(lt || eq), nil
	case ">":
		return boolInt(!lt && !eq), nil
	case ">=":
		return boolInt(!lt), nil
	default:
		return nil, newErr(KindTypeMismatch, "unsupported comparison %s", op)
	}
}

// Equal implements Eq/Neq: numeric equality with promotion, string
// content equality, and pointer identity for every other heap type. Nil
// equals only Nil.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Int, Float:
		af, bf, _, ok := asNumbers(a, b)
		return ok && af == bf
	case *Str:
		bs, ok := b.(*Str)
		return ok && a.S == bs.S
	default:
		return a == b
	}
}

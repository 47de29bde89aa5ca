package value

import (
	"math"

	"flowlang/internal/bigint"
	"flowlang/internal/errs"
)

// Arithmetic for the numeric tower. Integer operations use checked
// int64 math and promote both operands to BigInteger on overflow.
// Mixing Integer/BigInteger promotes the Integer side; mixing with
// Float converts through float64, which fails for BigIntegers outside
// the int64 range.

type numKind int

const (
	numInt numKind = iota
	numBig
	numFloat
)

type number struct {
	kind numKind
	i    int64
	f    float64
	b    *bigint.Int
}

func asNumber(v Value) (number, bool) {
	switch t := v.(type) {
	case int64:
		return number{kind: numInt, i: t}, true
	case float64:
		return number{kind: numFloat, f: t}, true
	case *bigint.Int:
		return number{kind: numBig, b: t}, true
	default:
		return number{}, false
	}
}

func (n number) big() *bigint.Int {
	if n.kind == numBig {
		return n.b
	}
	return bigint.FromInt64(n.i)
}

func (n number) float() (float64, error) {
	switch n.kind {
	case numInt:
		return float64(n.i), nil
	case numFloat:
		return n.f, nil
	default:
		f, ok := n.b.ToFloat64()
		if !ok {
			return 0, errs.Type("BigInteger %s is too large for Float arithmetic", n.b)
		}
		return f, nil
	}
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		return 0, false
	}
	return s, true
}

func subInt64(a, b int64) (int64, bool) {
	d := a - b
	if (b < 0 && d < a) || (b > 0 && d > a) {
		return 0, false
	}
	return d, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == math.MinInt64 && b == -1) {
		return 0, false
	}
	return p, true
}

// Add implements +: numeric addition, string concatenation and array
// concatenation.
func Add(a, b Value) (Value, error) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as + bs, nil
		}
	}
	if aa, ok := a.(*Array); ok {
		if ba, ok := b.(*Array); ok {
			elems := make([]Value, 0, len(aa.Elements)+len(ba.Elements))
			elems = append(elems, aa.Elements...)
			elems = append(elems, ba.Elements...)
			return NewArray(elems), nil
		}
	}
	return numericOp(a, b, "+",
		addInt64,
		func(x, y *bigint.Int) *bigint.Int { return x.Add(y) },
		func(x, y float64) float64 { return x + y })
}

func Sub(a, b Value) (Value, error) {
	return numericOp(a, b, "-",
		subInt64,
		func(x, y *bigint.Int) *bigint.Int { return x.Sub(y) },
		func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	return numericOp(a, b, "*",
		mulInt64,
		func(x, y *bigint.Int) *bigint.Int { return x.Mul(y) },
		func(x, y float64) float64 { return x * y })
}

func numericOp(a, b Value, op string,
	intOp func(int64, int64) (int64, bool),
	bigOp func(*bigint.Int, *bigint.Int) *bigint.Int,
	floatOp func(float64, float64) float64) (Value, error) {

	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if !aok || !bok {
		return nil, errs.Type("unsupported operands for '%s': %s and %s", op, TypeName(a), TypeName(b))
	}
	if an.kind == numFloat || bn.kind == numFloat {
		af, err := an.float()
		if err != nil {
			return nil, err
		}
		bf, err := bn.float()
		if err != nil {
			return nil, err
		}
		return floatOp(af, bf), nil
	}
	if an.kind == numBig || bn.kind == numBig {
		return bigOp(an.big(), bn.big()), nil
	}
	if r, ok := intOp(an.i, bn.i); ok {
		return r, nil
	}
	return bigOp(an.big(), bn.big()), nil
}

// Div always produces a Float; dividing by zero of either numeric kind
// is an error.
func Div(a, b Value) (Value, error) {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if !aok || !bok {
		return nil, errs.Type("unsupported operands for '/': %s and %s", TypeName(a), TypeName(b))
	}
	af, err := an.float()
	if err != nil {
		return nil, err
	}
	bf, err := bn.float()
	if err != nil {
		return nil, err
	}
	if bf == 0 {
		return nil, errs.New(errs.DivisionByZero, "division by zero")
	}
	return af / bf, nil
}

// Mod is defined for Integer operands only.
func Mod(a, b Value) (Value, error) {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	if !aok || !bok {
		return nil, errs.Type("unsupported operands for '%%': %s and %s", TypeName(a), TypeName(b))
	}
	if bi == 0 {
		return nil, errs.New(errs.DivisionByZero, "modulo by zero")
	}
	return ai % bi, nil
}

// Negate implements unary minus.
func Negate(v Value) (Value, error) {
	switch t := v.(type) {
	case int64:
		if t == math.MinInt64 {
			return bigint.FromInt64(t).Neg(), nil
		}
		return -t, nil
	case float64:
		return -t, nil
	case *bigint.Int:
		return t.Neg(), nil
	default:
		return nil, errs.Type("cannot negate %s", TypeName(v))
	}
}

func compareNumbers(an, bn number) (int, bool) {
	if an.kind == numFloat || bn.kind == numFloat {
		af, aerr := an.float()
		bf, berr := bn.float()
		if aerr != nil || berr != nil {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if an.kind == numBig || bn.kind == numBig {
		return an.big().Cmp(bn.big()), true
	}
	switch {
	case an.i < bn.i:
		return -1, true
	case an.i > bn.i:
		return 1, true
	default:
		return 0, true
	}
}

// Compare orders two values for <, <=, > and >=. Numbers order across
// the tower, strings lexicographically.
func Compare(a, b Value) (int, error) {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			c, ok := compareNumbers(an, bn)
			if !ok {
				return 0, errs.Type("BigInteger too large to compare with Float")
			}
			return c, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch {
			case as < bs:
				return -1, nil
			case as > bs:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	return 0, errs.Type("cannot order %s and %s", TypeName(a), TypeName(b))
}

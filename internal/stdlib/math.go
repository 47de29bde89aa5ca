package stdlib

import (
	"math"
	"math/rand"

	"flowlang/internal/bigint"
	"flowlang/internal/errs"
	"flowlang/internal/value"
)

func (r *Registry) registerMath() {
	r.register("abs", func(args []value.Value) (value.Value, error) {
		if err := exactly("abs", args, 1); err != nil {
			return nil, err
		}
		switch t := args[0].(type) {
		case int64:
			if t < 0 {
				return value.Negate(t)
			}
			return t, nil
		case float64:
			return math.Abs(t), nil
		case *bigint.Int:
			if t.Sign() < 0 {
				return t.Neg(), nil
			}
			return t, nil
		default:
			return nil, errs.Type("abs expects a number, got %s", value.TypeName(args[0]))
		}
	})

	r.register("min", func(args []value.Value) (value.Value, error) {
		return extremum("min", args, -1)
	})
	r.register("max", func(args []value.Value) (value.Value, error) {
		return extremum("max", args, 1)
	})

	round1 := func(name string, fn func(float64) float64) {
		r.register(name, func(args []value.Value) (value.Value, error) {
			if err := exactly(name, args, 1); err != nil {
				return nil, err
			}
			switch t := args[0].(type) {
			case int64:
				return t, nil
			case float64:
				return int64(fn(t)), nil
			default:
				return nil, errs.Type("%s expects a number, got %s", name, value.TypeName(args[0]))
			}
		})
	}
	round1("floor", math.Floor)
	round1("ceil", math.Ceil)
	round1("round", math.Round)

	r.register("sqrt", func(args []value.Value) (value.Value, error) {
		if err := exactly("sqrt", args, 1); err != nil {
			return nil, err
		}
		f, err := wantNumber("sqrt", args[0])
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, errs.Type("sqrt of negative number")
		}
		return math.Sqrt(f), nil
	})

	r.register("pow", func(args []value.Value) (value.Value, error) {
		if err := exactly("pow", args, 2); err != nil {
			return nil, err
		}
		base, err := wantNumber("pow", args[0])
		if err != nil {
			return nil, err
		}
		exp, err := wantNumber("pow", args[1])
		if err != nil {
			return nil, err
		}
		// Integer powers stay in the integer tower and may promote.
		bi, bok := args[0].(int64)
		ei, eok := args[1].(int64)
		if bok && eok && ei >= 0 {
			result := value.Value(int64(1))
			for i := int64(0); i < ei; i++ {
				var merr error
				result, merr = value.Mul(result, bi)
				if merr != nil {
					return nil, merr
				}
			}
			return result, nil
		}
		return math.Pow(base, exp), nil
	})

	r.register("random", func(args []value.Value) (value.Value, error) {
		if err := exactly("random", args, 0); err != nil {
			return nil, err
		}
		return rand.Float64(), nil
	})
}

func extremum(name string, args []value.Value, dir int) (value.Value, error) {
	if err := atLeast(name, args, 1); err != nil {
		return nil, err
	}
	best := args[0]
	for _, a := range args[1:] {
		c, err := value.Compare(a, best)
		if err != nil {
			return nil, err
		}
		if c == dir {
			best = a
		}
	}
	return best, nil
}

package stdlib

import (
	"bufio"
	"strconv"
	"strings"

	"flowlang/internal/bigint"
	"flowlang/internal/errs"
	"flowlang/internal/value"
)

func (r *Registry) registerCore() {
	r.register("print", func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = value.ToString(a)
		}
		r.printf("%s", strings.Join(parts, " "))
		return nil, nil
	})

	r.register("println", func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = value.ToString(a)
		}
		r.printf("%s\n", strings.Join(parts, " "))
		return nil, nil
	})

	// show is the statement form's builtin twin.
	r.register("show", func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = value.ToString(a)
		}
		r.printf("%s\n", strings.Join(parts, " "))
		return nil, nil
	})

	r.register("input", func(args []value.Value) (value.Value, error) {
		if len(args) == 1 {
			prompt, err := wantString("input", args[0])
			if err != nil {
				return nil, err
			}
			r.printf("%s", prompt)
		}
		reader := bufio.NewReader(r.In)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", nil
		}
		return strings.TrimRight(line, "\r\n"), nil
	})

	r.register("assert", func(args []value.Value) (value.Value, error) {
		if err := atLeast("assert", args, 1); err != nil {
			return nil, err
		}
		if !value.IsTruthy(args[0]) {
			msg := "assertion failed"
			if len(args) > 1 {
				msg = value.ToString(args[1])
			}
			return nil, errs.Runtime("%s", msg)
		}
		return nil, nil
	})

	r.register("panic", func(args []value.Value) (value.Value, error) {
		msg := "panic"
		if len(args) > 0 {
			msg = value.ToString(args[0])
		}
		return nil, errs.Runtime("%s", msg)
	})

	r.register("len", func(args []value.Value) (value.Value, error) {
		if err := exactly("len", args, 1); err != nil {
			return nil, err
		}
		switch t := args[0].(type) {
		case string:
			return int64(len(t)), nil
		case *value.Array:
			return int64(len(t.Elements)), nil
		case *value.Object:
			return int64(len(t.Fields)), nil
		default:
			return nil, errs.Type("len expects a String, Array or Object, got %s", value.TypeName(args[0]))
		}
	})

	r.register("type", func(args []value.Value) (value.Value, error) {
		if err := exactly("type", args, 1); err != nil {
			return nil, err
		}
		return value.TypeName(args[0]), nil
	})
	r.register("type_of", func(args []value.Value) (value.Value, error) {
		return r.Call("type", args)
	})

	r.register("str", func(args []value.Value) (value.Value, error) {
		if err := exactly("str", args, 1); err != nil {
			return nil, err
		}
		return value.ToString(args[0]), nil
	})
	r.register("to_string", func(args []value.Value) (value.Value, error) {
		return r.Call("str", args)
	})

	r.register("int", coreInt)
	r.register("to_int", coreInt)
	r.register("float", coreFloat)
	r.register("to_float", coreFloat)

	r.register("bool", func(args []value.Value) (value.Value, error) {
		if err := exactly("bool", args, 1); err != nil {
			return nil, err
		}
		return value.IsTruthy(args[0]), nil
	})
	r.register("to_bool", func(args []value.Value) (value.Value, error) {
		return r.Call("bool", args)
	})
}

func coreInt(args []value.Value) (value.Value, error) {
	if err := exactly("int", args, 1); err != nil {
		return nil, err
	}
	switch t := args[0].(type) {
	case int64:
		return t, nil
	case *bigint.Int:
		if v, ok := t.ToInt64(); ok {
			return v, nil
		}
		return t, nil
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(t)
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, nil
		}
		if b, err := bigint.FromString(s); err == nil {
			return b, nil
		}
		return nil, errs.Type("int cannot parse %q", t)
	default:
		return nil, errs.Type("int cannot convert %s", value.TypeName(args[0]))
	}
}

func coreFloat(args []value.Value) (value.Value, error) {
	if err := exactly("float", args, 1); err != nil {
		return nil, err
	}
	switch t := args[0].(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case *bigint.Int:
		if f, ok := t.ToFloat64(); ok {
			return f, nil
		}
		return nil, errs.Type("BigInteger %s is too large for Float", t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, errs.Type("float cannot parse %q", t)
		}
		return f, nil
	default:
		return nil, errs.Type("float cannot convert %s", value.TypeName(args[0]))
	}
}

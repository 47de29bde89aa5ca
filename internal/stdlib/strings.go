package stdlib

import (
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"flowlang/internal/errs"
	"flowlang/internal/value"
)

func (r *Registry) registerStrings() {
	r.register("str_len", func(args []value.Value) (value.Value, error) {
		if err := exactly("str_len", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("str_len", args[0])
		if err != nil {
			return nil, err
		}
		return int64(len(s)), nil
	})

	str1 := func(name string, fn func(string) string) {
		r.register(name, func(args []value.Value) (value.Value, error) {
			if err := exactly(name, args, 1); err != nil {
				return nil, err
			}
			s, err := wantString(name, args[0])
			if err != nil {
				return nil, err
			}
			return fn(s), nil
		})
	}
	str1("upper", strings.ToUpper)
	str1("lower", strings.ToLower)
	str1("trim", strings.TrimSpace)
	str1("title_case", func(s string) string {
		return cases.Title(language.English).String(s)
	})

	str2 := func(name string, fn func(a, b string) value.Value) {
		r.register(name, func(args []value.Value) (value.Value, error) {
			if err := exactly(name, args, 2); err != nil {
				return nil, err
			}
			a, err := wantString(name, args[0])
			if err != nil {
				return nil, err
			}
			b, err := wantString(name, args[1])
			if err != nil {
				return nil, err
			}
			return fn(a, b), nil
		})
	}
	str2("contains", func(a, b string) value.Value { return strings.Contains(a, b) })
	str2("starts_with", func(a, b string) value.Value { return strings.HasPrefix(a, b) })
	str2("ends_with", func(a, b string) value.Value { return strings.HasSuffix(a, b) })
	str2("split", func(a, b string) value.Value {
		parts := strings.Split(a, b)
		elems := make([]value.Value, len(parts))
		for i, p := range parts {
			elems[i] = p
		}
		return value.NewArray(elems)
	})

	r.register("join", func(args []value.Value) (value.Value, error) {
		if err := exactly("join", args, 2); err != nil {
			return nil, err
		}
		arr, err := wantArray("join", args[0])
		if err != nil {
			return nil, err
		}
		sep, err := wantString("join", args[1])
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(arr.Elements))
		for i, e := range arr.Elements {
			parts[i] = value.ToString(e)
		}
		return strings.Join(parts, sep), nil
	})

	r.register("replace", func(args []value.Value) (value.Value, error) {
		if err := exactly("replace", args, 3); err != nil {
			return nil, err
		}
		s, err := wantString("replace", args[0])
		if err != nil {
			return nil, err
		}
		old, err := wantString("replace", args[1])
		if err != nil {
			return nil, err
		}
		repl, err := wantString("replace", args[2])
		if err != nil {
			return nil, err
		}
		return strings.ReplaceAll(s, old, repl), nil
	})

	r.register("substring", func(args []value.Value) (value.Value, error) {
		if err := exactly("substring", args, 3); err != nil {
			return nil, err
		}
		s, err := wantString("substring", args[0])
		if err != nil {
			return nil, err
		}
		start, err := wantInt("substring", args[1])
		if err != nil {
			return nil, err
		}
		end, err := wantInt("substring", args[2])
		if err != nil {
			return nil, err
		}
		if start < 0 || end > int64(len(s)) || start > end {
			return nil, errs.New(errs.IndexOutOfBounds, "substring bounds [%d, %d) out of range for length %d", start, end, len(s))
		}
		return s[start:end], nil
	})

	r.register("regex_match", func(args []value.Value) (value.Value, error) {
		re, s, err := regexArgs("regex_match", args)
		if err != nil {
			return nil, err
		}
		ok, rerr := re.MatchString(s)
		if rerr != nil {
			return nil, errs.Runtime("regex_match: %v", rerr)
		}
		return ok, nil
	})

	r.register("regex_find", func(args []value.Value) (value.Value, error) {
		re, s, err := regexArgs("regex_find", args)
		if err != nil {
			return nil, err
		}
		var elems []value.Value
		m, rerr := re.FindStringMatch(s)
		for m != nil && rerr == nil {
			elems = append(elems, m.String())
			m, rerr = re.FindNextMatch(m)
		}
		if rerr != nil {
			return nil, errs.Runtime("regex_find: %v", rerr)
		}
		return value.NewArray(elems), nil
	})

	r.register("regex_replace", func(args []value.Value) (value.Value, error) {
		if err := exactly("regex_replace", args, 3); err != nil {
			return nil, err
		}
		re, s, err := regexArgs("regex_replace", args[:2])
		if err != nil {
			return nil, err
		}
		repl, err := wantString("regex_replace", args[2])
		if err != nil {
			return nil, err
		}
		out, rerr := re.Replace(s, repl, -1, -1)
		if rerr != nil {
			return nil, errs.Runtime("regex_replace: %v", rerr)
		}
		return out, nil
	})
}

func regexArgs(name string, args []value.Value) (*regexp2.Regexp, string, error) {
	if err := exactly(name, args, 2); err != nil {
		return nil, "", err
	}
	pattern, err := wantString(name, args[0])
	if err != nil {
		return nil, "", err
	}
	s, err := wantString(name, args[1])
	if err != nil {
		return nil, "", err
	}
	re, rerr := regexp2.Compile(pattern, regexp2.None)
	if rerr != nil {
		return nil, "", errs.Type("%s: invalid pattern: %v", name, rerr)
	}
	return re, s, nil
}

// Package value defines the runtime value model shared by the
// compiler, the virtual machine and the tree-walking interpreter.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"flowlang/internal/bigint"
)

// Value is any runtime value. Concrete kinds: int64, float64,
// *bigint.Int, string, bool, nil, *Array, *Object, *Builtin, and the
// function types owned by the bytecode and interp packages.
type Value = interface{}

// Array has reference semantics: assigning or passing an array shares
// the same backing elements.
type Array struct {
	Elements []Value
}

func NewArray(elems []Value) *Array {
	return &Array{Elements: elems}
}

// Object is a string-keyed record, also with reference semantics.
type Object struct {
	Fields map[string]Value
}

func NewObject() *Object {
	return &Object{Fields: make(map[string]Value)}
}

// Builtin is a native function exposed to scripts.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (b *Builtin) String() string   { return "<builtin " + b.Name + ">" }
func (b *Builtin) TypeName() string { return "Function" }

// typeNamer lets function types defined elsewhere report their kind
// without this package importing them.
type typeNamer interface {
	TypeName() string
}

// TypeName reports the language-level type of v.
func TypeName(v Value) string {
	switch t := v.(type) {
	case nil:
		return "Null"
	case int64:
		return "Integer"
	case float64:
		return "Float"
	case *bigint.Int:
		return "BigInteger"
	case string:
		return "String"
	case bool:
		return "Boolean"
	case *Array:
		return "Array"
	case *Object:
		return "Object"
	case typeNamer:
		return t.TypeName()
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsTruthy implements the language's truthiness rules: false, null,
// zero of any numeric kind, the empty string, the empty array and the
// empty object are falsy; everything else is truthy.
func IsTruthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case *bigint.Int:
		return !t.IsZero()
	case string:
		return t != ""
	case *Array:
		return len(t.Elements) > 0
	case *Object:
		return len(t.Fields) > 0
	default:
		return true
	}
}

// ToString renders v the way show prints it.
func ToString(v Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	case *bigint.Int:
		return t.String()
	case string:
		return t
	case *Array:
		parts := make([]string, len(t.Elements))
		for i, e := range t.Elements {
			parts[i] = ToString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Object:
		keys := make([]string, 0, len(t.Fields))
		for k := range t.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + ToString(t.Fields[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Keep whole floats distinguishable from integers.
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && s != "NaN" {
		s += ".0"
	}
	return s
}

// Equal is deep structural equality. Numeric values compare across the
// Integer/BigInteger/Float tower.
func Equal(a, b Value) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			c, ok := compareNumbers(an, bn)
			return ok && c == 0
		}
		return false
	}
	switch at := a.(type) {
	case nil:
		return b == nil
	case bool:
		bt, ok := b.(bool)
		return ok && at == bt
	case string:
		bt, ok := b.(string)
		return ok && at == bt
	case *Array:
		bt, ok := b.(*Array)
		if !ok || len(at.Elements) != len(bt.Elements) {
			return false
		}
		for i := range at.Elements {
			if !Equal(at.Elements[i], bt.Elements[i]) {
				return false
			}
		}
		return true
	case *Object:
		bt, ok := b.(*Object)
		if !ok || len(at.Fields) != len(bt.Fields) {
			return false
		}
		for k, av := range at.Fields {
			bv, present := bt.Fields[k]
			if !present || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

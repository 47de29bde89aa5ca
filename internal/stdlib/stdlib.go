// Package stdlib implements the builtin function registry shared by
// the virtual machine and the tree-walking interpreter. The compiler
// consults the same registry to decide which call sites become
// CallBuiltin dispatches.
package stdlib

import (
	"fmt"
	"io"
	"os"

	"flowlang/internal/errs"
	"flowlang/internal/value"
)

type Registry struct {
	funcs map[string]*value.Builtin

	// Out and In are the streams print and input use; tests swap them.
	Out io.Writer
	In  io.Reader

	db *dbManager
	ws *wsManager
}

func New() *Registry {
	r := &Registry{
		funcs: make(map[string]*value.Builtin),
		Out:   os.Stdout,
		In:    os.Stdin,
		db:    newDBManager(),
		ws:    newWSManager(),
	}
	r.registerCore()
	r.registerStrings()
	r.registerArrays()
	r.registerObjects()
	r.registerMath()
	r.registerIO()
	r.registerTime()
	r.registerJSON()
	r.registerCrypto()
	r.registerNet()
	r.registerDB()
	return r
}

func (r *Registry) register(name string, fn func(args []value.Value) (value.Value, error)) {
	r.funcs[name] = &value.Builtin{Name: name, Fn: fn}
}

func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

func (r *Registry) Get(name string) (*value.Builtin, bool) {
	b, ok := r.funcs[name]
	return b, ok
}

// Call dispatches a builtin by name.
func (r *Registry) Call(name string, args []value.Value) (value.Value, error) {
	b, ok := r.funcs[name]
	if !ok {
		return nil, errs.Undefined(name)
	}
	return b.Fn(args)
}

// Names returns every registered builtin, for the REPL and tests.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	return out
}

func exactly(name string, args []value.Value, n int) error {
	if len(args) != n {
		return errs.Type("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func atLeast(name string, args []value.Value, n int) error {
	if len(args) < n {
		return errs.Type("%s expects at least %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func wantString(name string, v value.Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errs.Type("%s expects a String, got %s", name, value.TypeName(v))
	}
	return s, nil
}

func wantInt(name string, v value.Value) (int64, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, errs.Type("%s expects an Integer, got %s", name, value.TypeName(v))
	}
	return i, nil
}

func wantArray(name string, v value.Value) (*value.Array, error) {
	a, ok := v.(*value.Array)
	if !ok {
		return nil, errs.Type("%s expects an Array, got %s", name, value.TypeName(v))
	}
	return a, nil
}

func wantObject(name string, v value.Value) (*value.Object, error) {
	o, ok := v.(*value.Object)
	if !ok {
		return nil, errs.Type("%s expects an Object, got %s", name, value.TypeName(v))
	}
	return o, nil
}

func wantNumber(name string, v value.Value) (float64, error) {
	switch t := v.(type) {
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	default:
		return 0, errs.Type("%s expects a number, got %s", name, value.TypeName(v))
	}
}

func (r *Registry) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.Out, format, args...)
}

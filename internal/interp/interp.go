// Package interp evaluates the syntax tree directly. It is the default
// execution engine and supports the statements the compiler rejects:
// import, export and try/catch. Lambdas close over their defining
// environment here, unlike in compiled code.
package interp

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"flowlang/internal/ast"
	"flowlang/internal/errs"
	"flowlang/internal/parser"
	"flowlang/internal/stdlib"
	"flowlang/internal/value"
)

const maxCallDepth = 1024

// Environment is a lexical scope chain.
type Environment struct {
	vars   map[string]value.Value
	parent *Environment
}

func NewEnvironment(parent *Environment) *Environment {
	return &Environment{vars: make(map[string]value.Value), parent: parent}
}

func (e *Environment) Get(name string) (value.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Define binds name in this scope, shadowing any outer binding.
func (e *Environment) Define(name string, v value.Value) {
	e.vars[name] = v
}


// Function is a user function declared with def.
type Function struct {
	Name   string
	Params []ast.Parameter
	Body   []ast.Statement
	Env    *Environment
}

func (f *Function) TypeName() string { return "Function" }
func (f *Function) String() string   { return "<function " + f.Name + ">" }

// Lambda is a single-expression closure.
type Lambda struct {
	Params []ast.Parameter
	Body   ast.Expression
	Env    *Environment
}

func (l *Lambda) TypeName() string { return "Function" }
func (l *Lambda) String() string   { return "<lambda>" }

// returnSignal unwinds out of a function body. It travels the error
// path but is not a failure.
type returnSignal struct {
	val value.Value
}

func (returnSignal) Error() string { return "return" }

type Interp struct {
	globals  *Environment
	builtins *stdlib.Registry

	// BaseDir anchors import resolution; defaults to the working
	// directory.
	BaseDir string

	depth   int
	modules map[string]bool
}

func New(builtins *stdlib.Registry) *Interp {
	return &Interp{
		globals:  NewEnvironment(nil),
		builtins: builtins,
		BaseDir:  ".",
		modules:  make(map[string]bool),
	}
}

// Run evaluates a whole program in the interpreter's global scope.
func (i *Interp) Run(prog *ast.Program) error {
	for _, stmt := range prog.Statements {
		if err := i.statement(stmt, i.globals); err != nil {
			if _, ok := err.(returnSignal); ok {
				return errs.Compile(stmt.Pos(), "return outside a function")
			}
			return err
		}
	}
	return nil
}

// Eval evaluates a single expression, for the REPL.
func (i *Interp) Eval(expr ast.Expression) (value.Value, error) {
	return i.expression(expr, i.globals)
}

// RunStatement executes one statement in the global scope, for the
// REPL.
func (i *Interp) RunStatement(stmt ast.Statement) error {
	err := i.statement(stmt, i.globals)
	if _, ok := err.(returnSignal); ok {
		return errs.Compile(stmt.Pos(), "return outside a function")
	}
	return err
}

func (i *Interp) statement(stmt ast.Statement, env *Environment) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		v, err := i.expression(s.Value, env)
		if err != nil {
			return err
		}
		env.Define(s.Name, v)
		return nil

	case *ast.DefStmt:
		fn := &Function{Name: s.Name, Params: s.Params, Body: s.Body, Env: env}
		if err := checkParams(s.Params, s.Pos()); err != nil {
			return err
		}
		env.Define(s.Name, fn)
		return nil

	case *ast.IfStmt:
		cond, err := i.expression(s.Condition, env)
		if err != nil {
			return err
		}
		if value.IsTruthy(cond) {
			return i.block(s.Then, env)
		}
		return i.block(s.Else, env)

	case *ast.WhileStmt:
		for {
			cond, err := i.expression(s.Condition, env)
			if err != nil {
				return err
			}
			if !value.IsTruthy(cond) {
				return nil
			}
			if err := i.block(s.Body, env); err != nil {
				return err
			}
		}

	case *ast.ForStmt:
		return i.forLoop(s, env)

	case *ast.ShowStmt:
		v, err := i.expression(s.Value, env)
		if err != nil {
			return err
		}
		fmt.Fprintln(i.builtins.Out, value.ToString(v))
		return nil

	case *ast.ReturnStmt:
		var v value.Value
		if s.Value != nil {
			var err error
			v, err = i.expression(s.Value, env)
			if err != nil {
				return err
			}
		}
		return returnSignal{val: v}

	case *ast.ExprStmt:
		_, err := i.expression(s.Expr, env)
		return err

	case *ast.ImportStmt:
		return i.importModule(s, env)

	case *ast.ExportStmt:
		// Outside a module, export evaluates its declaration and is
		// otherwise inert.
		return i.statement(s.Decl, env)

	case *ast.TryStmt:
		err := i.block(s.Body, env)
		if err == nil {
			return nil
		}
		if _, ok := err.(returnSignal); ok {
			return err
		}
		scope := NewEnvironment(env)
		scope.Define(s.CatchVar, errorValue(err))
		return i.block(s.Catch, scope)

	default:
		return errs.NewAt(errs.RuntimeError, stmt.Pos(), "unknown statement %T", stmt)
	}
}

// errorValue is what a catch variable sees: the error message without
// the kind prefix.
func errorValue(err error) value.Value {
	if fe, ok := err.(*errs.FlowError); ok {
		return fe.Message
	}
	return err.Error()
}

// block runs statements in the given environment. if and while bodies
// share the enclosing scope, matching compiled semantics.
func (i *Interp) block(stmts []ast.Statement, env *Environment) error {
	for _, stmt := range stmts {
		if err := i.statement(stmt, env); err != nil {
			return err
		}
	}
	return nil
}

// forLoop iterates over [start, end) with the counter in its own
// scope.
func (i *Interp) forLoop(s *ast.ForStmt, env *Environment) error {
	start, err := i.expression(s.Start, env)
	if err != nil {
		return err
	}
	end, err := i.expression(s.End, env)
	if err != nil {
		return err
	}
	scope := NewEnvironment(env)
	scope.Define(s.Variable, start)
	for {
		cur, _ := scope.Get(s.Variable)
		c, err := value.Compare(cur, end)
		if err != nil {
			return err
		}
		if c >= 0 {
			return nil
		}
		if err := i.block(s.Body, scope); err != nil {
			return err
		}
		cur, _ = scope.Get(s.Variable)
		next, err := value.Add(cur, int64(1))
		if err != nil {
			return err
		}
		scope.Define(s.Variable, next)
	}
}

func (i *Interp) expression(expr ast.Expression, env *Environment) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.IntegerLit:
		return e.Value, nil
	case *ast.BigIntegerLit:
		return e.Value, nil
	case *ast.FloatLit:
		return e.Value, nil
	case *ast.StringLit:
		return e.Value, nil
	case *ast.BooleanLit:
		return e.Value, nil
	case *ast.NullLit:
		return nil, nil

	case *ast.Identifier:
		if v, ok := env.Get(e.Name); ok {
			return v, nil
		}
		if b, ok := i.builtins.Get(e.Name); ok {
			return b, nil
		}
		return nil, errs.NewAt(errs.UndefinedName, e.Pos(), "undefined name '%s'", e.Name)

	case *ast.BinaryExpr:
		return i.binary(e, env)

	case *ast.UnaryExpr:
		operand, err := i.expression(e.Operand, env)
		if err != nil {
			return nil, err
		}
		if e.Operator == ast.OpNot {
			return !value.IsTruthy(operand), nil
		}
		return value.Negate(operand)

	case *ast.CallExpr:
		return i.callByName(e, env)

	case *ast.MethodCallExpr:
		return i.methodCall(e, env)

	case *ast.ArrayLit:
		elems := make([]value.Value, len(e.Elements))
		for idx, el := range e.Elements {
			v, err := i.expression(el, env)
			if err != nil {
				return nil, err
			}
			elems[idx] = v
		}
		return value.NewArray(elems), nil

	case *ast.ObjectLit:
		obj := value.NewObject()
		for _, f := range e.Fields {
			v, err := i.expression(f.Value, env)
			if err != nil {
				return nil, err
			}
			obj.Fields[f.Key] = v
		}
		return obj, nil

	case *ast.IndexExpr:
		target, err := i.expression(e.Object, env)
		if err != nil {
			return nil, err
		}
		index, err := i.expression(e.Index, env)
		if err != nil {
			return nil, err
		}
		return value.Index(target, index)

	case *ast.PropertyExpr:
		target, err := i.expression(e.Object, env)
		if err != nil {
			return nil, err
		}
		obj, ok := target.(*value.Object)
		if !ok {
			return nil, errs.Type("cannot read property %q of %s", e.Property, value.TypeName(target))
		}
		return obj.Fields[e.Property], nil

	case *ast.LambdaExpr:
		if err := checkParams(e.Params, e.Pos()); err != nil {
			return nil, err
		}
		return &Lambda{Params: e.Params, Body: e.Body, Env: env}, nil

	default:
		return nil, errs.NewAt(errs.RuntimeError, expr.Pos(), "unknown expression %T", expr)
	}
}

func (i *Interp) binary(e *ast.BinaryExpr, env *Environment) (value.Value, error) {
	// and/or short-circuit and keep the deciding operand as the
	// result.
	if e.Operator == ast.OpAnd || e.Operator == ast.OpOr {
		left, err := i.expression(e.Left, env)
		if err != nil {
			return nil, err
		}
		truthy := value.IsTruthy(left)
		if (e.Operator == ast.OpAnd && !truthy) || (e.Operator == ast.OpOr && truthy) {
			return left, nil
		}
		return i.expression(e.Right, env)
	}

	left, err := i.expression(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.expression(e.Right, env)
	if err != nil {
		return nil, err
	}
	switch e.Operator {
	case ast.OpAdd:
		return value.Add(left, right)
	case ast.OpSub:
		return value.Sub(left, right)
	case ast.OpMul:
		return value.Mul(left, right)
	case ast.OpDiv:
		return value.Div(left, right)
	case ast.OpMod:
		return value.Mod(left, right)
	case ast.OpEqual:
		return value.Equal(left, right), nil
	case ast.OpNotEqual:
		return !value.Equal(left, right), nil
	case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
		c, err := value.Compare(left, right)
		if err != nil {
			return nil, err
		}
		switch e.Operator {
		case ast.OpLess:
			return c < 0, nil
		case ast.OpLessEqual:
			return c <= 0, nil
		case ast.OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return nil, errs.NewAt(errs.RuntimeError, e.Pos(), "unknown operator %s", e.Operator)
	}
}

// callByName resolves the callee among scoped bindings first, then
// builtins, so a local definition shadows a builtin of the same name.
func (i *Interp) callByName(e *ast.CallExpr, env *Environment) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	for idx, arg := range e.Args {
		v, err := i.expression(arg, env)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}
	if callee, ok := env.Get(e.Name); ok {
		return i.apply(callee, args, e.Pos())
	}
	if i.builtins.Has(e.Name) {
		return i.builtins.Call(e.Name, args)
	}
	return nil, errs.NewAt(errs.UndefinedName, e.Pos(), "undefined name '%s'", e.Name)
}

func (i *Interp) methodCall(e *ast.MethodCallExpr, env *Environment) (value.Value, error) {
	receiver, err := i.expression(e.Object, env)
	if err != nil {
		return nil, err
	}
	args := make([]value.Value, 0, len(e.Args)+1)
	args = append(args, receiver)
	for _, arg := range e.Args {
		v, err := i.expression(arg, env)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	name, ok := i.builtins.MethodName(e.Method)
	if !ok {
		return nil, errs.NewAt(errs.TypeError, e.Pos(), "unknown method %q on %s", e.Method, value.TypeName(receiver))
	}
	return i.builtins.Call(name, args)
}

// apply invokes any callable value.
func (i *Interp) apply(callee value.Value, args []value.Value, line int) (value.Value, error) {
	if i.depth >= maxCallDepth {
		return nil, errs.NewAt(errs.RuntimeError, line, "call stack exhausted")
	}
	i.depth++
	defer func() { i.depth-- }()

	switch fn := callee.(type) {
	case *Function:
		scope, err := i.bind(fn.Params, args, fn.Env, fn.String())
		if err != nil {
			return nil, err
		}
		err = i.block(fn.Body, scope)
		if ret, ok := err.(returnSignal); ok {
			return ret.val, nil
		}
		return nil, err

	case *Lambda:
		scope, err := i.bind(fn.Params, args, fn.Env, fn.String())
		if err != nil {
			return nil, err
		}
		return i.expression(fn.Body, scope)

	case *value.Builtin:
		return fn.Fn(args)

	default:
		return nil, errs.NewAt(errs.TypeError, line, "%s is not callable", value.TypeName(callee))
	}
}

// bind evaluates defaults lazily in the closure environment and binds
// arguments into a fresh call scope.
func (i *Interp) bind(params []ast.Parameter, args []value.Value, closure *Environment, name string) (*Environment, error) {
	scope := NewEnvironment(closure)
	for idx, p := range params {
		switch {
		case p.Variadic:
			var rest []value.Value
			if idx < len(args) {
				rest = append(rest, args[idx:]...)
			}
			scope.Define(p.Name, value.NewArray(rest))
		case idx < len(args):
			scope.Define(p.Name, args[idx])
		case p.Default != nil:
			v, err := i.expression(p.Default, scope)
			if err != nil {
				return nil, err
			}
			scope.Define(p.Name, v)
		default:
			return nil, errs.Type("%s: missing argument %q", name, p.Name)
		}
	}
	return scope, nil
}

func checkParams(params []ast.Parameter, line int) error {
	for idx, p := range params {
		if p.Variadic && idx != len(params)-1 {
			return errs.Compile(line, "variadic parameter must be last")
		}
	}
	return nil
}

// importModule loads <name>.flow relative to BaseDir and copies its
// exported bindings into the importing scope.
func (i *Interp) importModule(s *ast.ImportStmt, env *Environment) error {
	if i.modules[s.Path] {
		return nil
	}
	path := filepath.Join(i.BaseDir, s.Path+".flow")
	src, err := os.ReadFile(path)
	if err != nil {
		return errs.NewAt(errs.RuntimeError, s.Pos(), "%v", errors.Wrapf(err, "import %q", s.Path))
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}

	sub := New(i.builtins)
	sub.BaseDir = filepath.Dir(path)
	var exported []string
	for _, stmt := range prog.Statements {
		if exp, ok := stmt.(*ast.ExportStmt); ok {
			if name, ok := declName(exp.Decl); ok {
				exported = append(exported, name)
			}
		}
	}
	if err := sub.Run(prog); err != nil {
		return err
	}
	for _, name := range exported {
		if v, ok := sub.globals.Get(name); ok {
			env.Define(name, v)
		}
	}
	i.modules[s.Path] = true
	return nil
}

func declName(stmt ast.Statement) (string, bool) {
	switch d := stmt.(type) {
	case *ast.LetStmt:
		return d.Name, true
	case *ast.DefStmt:
		return d.Name, true
	default:
		return "", false
	}
}

// Package compiler lowers the AST to bytecode in a single pass.
// Identifiers resolve at compile time to local slots or global names;
// forward jumps are emitted with a sentinel target and patched to the
// absolute instruction index once the destination is known.
package compiler

import (
	"flowlang/internal/ast"
	"flowlang/internal/bytecode"
	"flowlang/internal/errs"
	"flowlang/internal/stdlib"
	"flowlang/internal/value"
)

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
	kindLambda
)

type local struct {
	name  string
	depth int
}

type Compiler struct {
	chunk      *bytecode.Chunk
	kind       funcKind
	locals     []local
	maxLocals  int
	scopeDepth int
	builtins   *stdlib.Registry
	line       int
}

// New returns a compiler for a top-level script. The registry decides
// which call sites compile to CallBuiltin.
func New(builtins *stdlib.Registry) *Compiler {
	return &Compiler{chunk: bytecode.NewChunk(), builtins: builtins}
}

func (c *Compiler) sub(kind funcKind) *Compiler {
	return &Compiler{chunk: bytecode.NewChunk(), kind: kind, scopeDepth: 1, builtins: c.builtins}
}

// Compile lowers a whole program and terminates the chunk with Halt.
func Compile(program *ast.Program, builtins *stdlib.Registry) (*bytecode.Chunk, error) {
	c := New(builtins)
	for _, stmt := range program.Statements {
		if err := c.statement(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(bytecode.Instruction{Op: bytecode.Halt})
	return c.chunk, nil
}

func (c *Compiler) emit(ins bytecode.Instruction) int {
	return c.chunk.Emit(ins, c.line)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emit(bytecode.Instruction{Op: bytecode.LoadConstant, Operand: c.chunk.AddConstant(v)})
}

// emitJump writes op with a sentinel target and returns the
// instruction index for later patching.
func (c *Compiler) emitJump(op bytecode.Opcode) int {
	return c.emit(bytecode.Instruction{Op: op, Operand: 0})
}

// patchJump points the jump at `at` to the next instruction to be
// emitted.
func (c *Compiler) patchJump(at int) {
	c.chunk.Instructions[at].Operand = len(c.chunk.Instructions)
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope drops the scope's names. Slots are frame-resident, so no
// stack cleanup is emitted.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) int {
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth})
	if len(c.locals) > c.maxLocals {
		c.maxLocals = len(c.locals)
	}
	return len(c.locals) - 1
}

// resolveLocal searches innermost-first so shadowing declarations win.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) statement(stmt ast.Statement) error {
	c.line = stmt.Pos()
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if err := c.expression(s.Value); err != nil {
			return err
		}
		if c.scopeDepth == 0 {
			c.emit(bytecode.Instruction{Op: bytecode.StoreGlobal, Str: s.Name})
		} else if slot, ok := c.resolveLocal(s.Name); ok && c.locals[slot].depth == c.scopeDepth {
			// Rebinding in the same scope reuses the slot.
			c.emit(bytecode.Instruction{Op: bytecode.StoreLocal, Operand: slot})
		} else {
			c.emit(bytecode.Instruction{Op: bytecode.StoreLocal, Operand: c.addLocal(s.Name)})
		}
		return nil

	case *ast.DefStmt:
		return c.function(s.Name, s.Params, s.Body)

	case *ast.IfStmt:
		if err := c.expression(s.Condition); err != nil {
			return err
		}
		elseJump := c.emitJump(bytecode.JumpIfFalse)
		if err := c.block(s.Then); err != nil {
			return err
		}
		if len(s.Else) > 0 {
			endJump := c.emitJump(bytecode.Jump)
			c.patchJump(elseJump)
			if err := c.block(s.Else); err != nil {
				return err
			}
			c.patchJump(endJump)
		} else {
			c.patchJump(elseJump)
		}
		return nil

	case *ast.WhileStmt:
		loopStart := len(c.chunk.Instructions)
		if err := c.expression(s.Condition); err != nil {
			return err
		}
		exitJump := c.emitJump(bytecode.JumpIfFalse)
		if err := c.block(s.Body); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.Jump, Operand: loopStart})
		c.patchJump(exitJump)
		return nil

	case *ast.ForStmt:
		return c.forLoop(s)

	case *ast.ShowStmt:
		if err := c.expression(s.Value); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.Print})
		return nil

	case *ast.ReturnStmt:
		if c.kind == kindScript {
			return errs.Compile(s.Pos(), "return outside a function")
		}
		if s.Value == nil {
			c.emit(bytecode.Instruction{Op: bytecode.Return})
			return nil
		}
		if err := c.expression(s.Value); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.ReturnValue})
		return nil

	case *ast.ExprStmt:
		if err := c.expression(s.Expr); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.Pop})
		return nil

	case *ast.ImportStmt:
		return errs.Compile(s.Pos(), "import is not supported in compiled mode")
	case *ast.ExportStmt:
		return errs.Compile(s.Pos(), "export is not supported in compiled mode")
	case *ast.TryStmt:
		return errs.Compile(s.Pos(), "try/catch is not supported in compiled mode")
	default:
		return errs.Compile(c.line, "unknown statement %T", stmt)
	}
}

// block compiles statements at the current depth. if and while bodies
// share the enclosing scope, so a let inside them rebinds rather than
// shadows; only for loops and function bodies introduce scopes.
func (c *Compiler) block(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := c.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// forLoop desugars `for i from a to b` into a counted while loop over
// two frame locals, the visible counter and a hidden bound.
func (c *Compiler) forLoop(s *ast.ForStmt) error {
	c.beginScope()

	if err := c.expression(s.Start); err != nil {
		return err
	}
	varSlot := c.addLocal(s.Variable)
	c.emit(bytecode.Instruction{Op: bytecode.StoreLocal, Operand: varSlot})

	if err := c.expression(s.End); err != nil {
		return err
	}
	endSlot := c.addLocal("__end")
	c.emit(bytecode.Instruction{Op: bytecode.StoreLocal, Operand: endSlot})

	loopStart := len(c.chunk.Instructions)
	c.emit(bytecode.Instruction{Op: bytecode.LoadLocal, Operand: varSlot})
	c.emit(bytecode.Instruction{Op: bytecode.LoadLocal, Operand: endSlot})
	c.emit(bytecode.Instruction{Op: bytecode.Less})
	exitJump := c.emitJump(bytecode.JumpIfFalse)

	if err := c.block(s.Body); err != nil {
		return err
	}

	c.emit(bytecode.Instruction{Op: bytecode.LoadLocal, Operand: varSlot})
	c.emitConstant(int64(1))
	c.emit(bytecode.Instruction{Op: bytecode.Add})
	c.emit(bytecode.Instruction{Op: bytecode.StoreLocal, Operand: varSlot})
	c.emit(bytecode.Instruction{Op: bytecode.Jump, Operand: loopStart})

	c.patchJump(exitJump)
	c.endScope()
	return nil
}

func (c *Compiler) expression(expr ast.Expression) error {
	c.line = expr.Pos()
	switch e := expr.(type) {
	case *ast.IntegerLit:
		c.emitConstant(e.Value)
	case *ast.BigIntegerLit:
		c.emitConstant(e.Value)
	case *ast.FloatLit:
		c.emitConstant(e.Value)
	case *ast.StringLit:
		c.emitConstant(e.Value)
	case *ast.BooleanLit:
		c.emitConstant(e.Value)
	case *ast.NullLit:
		c.emitConstant(nil)

	case *ast.Identifier:
		if slot, ok := c.resolveLocal(e.Name); ok {
			c.emit(bytecode.Instruction{Op: bytecode.LoadLocal, Operand: slot})
		} else {
			c.emit(bytecode.Instruction{Op: bytecode.LoadGlobal, Str: e.Name})
		}

	case *ast.BinaryExpr:
		return c.binary(e)

	case *ast.UnaryExpr:
		if err := c.expression(e.Operand); err != nil {
			return err
		}
		if e.Operator == ast.OpNot {
			c.emit(bytecode.Instruction{Op: bytecode.Not})
		} else {
			c.emit(bytecode.Instruction{Op: bytecode.Negate})
		}

	case *ast.CallExpr:
		return c.call(e)

	case *ast.MethodCallExpr:
		if err := c.expression(e.Object); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := c.expression(arg); err != nil {
				return err
			}
		}
		c.emit(bytecode.Instruction{Op: bytecode.CallMethod, Operand: len(e.Args), Str: e.Method})

	case *ast.ArrayLit:
		for _, el := range e.Elements {
			if err := c.expression(el); err != nil {
				return err
			}
		}
		c.emit(bytecode.Instruction{Op: bytecode.NewArray, Operand: len(e.Elements)})

	case *ast.ObjectLit:
		for _, f := range e.Fields {
			c.emitConstant(f.Key)
			if err := c.expression(f.Value); err != nil {
				return err
			}
		}
		c.emit(bytecode.Instruction{Op: bytecode.NewObject, Operand: len(e.Fields)})

	case *ast.IndexExpr:
		if err := c.expression(e.Object); err != nil {
			return err
		}
		if err := c.expression(e.Index); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.GetIndex})

	case *ast.PropertyExpr:
		if err := c.expression(e.Object); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.GetProperty, Str: e.Property})

	case *ast.LambdaExpr:
		return c.lambda(e)

	default:
		return errs.Compile(c.line, "unknown expression %T", expr)
	}
	return nil
}

// binary compiles and/or with short-circuit jumps; the left value is
// duplicated so the short-circuit path leaves it as the result.
func (c *Compiler) binary(e *ast.BinaryExpr) error {
	switch e.Operator {
	case ast.OpAnd:
		if err := c.expression(e.Left); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.Duplicate})
		end := c.emitJump(bytecode.JumpIfFalse)
		c.emit(bytecode.Instruction{Op: bytecode.Pop})
		if err := c.expression(e.Right); err != nil {
			return err
		}
		c.patchJump(end)
		return nil
	case ast.OpOr:
		if err := c.expression(e.Left); err != nil {
			return err
		}
		c.emit(bytecode.Instruction{Op: bytecode.Duplicate})
		end := c.emitJump(bytecode.JumpIfTrue)
		c.emit(bytecode.Instruction{Op: bytecode.Pop})
		if err := c.expression(e.Right); err != nil {
			return err
		}
		c.patchJump(end)
		return nil
	}

	if err := c.expression(e.Left); err != nil {
		return err
	}
	if err := c.expression(e.Right); err != nil {
		return err
	}
	ops := map[ast.BinaryOp]bytecode.Opcode{
		ast.OpAdd: bytecode.Add, ast.OpSub: bytecode.Subtract,
		ast.OpMul: bytecode.Multiply, ast.OpDiv: bytecode.Divide,
		ast.OpMod: bytecode.Modulo, ast.OpEqual: bytecode.Equal,
		ast.OpNotEqual: bytecode.NotEqual, ast.OpGreater: bytecode.Greater,
		ast.OpGreaterEqual: bytecode.GreaterEqual, ast.OpLess: bytecode.Less,
		ast.OpLessEqual: bytecode.LessEqual,
	}
	op, ok := ops[e.Operator]
	if !ok {
		return errs.Compile(c.line, "unknown operator %s", e.Operator)
	}
	c.emit(bytecode.Instruction{Op: op})
	return nil
}

// call compiles either a builtin dispatch or a first-class call.
// Builtins receive their argument count as an Integer pushed after the
// arguments; first-class calls push the callee last.
func (c *Compiler) call(e *ast.CallExpr) error {
	for _, arg := range e.Args {
		if err := c.expression(arg); err != nil {
			return err
		}
	}
	if _, isLocal := c.resolveLocal(e.Name); !isLocal && c.builtins.Has(e.Name) {
		c.emitConstant(int64(len(e.Args)))
		c.emit(bytecode.Instruction{Op: bytecode.CallBuiltin, Str: e.Name})
		return nil
	}
	if slot, ok := c.resolveLocal(e.Name); ok {
		c.emit(bytecode.Instruction{Op: bytecode.LoadLocal, Operand: slot})
	} else {
		c.emit(bytecode.Instruction{Op: bytecode.LoadGlobal, Str: e.Name})
	}
	c.emit(bytecode.Instruction{Op: bytecode.Call, Operand: len(e.Args)})
	return nil
}

// literalValue evaluates the restricted expressions allowed as
// parameter defaults in compiled code.
func (c *Compiler) literalValue(expr ast.Expression) (value.Value, error) {
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
	default:
		return nil, errs.Compile(expr.Pos(), "parameter defaults must be literals in compiled mode")
	}
}

func (c *Compiler) params(params []ast.Parameter) ([]bytecode.Param, error) {
	out := make([]bytecode.Param, 0, len(params))
	for i, p := range params {
		bp := bytecode.Param{Name: p.Name, Variadic: p.Variadic}
		if p.Variadic && i != len(params)-1 {
			return nil, errs.Compile(c.line, "variadic parameter must be last")
		}
		if p.Default != nil {
			v, err := c.literalValue(p.Default)
			if err != nil {
				return nil, err
			}
			bp.Default = v
			bp.HasDefault = true
		}
		out = append(out, bp)
	}
	return out, nil
}

func (c *Compiler) function(name string, params []ast.Parameter, body []ast.Statement) error {
	bp, err := c.params(params)
	if err != nil {
		return err
	}

	fc := c.sub(kindFunction)
	for _, p := range params {
		fc.addLocal(p.Name)
	}
	for _, stmt := range body {
		if err := fc.statement(stmt); err != nil {
			return err
		}
	}
	// Implicit null return for bodies that fall off the end.
	fc.emit(bytecode.Instruction{Op: bytecode.Return})

	fn := &bytecode.Function{Name: name, Params: bp, NumLocals: fc.maxLocals, Chunk: fc.chunk}
	idx := c.chunk.AddConstant(fn)
	c.emit(bytecode.Instruction{Op: bytecode.NewFunction, Operand: idx})

	if c.scopeDepth == 0 {
		c.emit(bytecode.Instruction{Op: bytecode.StoreGlobal, Str: name})
	} else {
		c.emit(bytecode.Instruction{Op: bytecode.StoreLocal, Operand: c.addLocal(name)})
	}
	return nil
}

// lambda compiles a single-expression function. The body resolves
// names only against its own parameters and globals; enclosing locals
// are not capturable in compiled code.
func (c *Compiler) lambda(e *ast.LambdaExpr) error {
	bp, err := c.params(e.Params)
	if err != nil {
		return err
	}

	lc := c.sub(kindLambda)
	for _, p := range e.Params {
		lc.addLocal(p.Name)
	}
	if err := lc.expression(e.Body); err != nil {
		return err
	}
	lc.emit(bytecode.Instruction{Op: bytecode.ReturnValue})

	fn := &bytecode.Function{Params: bp, NumLocals: lc.maxLocals, Chunk: lc.chunk}
	idx := c.chunk.AddConstant(fn)
	c.emit(bytecode.Instruction{Op: bytecode.NewClosure, Operand: idx})
	return nil
}

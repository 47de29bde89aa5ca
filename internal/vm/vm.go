// Package vm executes compiled chunks on a value stack. Function calls
// run on an explicit frame stack; locals live in the frame, not on the
// value stack, so loops cannot leak slots.
package vm

import (
	"fmt"

	"flowlang/internal/bytecode"
	"flowlang/internal/errs"
	"flowlang/internal/stdlib"
	"flowlang/internal/value"
)

const maxFrames = 1024

type frame struct {
	fn       *bytecode.Function
	retChunk *bytecode.Chunk
	retIP    int
}

type VM struct {
	chunk    *bytecode.Chunk
	ip       int
	stack    []value.Value
	locals   []value.Value
	globals  map[string]value.Value
	frames   []frame
	saved    [][]value.Value
	builtins *stdlib.Registry
}

func New(builtins *stdlib.Registry) *VM {
	return &VM{
		globals:  make(map[string]value.Value),
		builtins: builtins,
	}
}

// Run executes a chunk to Halt or to the end of its instructions.
func (v *VM) Run(chunk *bytecode.Chunk) error {
	v.chunk = chunk
	v.ip = 0
	for v.ip < len(v.chunk.Instructions) {
		ins := v.chunk.Instructions[v.ip]
		v.ip++
		if err := v.step(ins); err != nil {
			return v.located(err)
		}
		if ins.Op == bytecode.Halt {
			return nil
		}
	}
	return nil
}

// located stamps the current source line onto errors that carry none.
func (v *VM) located(err error) error {
	fe, ok := err.(*errs.FlowError)
	if !ok || fe.Line != 0 {
		return err
	}
	at := v.ip - 1
	if at >= 0 && at < len(v.chunk.Lines) {
		fe.Line = v.chunk.Lines[at]
	}
	return fe
}

func (v *VM) push(val value.Value) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() (value.Value, error) {
	if len(v.stack) == 0 {
		return nil, errs.New(errs.StackUnderflow, "pop from empty stack")
	}
	val := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return val, nil
}

// popN removes the top n values and returns them in push order.
func (v *VM) popN(n int) ([]value.Value, error) {
	if len(v.stack) < n {
		return nil, errs.New(errs.StackUnderflow, "need %d values, have %d", n, len(v.stack))
	}
	vals := make([]value.Value, n)
	copy(vals, v.stack[len(v.stack)-n:])
	v.stack = v.stack[:len(v.stack)-n]
	return vals, nil
}

func (v *VM) setLocal(slot int, val value.Value) {
	for slot >= len(v.locals) {
		v.locals = append(v.locals, nil)
	}
	v.locals[slot] = val
}

func (v *VM) constant(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(v.chunk.Constants) {
		return nil, errs.New(errs.InvalidBytecode, "constant index %d out of range", idx)
	}
	return v.chunk.Constants[idx], nil
}

func (v *VM) step(ins bytecode.Instruction) error {
	switch ins.Op {
	case bytecode.LoadConstant:
		c, err := v.constant(ins.Operand)
		if err != nil {
			return err
		}
		v.push(c)

	case bytecode.LoadLocal:
		if ins.Operand < 0 || ins.Operand >= len(v.locals) {
			return errs.New(errs.InvalidBytecode, "local slot %d out of range", ins.Operand)
		}
		v.push(v.locals[ins.Operand])

	case bytecode.StoreLocal:
		val, err := v.pop()
		if err != nil {
			return err
		}
		v.setLocal(ins.Operand, val)

	case bytecode.LoadGlobal:
		if val, ok := v.globals[ins.Str]; ok {
			v.push(val)
		} else if b, ok := v.builtins.Get(ins.Str); ok {
			v.push(b)
		} else {
			return errs.Undefined(ins.Str)
		}

	case bytecode.StoreGlobal:
		val, err := v.pop()
		if err != nil {
			return err
		}
		v.globals[ins.Str] = val

	case bytecode.Add, bytecode.Subtract, bytecode.Multiply, bytecode.Divide, bytecode.Modulo:
		return v.arithmetic(ins.Op)

	case bytecode.Negate:
		val, err := v.pop()
		if err != nil {
			return err
		}
		out, err := value.Negate(val)
		if err != nil {
			return err
		}
		v.push(out)

	case bytecode.Equal, bytecode.NotEqual:
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		eq := value.Equal(a, b)
		if ins.Op == bytecode.NotEqual {
			eq = !eq
		}
		v.push(eq)

	case bytecode.Less, bytecode.LessEqual, bytecode.Greater, bytecode.GreaterEqual:
		return v.comparison(ins.Op)

	case bytecode.And, bytecode.Or:
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		if ins.Op == bytecode.And {
			v.push(value.IsTruthy(a) && value.IsTruthy(b))
		} else {
			v.push(value.IsTruthy(a) || value.IsTruthy(b))
		}

	case bytecode.Not:
		val, err := v.pop()
		if err != nil {
			return err
		}
		v.push(!value.IsTruthy(val))

	case bytecode.Jump:
		return v.jump(ins.Operand)

	case bytecode.JumpIfFalse:
		cond, err := v.pop()
		if err != nil {
			return err
		}
		if !value.IsTruthy(cond) {
			return v.jump(ins.Operand)
		}

	case bytecode.JumpIfTrue:
		cond, err := v.pop()
		if err != nil {
			return err
		}
		if value.IsTruthy(cond) {
			return v.jump(ins.Operand)
		}

	case bytecode.Call:
		return v.call(ins.Operand)

	case bytecode.Return:
		return v.returnValue(nil)

	case bytecode.ReturnValue:
		result, err := v.pop()
		if err != nil {
			return err
		}
		return v.returnValue(result)

	case bytecode.CallMethod:
		return v.callMethod(ins.Str, ins.Operand)

	case bytecode.CallBuiltin:
		return v.callBuiltin(ins.Str)

	case bytecode.Pop:
		_, err := v.pop()
		return err

	case bytecode.Duplicate:
		if len(v.stack) == 0 {
			return errs.New(errs.StackUnderflow, "duplicate on empty stack")
		}
		v.push(v.stack[len(v.stack)-1])

	case bytecode.Swap:
		if len(v.stack) < 2 {
			return errs.New(errs.StackUnderflow, "swap needs two values")
		}
		n := len(v.stack)
		v.stack[n-1], v.stack[n-2] = v.stack[n-2], v.stack[n-1]

	case bytecode.Print:
		val, err := v.pop()
		if err != nil {
			return err
		}
		fmt.Fprintln(v.builtins.Out, value.ToString(val))

	case bytecode.NewArray:
		elems, err := v.popN(ins.Operand)
		if err != nil {
			return err
		}
		v.push(value.NewArray(elems))

	case bytecode.NewObject:
		pairs, err := v.popN(ins.Operand * 2)
		if err != nil {
			return err
		}
		obj := value.NewObject()
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return errs.New(errs.InvalidBytecode, "object key is %s, not String", value.TypeName(pairs[i]))
			}
			obj.Fields[key] = pairs[i+1]
		}
		v.push(obj)

	case bytecode.GetIndex:
		index, err := v.pop()
		if err != nil {
			return err
		}
		target, err := v.pop()
		if err != nil {
			return err
		}
		out, err := value.Index(target, index)
		if err != nil {
			return err
		}
		v.push(out)

	case bytecode.SetIndex:
		val, err := v.pop()
		if err != nil {
			return err
		}
		index, err := v.pop()
		if err != nil {
			return err
		}
		target, err := v.pop()
		if err != nil {
			return err
		}
		if err := value.SetIndex(target, index, val); err != nil {
			return err
		}
		v.push(val)

	case bytecode.GetProperty:
		target, err := v.pop()
		if err != nil {
			return err
		}
		obj, ok := target.(*value.Object)
		if !ok {
			return errs.Type("cannot read property %q of %s", ins.Str, value.TypeName(target))
		}
		v.push(obj.Fields[ins.Str])

	case bytecode.SetProperty:
		val, err := v.pop()
		if err != nil {
			return err
		}
		target, err := v.pop()
		if err != nil {
			return err
		}
		obj, ok := target.(*value.Object)
		if !ok {
			return errs.Type("cannot set property %q of %s", ins.Str, value.TypeName(target))
		}
		obj.Fields[ins.Str] = val
		v.push(val)

	case bytecode.NewFunction, bytecode.NewClosure:
		c, err := v.constant(ins.Operand)
		if err != nil {
			return err
		}
		fn, ok := c.(*bytecode.Function)
		if !ok {
			return errs.New(errs.InvalidBytecode, "constant %d is %s, not Function", ins.Operand, value.TypeName(c))
		}
		v.push(fn)

	case bytecode.Halt:
		// Run stops after this instruction.

	default:
		return errs.New(errs.InvalidBytecode, "unknown opcode 0x%02X", byte(ins.Op))
	}
	return nil
}

func (v *VM) jump(target int) error {
	if target < 0 || target > len(v.chunk.Instructions) {
		return errs.New(errs.InvalidBytecode, "jump target %d out of range", target)
	}
	v.ip = target
	return nil
}

func (v *VM) arithmetic(op bytecode.Opcode) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	var out value.Value
	switch op {
	case bytecode.Add:
		out, err = value.Add(a, b)
	case bytecode.Subtract:
		out, err = value.Sub(a, b)
	case bytecode.Multiply:
		out, err = value.Mul(a, b)
	case bytecode.Divide:
		out, err = value.Div(a, b)
	case bytecode.Modulo:
		out, err = value.Mod(a, b)
	}
	if err != nil {
		return err
	}
	v.push(out)
	return nil
}

func (v *VM) comparison(op bytecode.Opcode) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	c, err := value.Compare(a, b)
	if err != nil {
		return err
	}
	switch op {
	case bytecode.Less:
		v.push(c < 0)
	case bytecode.LessEqual:
		v.push(c <= 0)
	case bytecode.Greater:
		v.push(c > 0)
	case bytecode.GreaterEqual:
		v.push(c >= 0)
	}
	return nil
}

// call pops the callee, then its arguments, and enters the function's
// chunk on a new frame. Builtin values loaded through globals are
// dispatched directly.
func (v *VM) call(argc int) error {
	callee, err := v.pop()
	if err != nil {
		return err
	}
	args, err := v.popN(argc)
	if err != nil {
		return err
	}
	switch fn := callee.(type) {
	case *bytecode.Function:
		return v.enter(fn, args)
	case *value.Builtin:
		out, err := fn.Fn(args)
		if err != nil {
			return err
		}
		v.push(out)
		return nil
	default:
		return errs.Type("%s is not callable", value.TypeName(callee))
	}
}

// enter binds arguments to the function's parameter slots and switches
// execution to its chunk.
func (v *VM) enter(fn *bytecode.Function, args []value.Value) error {
	if len(v.frames) >= maxFrames {
		return errs.Runtime("call stack exhausted")
	}
	locals := make([]value.Value, fn.NumLocals)
	for i, p := range fn.Params {
		switch {
		case p.Variadic:
			var rest []value.Value
			if i < len(args) {
				rest = append(rest, args[i:]...)
			}
			locals[i] = value.NewArray(rest)
		case i < len(args):
			locals[i] = args[i]
		case p.HasDefault:
			locals[i] = p.Default
		default:
			return errs.Type("%s: missing argument %q", fn, p.Name)
		}
	}

	v.frames = append(v.frames, frame{fn: fn, retChunk: v.chunk, retIP: v.ip})
	v.saved = append(v.saved, v.locals)
	v.locals = locals
	v.chunk = fn.Chunk
	v.ip = 0
	return nil
}

// returnValue pops the current frame and pushes the result for the
// caller.
func (v *VM) returnValue(result value.Value) error {
	if len(v.frames) == 0 {
		return errs.Runtime("return outside a function")
	}
	f := v.frames[len(v.frames)-1]
	v.frames = v.frames[:len(v.frames)-1]
	v.locals = v.saved[len(v.saved)-1]
	v.saved = v.saved[:len(v.saved)-1]
	v.chunk = f.retChunk
	v.ip = f.retIP
	v.push(result)
	return nil
}

// callBuiltin pops the argument count pushed by the compiler, then the
// arguments themselves.
func (v *VM) callBuiltin(name string) error {
	count, err := v.pop()
	if err != nil {
		return err
	}
	argc, ok := count.(int64)
	if !ok {
		return errs.New(errs.InvalidBytecode, "builtin argument count is %s, not Integer", value.TypeName(count))
	}
	args, err := v.popN(int(argc))
	if err != nil {
		return err
	}
	out, err := v.builtins.Call(name, args)
	if err != nil {
		return err
	}
	v.push(out)
	return nil
}

func (v *VM) callMethod(method string, argc int) error {
	args, err := v.popN(argc)
	if err != nil {
		return err
	}
	receiver, err := v.pop()
	if err != nil {
		return err
	}
	name, ok := v.builtins.MethodName(method)
	if !ok {
		return errs.Type("unknown method %q on %s", method, value.TypeName(receiver))
	}
	out, err := v.builtins.Call(name, append([]value.Value{receiver}, args...))
	if err != nil {
		return err
	}
	v.push(out)
	return nil
}


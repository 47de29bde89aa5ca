// Package bytecode defines the instruction set, the compiled chunk
// representation and the binary serialization format.
package bytecode

import (
	"fmt"
	"strings"

	"flowlang/internal/value"
)

// Chunk is a compiled unit: an instruction sequence with its constant
// pool. Lines parallels Instructions for diagnostics.
type Chunk struct {
	Instructions []Instruction
	Constants    []value.Value
	Lines        []int
}

func NewChunk() *Chunk {
	return &Chunk{}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(ins Instruction, line int) int {
	c.Instructions = append(c.Instructions, ins)
	c.Lines = append(c.Lines, line)
	return len(c.Instructions) - 1
}

// AddConstant interns v into the pool. Scalar constants are deduped by
// structural equality; compound values always get a fresh slot.
func (c *Chunk) AddConstant(v value.Value) int {
	if isScalar(v) {
		for i, existing := range c.Constants {
			if isScalar(existing) && value.Equal(existing, v) {
				return i
			}
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

func isScalar(v value.Value) bool {
	switch v.(type) {
	case nil, int64, float64, string, bool:
		return true
	}
	return false
}

// Param is a declared function parameter. Defaults are restricted to
// literal values in compiled code, so the evaluated default is stored
// directly.
type Param struct {
	Name       string
	Default    value.Value
	HasDefault bool
	Variadic   bool
}

// Function is a compiled function or lambda with its own chunk.
type Function struct {
	Name      string
	Params    []Param
	NumLocals int
	Chunk     *Chunk
}

func (f *Function) Arity() int { return len(f.Params) }

func (f *Function) String() string {
	if f.Name == "" {
		return "<lambda>"
	}
	return "<function " + f.Name + ">"
}

func (f *Function) TypeName() string { return "Function" }

// Disassemble renders the chunk for the disasm command and for tests.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for i, ins := range c.Instructions {
		fmt.Fprintf(&sb, "%04d %s", i, ins.Op)
		if ins.Op.HasName() {
			fmt.Fprintf(&sb, " %q", ins.Str)
		}
		if ins.Op.HasOperand() {
			fmt.Fprintf(&sb, " %d", ins.Operand)
			if ins.Op == LoadConstant && ins.Operand < len(c.Constants) {
				fmt.Fprintf(&sb, " (%s)", value.ToString(c.Constants[ins.Operand]))
			}
		}
		sb.WriteByte('\n')
	}
	for _, cst := range c.Constants {
		if fn, ok := cst.(*Function); ok {
			sb.WriteString(fn.Chunk.Disassemble(fn.String()))
		}
	}
	return sb.String()
}

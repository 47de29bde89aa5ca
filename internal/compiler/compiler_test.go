package compiler

import (
	"strings"
	"testing"

	"flowlang/internal/bytecode"
	"flowlang/internal/errs"
	"flowlang/internal/parser"
	"flowlang/internal/stdlib"
)

func compile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	chunk, err := tryCompile(src)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return chunk
}

func tryCompile(src string) (*bytecode.Chunk, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return Compile(prog, stdlib.New())
}

func ops(chunk *bytecode.Chunk) []bytecode.Opcode {
	out := make([]bytecode.Opcode, len(chunk.Instructions))
	for i, ins := range chunk.Instructions {
		out[i] = ins.Op
	}
	return out
}

func find(chunk *bytecode.Chunk, op bytecode.Opcode) (int, bool) {
	for i, ins := range chunk.Instructions {
		if ins.Op == op {
			return i, true
		}
	}
	return 0, false
}

func TestJumpTargetsAreAbsolute(t *testing.T) {
	chunk := compile(t, "if false then\nshow 1\nend\nshow 2")
	at, ok := find(chunk, bytecode.JumpIfFalse)
	if !ok {
		t.Fatal("no conditional jump emitted")
	}
	target := chunk.Instructions[at].Operand
	if target <= at || target > len(chunk.Instructions) {
		t.Fatalf("jump target %d not a forward absolute index (jump at %d, %d instructions)",
			target, at, len(chunk.Instructions))
	}
	// the landing instruction is the show after the skipped block
	landed := chunk.Instructions[target]
	if landed.Op != bytecode.LoadConstant {
		t.Fatalf("jump lands on %s", landed.Op)
	}
}

func TestWhileLoopJumpsBack(t *testing.T) {
	chunk := compile(t, "let i be 0\nwhile i < 3 do\nlet i be i + 1\nend")
	exit, ok := find(chunk, bytecode.JumpIfFalse)
	if !ok {
		t.Fatal("no exit jump")
	}
	back, ok := find(chunk, bytecode.Jump)
	if !ok {
		t.Fatal("no back jump")
	}
	loopStart := chunk.Instructions[back].Operand
	if loopStart >= back {
		t.Fatalf("back jump target %d is not behind %d", loopStart, back)
	}
	if chunk.Instructions[exit].Operand != back+1 {
		t.Fatalf("exit jump target %d, want %d", chunk.Instructions[exit].Operand, back+1)
	}
}

func TestTopLevelLetIsGlobal(t *testing.T) {
	chunk := compile(t, "let x be 1")
	if _, ok := find(chunk, bytecode.StoreGlobal); !ok {
		t.Fatalf("ops = %v", ops(chunk))
	}
	if _, ok := find(chunk, bytecode.StoreLocal); ok {
		t.Fatal("top-level let produced a local store")
	}
}

func TestFunctionLetIsLocal(t *testing.T) {
	chunk := compile(t, "def f do\nlet x be 1\nreturn x\nend")
	var fn *bytecode.Function
	for _, cst := range chunk.Constants {
		if f, ok := cst.(*bytecode.Function); ok {
			fn = f
		}
	}
	if fn == nil {
		t.Fatal("no function constant")
	}
	if _, ok := find(fn.Chunk, bytecode.StoreLocal); !ok {
		t.Fatalf("function ops = %v", ops(fn.Chunk))
	}
	if _, ok := find(fn.Chunk, bytecode.StoreGlobal); ok {
		t.Fatal("function let produced a global store")
	}
	if fn.NumLocals != 1 {
		t.Fatalf("NumLocals = %d", fn.NumLocals)
	}
}

func TestParamSlotsCountTowardLocals(t *testing.T) {
	chunk := compile(t, "def f with a, b do\nlet c be a + b\nreturn c\nend")
	for _, cst := range chunk.Constants {
		if fn, ok := cst.(*bytecode.Function); ok {
			if fn.NumLocals != 3 {
				t.Fatalf("NumLocals = %d, want 3", fn.NumLocals)
			}
			return
		}
	}
	t.Fatal("no function constant")
}

func TestBuiltinCallEmission(t *testing.T) {
	chunk := compile(t, "len(\"abc\")")
	if _, ok := find(chunk, bytecode.CallBuiltin); !ok {
		t.Fatalf("ops = %v", ops(chunk))
	}
	if _, ok := find(chunk, bytecode.Call); ok {
		t.Fatal("builtin went through the generic call path")
	}

	// unknown names compile to a global load and a generic call
	chunk = compile(t, "f(1)")
	if _, ok := find(chunk, bytecode.Call); !ok {
		t.Fatalf("ops = %v", ops(chunk))
	}
	if _, ok := find(chunk, bytecode.CallBuiltin); ok {
		t.Fatal("unknown name compiled as builtin")
	}
}

func TestLocalShadowsBuiltin(t *testing.T) {
	chunk := compile(t, "def f with len do\nreturn len(1)\nend")
	for _, cst := range chunk.Constants {
		if fn, ok := cst.(*bytecode.Function); ok {
			if _, found := find(fn.Chunk, bytecode.CallBuiltin); found {
				t.Fatal("parameter did not shadow the builtin")
			}
			if _, found := find(fn.Chunk, bytecode.Call); !found {
				t.Fatalf("function ops = %v", ops(fn.Chunk))
			}
			return
		}
	}
	t.Fatal("no function constant")
}

func TestShortCircuitShape(t *testing.T) {
	chunk := compile(t, "show 1 and 2")
	if _, ok := find(chunk, bytecode.Duplicate); !ok {
		t.Fatalf("ops = %v", ops(chunk))
	}
	if _, ok := find(chunk, bytecode.JumpIfFalse); !ok {
		t.Fatal("and has no conditional jump")
	}
	if _, ok := find(chunk, bytecode.Pop); !ok {
		t.Fatal("and does not drop the duplicated left value")
	}

	chunk = compile(t, "show 1 or 2")
	if _, ok := find(chunk, bytecode.JumpIfTrue); !ok {
		t.Fatalf("ops = %v", ops(chunk))
	}
}

func TestLambdaCompilesToClosure(t *testing.T) {
	chunk := compile(t, "let f be (a) => a + 1")
	if _, ok := find(chunk, bytecode.NewClosure); !ok {
		t.Fatalf("ops = %v", ops(chunk))
	}
	for _, cst := range chunk.Constants {
		if fn, ok := cst.(*bytecode.Function); ok {
			last := fn.Chunk.Instructions[len(fn.Chunk.Instructions)-1]
			if last.Op != bytecode.ReturnValue {
				t.Fatalf("lambda ends with %s", last.Op)
			}
			return
		}
	}
	t.Fatal("no function constant")
}

func TestImplicitNullReturn(t *testing.T) {
	chunk := compile(t, "def f do\nshow 1\nend")
	for _, cst := range chunk.Constants {
		if fn, ok := cst.(*bytecode.Function); ok {
			last := fn.Chunk.Instructions[len(fn.Chunk.Instructions)-1]
			if last.Op != bytecode.Return {
				t.Fatalf("function ends with %s", last.Op)
			}
			return
		}
	}
	t.Fatal("no function constant")
}

func TestChunkEndsWithHalt(t *testing.T) {
	chunk := compile(t, "show 1")
	last := chunk.Instructions[len(chunk.Instructions)-1]
	if last.Op != bytecode.Halt {
		t.Fatalf("chunk ends with %s", last.Op)
	}
}

func TestCompileErrors(t *testing.T) {
	bad := map[string]string{
		"return 1":                              "return outside",
		"import utils":                          "import",
		"export let x be 1":                     "export",
		"try\nshow 1\ncatch e\nshow e\nend":     "try/catch",
		"def f with a = [1] do\nreturn a\nend":  "defaults must be literals",
		"def f with ...a, b do\nreturn b\nend":  "variadic parameter must be last",
	}
	for src, want := range bad {
		_, err := tryCompile(src)
		if !errs.IsKind(err, errs.CompileError) {
			t.Errorf("tryCompile(%q) = %v, want compile error", src, err)
			continue
		}
		if !strings.Contains(err.Error(), want) {
			t.Errorf("tryCompile(%q) error %q does not mention %q", src, err, want)
		}
	}
}

func TestDisassemblyMentionsNestedFunctions(t *testing.T) {
	chunk := compile(t, "def add with a, b do\nreturn a + b\nend")
	text := chunk.Disassemble("main")
	if !strings.Contains(text, "<function add>") {
		t.Fatalf("disassembly:\n%s", text)
	}
}

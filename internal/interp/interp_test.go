package interp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"flowlang/internal/errs"
	"flowlang/internal/parser"
	"flowlang/internal/stdlib"
)

func run(t *testing.T, src string) string {
	t.Helper()
	out, err := tryRun(src, ".")
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return out
}

func tryRun(src, baseDir string) (string, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return "", err
	}
	builtins := stdlib.New()
	var buf bytes.Buffer
	builtins.Out = &buf
	i := New(builtins)
	i.BaseDir = baseDir
	if err := i.Run(prog); err != nil {
		return buf.String(), err
	}
	return buf.String(), nil
}

func TestShowAndArithmetic(t *testing.T) {
	if got := run(t, "show 1 + 2 * 3"); got != "7\n" {
		t.Fatalf("got %q", got)
	}
	if got := run(t, "show 9223372036854775807 + 1"); got != "9223372036854775808\n" {
		t.Fatalf("got %q", got)
	}
	if got := run(t, "show 7 / 2"); got != "3.5\n" {
		t.Fatalf("got %q", got)
	}
	_, err := tryRun("show 1 / 0", ".")
	if !errs.IsKind(err, errs.DivisionByZero) {
		t.Fatalf("err = %v", err)
	}
}

func TestControlFlow(t *testing.T) {
	src := "let x be 3\nif x > 2 then\nshow \"big\"\nelse\nshow \"small\"\nend"
	if got := run(t, src); got != "big\n" {
		t.Fatalf("got %q", got)
	}

	src = "let sum be 0\nfor i from 1 to 4 do\nlet sum be sum + i\nend\nshow sum"
	if got := run(t, src); got != "6\n" {
		t.Fatalf("got %q", got)
	}

	src = "let n be 0\nwhile n < 10 do\nlet n be n + 3\nend\nshow n"
	if got := run(t, src); got != "12\n" {
		t.Fatalf("got %q", got)
	}
}

func TestForLoopVariableScoped(t *testing.T) {
	_, err := tryRun("for i from 0 to 3 do\nshow i\nend\nshow i", ".")
	if !errs.IsKind(err, errs.UndefinedName) {
		t.Fatalf("err = %v", err)
	}
}

func TestFunctionsAndRecursion(t *testing.T) {
	src := "def fact with n do\nif n < 2 then\nreturn 1\nend\nreturn n * fact(n - 1)\nend\nshow fact(25)"
	if got := run(t, src); got != "15511210043330985984000000\n" {
		t.Fatalf("got %q", got)
	}
}

func TestClosuresCaptureEnvironment(t *testing.T) {
	src := "def make with n do\nreturn (x) => x + n\nend\nlet add2 be make(2)\nshow add2(3)"
	if got := run(t, src); got != "5\n" {
		t.Fatalf("got %q", got)
	}
}

func TestLocalShadowsGlobal(t *testing.T) {
	src := "let x be 1\ndef f do\nlet x be 99\nreturn x\nend\nshow f()\nshow x"
	if got := run(t, src); got != "99\n1\n" {
		t.Fatalf("got %q", got)
	}
}

func TestUserDefShadowsBuiltin(t *testing.T) {
	src := "def len with x do\nreturn 99\nend\nshow len(\"abc\")"
	if got := run(t, src); got != "99\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDefaultsEvaluateInScope(t *testing.T) {
	// a later default can reference an earlier parameter
	src := "def f with a, b = a do\nreturn b\nend\nshow f(7)"
	if got := run(t, src); got != "7\n" {
		t.Fatalf("got %q", got)
	}

	src = "def f with items = [] do\nreturn len(items)\nend\nshow f()"
	if got := run(t, src); got != "0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestVariadic(t *testing.T) {
	src := "def count with ...xs do\nreturn len(xs)\nend\nshow count(1, 2, 3)"
	if got := run(t, src); got != "3\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTryCatch(t *testing.T) {
	src := "try\nshow 1 / 0\ncatch e\nshow e\nend\nshow \"after\""
	got := run(t, src)
	if got != "division by zero\nafter\n" {
		t.Fatalf("got %q", got)
	}

	// an uncaught body completes normally
	src = "try\nshow \"ok\"\ncatch e\nshow \"caught\"\nend"
	if got := run(t, src); got != "ok\n" {
		t.Fatalf("got %q", got)
	}

	// return passes through try untouched
	src = "def f do\ntry\nreturn 5\ncatch e\nreturn 0\nend\nend\nshow f()"
	if got := run(t, src); got != "5\n" {
		t.Fatalf("got %q", got)
	}
}

func TestCatchesRuntimeErrorsFromBuiltins(t *testing.T) {
	src := "try\nshow substring(\"hi\", 0, 99)\ncatch e\nshow \"caught\"\nend"
	if got := run(t, src); got != "caught\n" {
		t.Fatalf("got %q", got)
	}
}

func TestImportExports(t *testing.T) {
	dir := t.TempDir()
	module := "export def double with x do\nreturn x * 2\nend\nexport let answer be 42\nlet hidden be 7\n"
	if err := os.WriteFile(filepath.Join(dir, "utils.flow"), []byte(module), 0o644); err != nil {
		t.Fatal(err)
	}

	src := "import utils\nshow double(21)\nshow answer"
	got, err := tryRun(src, dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != "42\n42\n" {
		t.Fatalf("got %q", got)
	}

	// unexported names stay private
	_, err = tryRun("import utils\nshow hidden", dir)
	if !errs.IsKind(err, errs.UndefinedName) {
		t.Fatalf("err = %v", err)
	}

	// a missing module is a runtime error
	_, err = tryRun("import missing", dir)
	if !errs.IsKind(err, errs.RuntimeError) {
		t.Fatalf("err = %v", err)
	}
}

func TestExportOutsideModule(t *testing.T) {
	src := "export def f do\nreturn 1\nend\nshow f()"
	if got := run(t, src); got != "1\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTopLevelReturnRejected(t *testing.T) {
	_, err := tryRun("return 1", ".")
	if !errs.IsKind(err, errs.CompileError) {
		t.Fatalf("err = %v", err)
	}
}

func TestMethodCallsAndIndexing(t *testing.T) {
	if got := run(t, "show [3, 1, 2].sort()"); got != "[1, 2, 3]\n" {
		t.Fatalf("got %q", got)
	}
	if got := run(t, "let o be {a: 1, b: 2}\nshow o.keys()"); got != "[a, b]\n" {
		t.Fatalf("got %q", got)
	}
	if got := run(t, "let a be [10, 20]\nshow a[0]"); got != "10\n" {
		t.Fatalf("got %q", got)
	}
	_, err := tryRun("let a be [1]\nshow a[9]", ".")
	if !errs.IsKind(err, errs.IndexOutOfBounds) {
		t.Fatalf("err = %v", err)
	}
}

func TestShortCircuit(t *testing.T) {
	src := "let hits be []\nlet a be false and array_push(hits, 1)\nshow len(hits)\nshow a"
	if got := run(t, src); got != "0\nfalse\n" {
		t.Fatalf("got %q", got)
	}
	if got := run(t, "show 2 or boom()"); got != "2\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFirstClassFunctions(t *testing.T) {
	src := "def twice with f, x do\nreturn f(f(x))\nend\nshow twice((n) => n + 1, 5)"
	if got := run(t, src); got != "7\n" {
		t.Fatalf("got %q", got)
	}
}

func TestBuiltinAsValue(t *testing.T) {
	src := "let f be upper\nshow f(\"abc\")"
	if got := run(t, src); got != "ABC\n" {
		t.Fatalf("got %q", got)
	}
}

func TestCallDepthLimit(t *testing.T) {
	_, err := tryRun("def f do\nreturn f()\nend\nf()", ".")
	if !errs.IsKind(err, errs.RuntimeError) {
		t.Fatalf("err = %v", err)
	}
}

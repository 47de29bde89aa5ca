package parser

import (
	"testing"

	"flowlang/internal/ast"
	"flowlang/internal/errs"
)

func parseOne(t *testing.T, src string) ast.Statement {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("parse %q: got %d statements", src, len(prog.Statements))
	}
	return prog.Statements[0]
}

func TestLetStatement(t *testing.T) {
	stmt := parseOne(t, "let x be 1 + 2 * 3")
	let, ok := stmt.(*ast.LetStmt)
	if !ok {
		t.Fatalf("got %T", stmt)
	}
	if let.Name != "x" {
		t.Fatalf("name = %q", let.Name)
	}
	// precedence: 1 + (2 * 3)
	bin := let.Value.(*ast.BinaryExpr)
	if bin.Operator != ast.OpAdd {
		t.Fatalf("top operator = %v", bin.Operator)
	}
	right := bin.Right.(*ast.BinaryExpr)
	if right.Operator != ast.OpMul {
		t.Fatalf("right operator = %v", right.Operator)
	}
}

func TestLeftAssociativity(t *testing.T) {
	stmt := parseOne(t, "show 10 - 4 - 3")
	bin := stmt.(*ast.ShowStmt).Value.(*ast.BinaryExpr)
	// (10 - 4) - 3
	if bin.Operator != ast.OpSub {
		t.Fatalf("top = %v", bin.Operator)
	}
	inner := bin.Left.(*ast.BinaryExpr)
	if inner.Left.(*ast.IntegerLit).Value != 10 || inner.Right.(*ast.IntegerLit).Value != 4 {
		t.Fatal("grouping is not left-associative")
	}
	if bin.Right.(*ast.IntegerLit).Value != 3 {
		t.Fatal("trailing operand wrong")
	}
}

func TestBigIntegerLiteral(t *testing.T) {
	stmt := parseOne(t, "show 99999999999999999999")
	lit, ok := stmt.(*ast.ShowStmt).Value.(*ast.BigIntegerLit)
	if !ok {
		t.Fatalf("got %T", stmt.(*ast.ShowStmt).Value)
	}
	if lit.Value.String() != "99999999999999999999" {
		t.Fatalf("value = %s", lit.Value)
	}
}

func TestFunctionDeclaration(t *testing.T) {
	src := "def add with a, b = 10, ...rest do\nreturn a + b\nend"
	def := parseOne(t, src).(*ast.DefStmt)
	if def.Name != "add" {
		t.Fatalf("name = %q", def.Name)
	}
	if len(def.Params) != 3 {
		t.Fatalf("params = %d", len(def.Params))
	}
	if def.Params[0].Default != nil || def.Params[0].Variadic {
		t.Fatal("plain parameter mis-parsed")
	}
	if def.Params[1].Default == nil {
		t.Fatal("default parameter lost its default")
	}
	if !def.Params[2].Variadic || def.Params[2].Name != "rest" {
		t.Fatal("variadic parameter mis-parsed")
	}
	if len(def.Body) != 1 {
		t.Fatalf("body = %d statements", len(def.Body))
	}
	ret := def.Body[0].(*ast.ReturnStmt)
	if ret.Value == nil {
		t.Fatal("return value lost")
	}
}

func TestBareReturn(t *testing.T) {
	src := "def f do\nreturn\nend"
	def := parseOne(t, src).(*ast.DefStmt)
	if def.Body[0].(*ast.ReturnStmt).Value != nil {
		t.Fatal("bare return gained a value")
	}
}

func TestIfElseChain(t *testing.T) {
	src := "if a then\nshow 1\nelse if b then\nshow 2\nelse\nshow 3\nend"
	ifs := parseOne(t, src).(*ast.IfStmt)
	if len(ifs.Then) != 1 {
		t.Fatalf("then = %d", len(ifs.Then))
	}
	if len(ifs.Else) != 1 {
		t.Fatalf("else = %d", len(ifs.Else))
	}
	nested, ok := ifs.Else[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("else branch is %T", ifs.Else[0])
	}
	if len(nested.Then) != 1 || len(nested.Else) != 1 {
		t.Fatal("nested if branches wrong")
	}
}

func TestWhileAndFor(t *testing.T) {
	w := parseOne(t, "while x < 10 do\nlet x be x + 1\nend").(*ast.WhileStmt)
	if len(w.Body) != 1 {
		t.Fatalf("while body = %d", len(w.Body))
	}

	f := parseOne(t, "for i from 0 to 10 do\nshow i\nend").(*ast.ForStmt)
	if f.Variable != "i" {
		t.Fatalf("loop variable = %q", f.Variable)
	}
	if f.Start.(*ast.IntegerLit).Value != 0 || f.End.(*ast.IntegerLit).Value != 10 {
		t.Fatal("range bounds wrong")
	}
}

func TestCallForms(t *testing.T) {
	call := parseOne(t, "f(1, 2)").(*ast.ExprStmt).Expr.(*ast.CallExpr)
	if call.Name != "f" || len(call.Args) != 2 {
		t.Fatalf("call = %s/%d", call.Name, len(call.Args))
	}

	mc := parseOne(t, "obj.update(1)").(*ast.ExprStmt).Expr.(*ast.MethodCallExpr)
	if mc.Method != "update" || len(mc.Args) != 1 {
		t.Fatalf("method call = %s/%d", mc.Method, len(mc.Args))
	}

	prop := parseOne(t, "show obj.field").(*ast.ShowStmt).Value.(*ast.PropertyExpr)
	if prop.Property != "field" {
		t.Fatalf("property = %q", prop.Property)
	}

	idx := parseOne(t, "show arr[0]").(*ast.ShowStmt).Value.(*ast.IndexExpr)
	if idx.Index.(*ast.IntegerLit).Value != 0 {
		t.Fatal("index wrong")
	}

	// chains: a[0].b.c(1)
	expr := parseOne(t, "a[0].b.c(1)").(*ast.ExprStmt).Expr
	outer, ok := expr.(*ast.MethodCallExpr)
	if !ok {
		t.Fatalf("chain tail is %T", expr)
	}
	if outer.Method != "c" {
		t.Fatalf("chain method = %q", outer.Method)
	}
	if _, ok := outer.Object.(*ast.PropertyExpr); !ok {
		t.Fatalf("chain object is %T", outer.Object)
	}
}

func TestCallResultNotCallable(t *testing.T) {
	_, err := Parse("f(1)(2)")
	if !errs.IsKind(err, errs.SyntaxError) {
		t.Fatalf("err = %v", err)
	}
}

func TestLambda(t *testing.T) {
	lam := parseOne(t, "let f be (a, b) => a + b").(*ast.LetStmt).Value.(*ast.LambdaExpr)
	if len(lam.Params) != 2 {
		t.Fatalf("params = %d", len(lam.Params))
	}
	if _, ok := lam.Body.(*ast.BinaryExpr); !ok {
		t.Fatalf("body is %T", lam.Body)
	}

	// empty parameter list
	lam = parseOne(t, "let g be () => 42").(*ast.LetStmt).Value.(*ast.LambdaExpr)
	if len(lam.Params) != 0 {
		t.Fatalf("params = %d", len(lam.Params))
	}

	// a parenthesized expression is not a lambda
	stmt := parseOne(t, "show (1 + 2)")
	if _, ok := stmt.(*ast.ShowStmt).Value.(*ast.BinaryExpr); !ok {
		t.Fatalf("grouping parsed as %T", stmt.(*ast.ShowStmt).Value)
	}
}

func TestArrayAndObjectLiterals(t *testing.T) {
	arr := parseOne(t, "let a be [1, 2, 3]").(*ast.LetStmt).Value.(*ast.ArrayLit)
	if len(arr.Elements) != 3 {
		t.Fatalf("elements = %d", len(arr.Elements))
	}

	// newlines are allowed inside literals
	src := "let a be [\n1,\n2,\n3\n]"
	arr = parseOne(t, src).(*ast.LetStmt).Value.(*ast.ArrayLit)
	if len(arr.Elements) != 3 {
		t.Fatalf("multiline elements = %d", len(arr.Elements))
	}

	obj := parseOne(t, `let o be {name: "x", "age": 3}`).(*ast.LetStmt).Value.(*ast.ObjectLit)
	if len(obj.Fields) != 2 {
		t.Fatalf("fields = %d", len(obj.Fields))
	}
	if obj.Fields[0].Key != "name" || obj.Fields[1].Key != "age" {
		t.Fatalf("keys = %v, %v", obj.Fields[0].Key, obj.Fields[1].Key)
	}
}

func TestTryCatch(t *testing.T) {
	src := "try\nshow risky()\ncatch e\nshow e\nend"
	try := parseOne(t, src).(*ast.TryStmt)
	if try.CatchVar != "e" {
		t.Fatalf("catch variable = %q", try.CatchVar)
	}
	if len(try.Body) != 1 || len(try.Catch) != 1 {
		t.Fatal("try/catch blocks wrong")
	}
}

func TestImportExport(t *testing.T) {
	imp := parseOne(t, "import utils").(*ast.ImportStmt)
	if imp.Path != "utils" {
		t.Fatalf("import path = %q", imp.Path)
	}

	exp := parseOne(t, "export def f do\nreturn 1\nend").(*ast.ExportStmt)
	if _, ok := exp.Decl.(*ast.DefStmt); !ok {
		t.Fatalf("export wraps %T", exp.Decl)
	}
}

func TestUnaryOperators(t *testing.T) {
	neg := parseOne(t, "show -x").(*ast.ShowStmt).Value.(*ast.UnaryExpr)
	if neg.Operator != ast.OpNeg {
		t.Fatalf("operator = %v", neg.Operator)
	}
	not := parseOne(t, "show not a and b").(*ast.ShowStmt).Value.(*ast.BinaryExpr)
	// not binds tighter than and
	if not.Operator != ast.OpAnd {
		t.Fatalf("top = %v", not.Operator)
	}
	if _, ok := not.Left.(*ast.UnaryExpr); !ok {
		t.Fatalf("left is %T", not.Left)
	}
}

func TestSyntaxErrors(t *testing.T) {
	bad := []string{
		"let be 1",
		"let x 1",
		"if x\nshow 1\nend",
		"while x do show 1 end",
		"def do\nend",
		"for i from 1 do\nend",
		"show [1, 2",
		"let o be {1: 2}",
		"show 1 show 2",
	}
	for _, src := range bad {
		if _, err := Parse(src); !errs.IsKind(err, errs.SyntaxError) {
			t.Errorf("Parse(%q) error = %v, want syntax error", src, err)
		}
	}
}

func TestLineTracking(t *testing.T) {
	prog, err := Parse("show 1\n\nshow 2")
	if err != nil {
		t.Fatal(err)
	}
	if prog.Statements[0].Pos() != 1 || prog.Statements[1].Pos() != 3 {
		t.Fatalf("lines = %d, %d", prog.Statements[0].Pos(), prog.Statements[1].Pos())
	}
}

package lexer

import "testing"

func types(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestBasicStatement(t *testing.T) {
	got := types(t, "let x be 42")
	want := []TokenType{LET, IDENT, BE, INTEGER, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIntegerOverflowBecomesBigInteger(t *testing.T) {
	toks, err := Tokenize("9223372036854775808")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != BIGINTEGER {
		t.Fatalf("got %v", toks[0].Type)
	}
	if toks[0].Big.String() != "9223372036854775808" {
		t.Errorf("value %s", toks[0].Big)
	}

	toks, _ = Tokenize("9223372036854775807")
	if toks[0].Type != INTEGER || toks[0].Int != 9223372036854775807 {
		t.Errorf("max int64 should stay a native integer: %+v", toks[0])
	}
}

func TestFloatAndDotDisambiguation(t *testing.T) {
	toks, err := Tokenize("3.5 a.b ...")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != FLOAT || toks[0].Float != 3.5 {
		t.Errorf("float: %+v", toks[0])
	}
	if toks[1].Type != IDENT || toks[2].Type != DOT || toks[3].Type != IDENT {
		t.Errorf("property access: %v %v %v", toks[1].Type, toks[2].Type, toks[3].Type)
	}
	if toks[4].Type != ELLIPSIS {
		t.Errorf("ellipsis: %v", toks[4].Type)
	}
}

func TestOperatorsAndArrow(t *testing.T) {
	got := types(t, "== != <= >= = => < >")
	want := []TokenType{EQ, NOTEQ, LTEQ, GTEQ, ASSIGN, ARROW, LT, GT, EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestKeywordsAndLogicalOperators(t *testing.T) {
	got := types(t, "if x and not y or true then")
	want := []TokenType{IF, IDENT, AND, NOT, IDENT, OR, BOOLEAN, THEN, EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\t\"c\\"`)
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Lexeme != "a\nb\t\"c\\" {
		t.Errorf("got %q", toks[0].Lexeme)
	}
	if _, err := Tokenize(`"unterminated`); err == nil {
		t.Error("expected unterminated string error")
	}
	if _, err := Tokenize(`"\q"`); err == nil {
		t.Error("expected invalid escape error")
	}
}

func TestCommentsAndNewlines(t *testing.T) {
	got := types(t, "x # a comment\ny")
	want := []TokenType{IDENT, NEWLINE, IDENT, EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLineTracking(t *testing.T) {
	toks, err := Tokenize("a\nb\nc")
	if err != nil {
		t.Fatal(err)
	}
	lines := []int{1, 1, 2, 2, 3}
	for i, want := range lines {
		if toks[i].Line != want {
			t.Errorf("token %d on line %d, want %d", i, toks[i].Line, want)
		}
	}
}

func TestBangAloneRejected(t *testing.T) {
	if _, err := Tokenize("!x"); err == nil {
		t.Error("bare '!' should be rejected")
	}
}

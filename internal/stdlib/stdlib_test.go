package stdlib

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"flowlang/internal/bigint"
	"flowlang/internal/errs"
	"flowlang/internal/value"
)

func callOK(t *testing.T, r *Registry, name string, args ...value.Value) value.Value {
	t.Helper()
	got, err := r.Call(name, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return got
}

func TestRegistryDispatch(t *testing.T) {
	r := New()
	if !r.Has("len") {
		t.Fatal("len not registered")
	}
	if r.Has("no_such_builtin") {
		t.Fatal("phantom builtin registered")
	}
	_, err := r.Call("no_such_builtin", nil)
	if !errs.IsKind(err, errs.UndefinedName) {
		t.Fatalf("expected UndefinedName, got %v", err)
	}
	if len(r.Names()) < 50 {
		t.Fatalf("registry suspiciously small: %d names", len(r.Names()))
	}
}

func TestPrintAndShow(t *testing.T) {
	r := New()
	var buf bytes.Buffer
	r.Out = &buf

	if _, err := r.Call("print", []value.Value{"a", int64(1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Call("show", []value.Value{"b"}); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "a 1b\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestInput(t *testing.T) {
	r := New()
	var buf bytes.Buffer
	r.Out = &buf
	r.In = strings.NewReader("hello\nworld\n")

	got, err := r.Call("input", []value.Value{"> "})
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("input = %q", got)
	}
	if buf.String() != "> " {
		t.Fatalf("prompt = %q", buf.String())
	}
}

func TestCoreConversions(t *testing.T) {
	r := New()
	big, err := bigint.FromString("9223372036854775808")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fn   string
		args []value.Value
		want value.Value
	}{
		{"int from string", "int", []value.Value{"42"}, int64(42)},
		{"int from float", "int", []value.Value{3.9}, int64(3)},
		{"int from bool", "int", []value.Value{true}, int64(1)},
		{"float from int", "float", []value.Value{int64(2)}, 2.0},
		{"float from string", "float", []value.Value{"2.5"}, 2.5},
		{"str from int", "str", []value.Value{int64(7)}, "7"},
		{"str from float", "str", []value.Value{2.0}, "2.0"},
		{"bool of empty", "bool", []value.Value{""}, false},
		{"bool of nonzero", "bool", []value.Value{int64(3)}, true},
		{"type of big", "type", []value.Value{big}, "BigInteger"},
		{"len of string", "len", []value.Value{"abc"}, int64(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Call(tt.fn, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if !value.Equal(got, tt.want) {
				t.Fatalf("%s(%v) = %v, want %v", tt.fn, tt.args, got, tt.want)
			}
		})
	}

	// A value wider than 64 bits passes through int unchanged.
	got := callOK(t, r, "int", big)
	b, ok := got.(*bigint.Int)
	if !ok || b.Cmp(big) != 0 {
		t.Fatalf("int(big) = %v", got)
	}
	// But cannot become a float.
	if _, err := r.Call("float", []value.Value{big}); !errs.IsKind(err, errs.TypeError) {
		t.Fatalf("float(big) error = %v", err)
	}
	// String conversion parses past 64 bits.
	got = callOK(t, r, "int", "9223372036854775808")
	if b, ok := got.(*bigint.Int); !ok || b.String() != "9223372036854775808" {
		t.Fatalf("int(wide string) = %v", got)
	}
}

func TestStringBuiltins(t *testing.T) {
	r := New()

	if got := callOK(t, r, "upper", "abc"); got != "ABC" {
		t.Fatalf("upper = %v", got)
	}
	if got := callOK(t, r, "trim", "  x  "); got != "x" {
		t.Fatalf("trim = %v", got)
	}
	if got := callOK(t, r, "title_case", "the quick fox"); got != "The Quick Fox" {
		t.Fatalf("title_case = %v", got)
	}

	parts := callOK(t, r, "split", "a,b,c", ",").(*value.Array)
	if len(parts.Elements) != 3 || parts.Elements[1] != "b" {
		t.Fatalf("split = %v", value.ToString(parts))
	}
	if got := callOK(t, r, "join", parts, "-"); got != "a-b-c" {
		t.Fatalf("join = %v", got)
	}

	if got := callOK(t, r, "substring", "hello", int64(1), int64(3)); got != "el" {
		t.Fatalf("substring = %v", got)
	}
	_, err := r.Call("substring", []value.Value{"hi", int64(0), int64(10)})
	if !errs.IsKind(err, errs.IndexOutOfBounds) {
		t.Fatalf("substring overflow error = %v", err)
	}

	if got := callOK(t, r, "regex_match", "abc123", `\d+`); got != true {
		t.Fatalf("regex_match = %v", got)
	}
	if got := callOK(t, r, "regex_find", "abc123def", `\d+`); got != "123" {
		t.Fatalf("regex_find = %v", got)
	}
	if got := callOK(t, r, "regex_replace", "a1b2", `\d`, "#"); got != "a#b#" {
		t.Fatalf("regex_replace = %v", got)
	}
	if _, err := r.Call("regex_match", []value.Value{"x", "("}); err == nil {
		t.Fatal("bad pattern accepted")
	}
}

func TestArrayBuiltins(t *testing.T) {
	r := New()
	arr := value.NewArray([]value.Value{int64(3), int64(1), int64(2)})

	// push mutates the array in place, it does not copy.
	callOK(t, r, "array_push", arr, int64(4))
	if len(arr.Elements) != 4 {
		t.Fatalf("push did not mutate: %v", value.ToString(arr))
	}

	popped := callOK(t, r, "array_pop", arr)
	if popped != int64(4) || len(arr.Elements) != 3 {
		t.Fatalf("pop = %v, len = %d", popped, len(arr.Elements))
	}

	sorted := callOK(t, r, "array_sort", arr).(*value.Array)
	if value.ToString(sorted) != "[1, 2, 3]" {
		t.Fatalf("sort = %v", value.ToString(sorted))
	}
	// sort returns a copy
	if value.ToString(arr) != "[3, 1, 2]" {
		t.Fatalf("sort mutated input: %v", value.ToString(arr))
	}

	if got := callOK(t, r, "array_contains", arr, int64(2)); got != true {
		t.Fatalf("contains = %v", got)
	}
	rev := callOK(t, r, "array_reverse", sorted).(*value.Array)
	if value.ToString(rev) != "[3, 2, 1]" {
		t.Fatalf("reverse = %v", value.ToString(rev))
	}

	slice := callOK(t, r, "array_slice", sorted, int64(1), int64(3)).(*value.Array)
	if value.ToString(slice) != "[2, 3]" {
		t.Fatalf("slice = %v", value.ToString(slice))
	}

	empty := value.NewArray(nil)
	if _, err := r.Call("array_pop", []value.Value{empty}); !errs.IsKind(err, errs.IndexOutOfBounds) {
		t.Fatalf("pop of empty = %v", err)
	}
}

func TestObjectBuiltins(t *testing.T) {
	r := New()
	obj := value.NewObject()
	obj.Fields["b"] = int64(2)
	obj.Fields["a"] = int64(1)

	keys := callOK(t, r, "object_keys", obj).(*value.Array)
	if value.ToString(keys) != "[a, b]" {
		t.Fatalf("keys not sorted: %v", value.ToString(keys))
	}

	if got := callOK(t, r, "object_has_key", obj, "a"); got != true {
		t.Fatalf("has_key = %v", got)
	}
	if got := callOK(t, r, "object_has_key", obj, "z"); got != false {
		t.Fatalf("has_key missing = %v", got)
	}

	other := value.NewObject()
	other.Fields["a"] = int64(9)
	other.Fields["c"] = int64(3)
	merged := callOK(t, r, "object_merge", obj, other).(*value.Object)
	if merged.Fields["a"] != int64(9) || merged.Fields["c"] != int64(3) || merged.Fields["b"] != int64(2) {
		t.Fatalf("merge = %v", value.ToString(merged))
	}
	// merge does not mutate either input
	if obj.Fields["a"] != int64(1) {
		t.Fatal("merge mutated its input")
	}
}

func TestMathBuiltins(t *testing.T) {
	r := New()

	if got := callOK(t, r, "abs", int64(-5)); got != int64(5) {
		t.Fatalf("abs = %v", got)
	}
	// abs of MinInt64 cannot stay an Integer.
	got := callOK(t, r, "abs", int64(-9223372036854775808))
	if b, ok := got.(*bigint.Int); !ok || b.String() != "9223372036854775808" {
		t.Fatalf("abs(min) = %v", got)
	}

	if got := callOK(t, r, "min", int64(3), 1.5, int64(2)); got != 1.5 {
		t.Fatalf("min = %v", got)
	}
	if got := callOK(t, r, "max", int64(3), int64(7)); got != int64(7) {
		t.Fatalf("max = %v", got)
	}

	// Integer pow promotes past 64 bits instead of wrapping.
	got = callOK(t, r, "pow", int64(2), int64(64))
	if b, ok := got.(*bigint.Int); !ok || b.String() != "18446744073709551616" {
		t.Fatalf("pow(2, 64) = %v", got)
	}
	if got := callOK(t, r, "pow", 2.0, int64(10)); got != 1024.0 {
		t.Fatalf("pow float = %v", got)
	}

	if got := callOK(t, r, "floor", 3.7); got != int64(3) {
		t.Fatalf("floor = %v", got)
	}
	if got := callOK(t, r, "sqrt", int64(9)); got != 3.0 {
		t.Fatalf("sqrt = %v", got)
	}
	if _, err := r.Call("sqrt", []value.Value{int64(-1)}); err == nil {
		t.Fatal("sqrt(-1) accepted")
	}
}

func TestJSONBuiltins(t *testing.T) {
	r := New()

	parsed := callOK(t, r, "json_parse", `{"n": 3, "f": 2.5, "s": "x", "a": [1, true, null]}`)
	obj := parsed.(*value.Object)
	if obj.Fields["n"] != int64(3) {
		t.Fatalf("whole number decoded as %T", obj.Fields["n"])
	}
	if obj.Fields["f"] != 2.5 {
		t.Fatalf("f = %v", obj.Fields["f"])
	}
	arr := obj.Fields["a"].(*value.Array)
	if arr.Elements[2] != nil {
		t.Fatalf("null decoded as %v", arr.Elements[2])
	}

	out, err := r.Call("json_stringify", []value.Value{obj})
	if err != nil {
		t.Fatal(err)
	}
	back := callOK(t, r, "json_parse", out)
	if !value.Equal(back, parsed) {
		t.Fatalf("round trip changed value: %v vs %v", value.ToString(back), value.ToString(parsed))
	}

	big, err := bigint.FromString("123456789012345678901234567890")
	if err != nil {
		t.Fatal(err)
	}
	s, err := r.Call("json_stringify", []value.Value{big})
	if err != nil {
		t.Fatal(err)
	}
	if s != `"123456789012345678901234567890"` {
		t.Fatalf("big json = %v", s)
	}

	if _, err := r.Call("json_parse", []value.Value{"{oops"}); err == nil {
		t.Fatal("bad json accepted")
	}
}

func TestCryptoBuiltins(t *testing.T) {
	r := New()

	if got := callOK(t, r, "sha256_hash", "abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("sha256 = %v", got)
	}
	if got := callOK(t, r, "md5_hash", ""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("md5 = %v", got)
	}

	enc := callOK(t, r, "base64_encode", "hi there").(string)
	if got := callOK(t, r, "base64_decode", enc); got != "hi there" {
		t.Fatalf("base64 round trip = %v", got)
	}
	hexed := callOK(t, r, "hex_encode", "\x00\xff").(string)
	if hexed != "00ff" {
		t.Fatalf("hex_encode = %v", hexed)
	}

	s := callOK(t, r, "random_string", int64(16)).(string)
	if len(s) != 16 {
		t.Fatalf("random_string length = %d", len(s))
	}

	n := callOK(t, r, "random_int", int64(5), int64(10)).(int64)
	if n < 5 || n >= 10 {
		t.Fatalf("random_int out of range: %d", n)
	}

	id := callOK(t, r, "generate_uuid").(string)
	uuidRE := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	if !uuidRE.MatchString(id) {
		t.Fatalf("generate_uuid = %q", id)
	}
}

func TestFormatBuiltins(t *testing.T) {
	r := New()

	if got := callOK(t, r, "format_bytes", int64(1048576)); got != "1.0 MB" {
		t.Fatalf("format_bytes = %v", got)
	}
	if got := callOK(t, r, "format_number", int64(1234567)); got != "1,234,567" {
		t.Fatalf("format_number = %v", got)
	}
}

func TestFileBuiltins(t *testing.T) {
	r := New()
	path := t.TempDir() + "/out.txt"

	if got := callOK(t, r, "file_exists", path); got != false {
		t.Fatal("file exists before write")
	}
	callOK(t, r, "write_file", path, "data")
	if got := callOK(t, r, "read_file", path); got != "data" {
		t.Fatalf("read_file = %v", got)
	}
	if got := callOK(t, r, "file_exists", path); got != true {
		t.Fatal("file missing after write")
	}
	if _, err := r.Call("read_file", []value.Value{path + ".missing"}); err == nil {
		t.Fatal("read of missing file accepted")
	}
}

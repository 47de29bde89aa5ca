package stdlib

// methodNames maps receiver-style method calls to registry builtins
// that take the receiver as their first argument.
var methodNames = map[string]string{
	"push":     "array_push",
	"pop":      "array_pop",
	"slice":    "array_slice",
	"concat":   "array_concat",
	"reverse":  "array_reverse",
	"sort":     "array_sort",
	"contains": "array_contains",
	"keys":     "object_keys",
	"values":   "object_values",
	"entries":  "object_entries",
	"has_key":  "object_has_key",
	"merge":    "object_merge",
	"length":   "len",
	"upper":    "upper",
	"lower":    "lower",
	"trim":     "trim",
	"split":    "split",
	"join":     "join",
	"replace":  "replace",
}

// MethodName resolves a method call to a builtin name. Methods without
// a dedicated mapping fall back to a builtin of the same name.
func (r *Registry) MethodName(method string) (string, bool) {
	if name, ok := methodNames[method]; ok {
		return name, true
	}
	if r.Has(method) {
		return method, true
	}
	return "", false
}

package stdlib

import (
	"sort"

	"flowlang/internal/value"
)

func (r *Registry) registerObjects() {
	// Keys are returned sorted so scripts see deterministic order.
	r.register("object_keys", func(args []value.Value) (value.Value, error) {
		if err := exactly("object_keys", args, 1); err != nil {
			return nil, err
		}
		obj, err := wantObject("object_keys", args[0])
		if err != nil {
			return nil, err
		}
		keys := sortedKeys(obj)
		elems := make([]value.Value, len(keys))
		for i, k := range keys {
			elems[i] = k
		}
		return value.NewArray(elems), nil
	})

	r.register("object_values", func(args []value.Value) (value.Value, error) {
		if err := exactly("object_values", args, 1); err != nil {
			return nil, err
		}
		obj, err := wantObject("object_values", args[0])
		if err != nil {
			return nil, err
		}
		keys := sortedKeys(obj)
		elems := make([]value.Value, len(keys))
		for i, k := range keys {
			elems[i] = obj.Fields[k]
		}
		return value.NewArray(elems), nil
	})

	r.register("object_entries", func(args []value.Value) (value.Value, error) {
		if err := exactly("object_entries", args, 1); err != nil {
			return nil, err
		}
		obj, err := wantObject("object_entries", args[0])
		if err != nil {
			return nil, err
		}
		keys := sortedKeys(obj)
		elems := make([]value.Value, len(keys))
		for i, k := range keys {
			elems[i] = value.NewArray([]value.Value{k, obj.Fields[k]})
		}
		return value.NewArray(elems), nil
	})

	r.register("object_has_key", func(args []value.Value) (value.Value, error) {
		if err := exactly("object_has_key", args, 2); err != nil {
			return nil, err
		}
		obj, err := wantObject("object_has_key", args[0])
		if err != nil {
			return nil, err
		}
		key, err := wantString("object_has_key", args[1])
		if err != nil {
			return nil, err
		}
		_, ok := obj.Fields[key]
		return ok, nil
	})

	// Later objects win on key conflicts.
	r.register("object_merge", func(args []value.Value) (value.Value, error) {
		if err := atLeast("object_merge", args, 1); err != nil {
			return nil, err
		}
		out := value.NewObject()
		for _, a := range args {
			obj, err := wantObject("object_merge", a)
			if err != nil {
				return nil, err
			}
			for k, v := range obj.Fields {
				out.Fields[k] = v
			}
		}
		return out, nil
	})
}

func sortedKeys(obj *value.Object) []string {
	keys := make([]string, 0, len(obj.Fields))
	for k := range obj.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

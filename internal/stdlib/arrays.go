package stdlib

import (
	"sort"

	"flowlang/internal/errs"
	"flowlang/internal/value"
)

func (r *Registry) registerArrays() {
	r.register("array_len", func(args []value.Value) (value.Value, error) {
		if err := exactly("array_len", args, 1); err != nil {
			return nil, err
		}
		arr, err := wantArray("array_len", args[0])
		if err != nil {
			return nil, err
		}
		return int64(len(arr.Elements)), nil
	})

	// array_push mutates in place; arrays are shared by reference.
	r.register("array_push", func(args []value.Value) (value.Value, error) {
		if err := atLeast("array_push", args, 2); err != nil {
			return nil, err
		}
		arr, err := wantArray("array_push", args[0])
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, args[1:]...)
		return arr, nil
	})

	r.register("array_pop", func(args []value.Value) (value.Value, error) {
		if err := exactly("array_pop", args, 1); err != nil {
			return nil, err
		}
		arr, err := wantArray("array_pop", args[0])
		if err != nil {
			return nil, err
		}
		if len(arr.Elements) == 0 {
			return nil, errs.New(errs.IndexOutOfBounds, "array_pop on empty array")
		}
		last := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return last, nil
	})

	r.register("array_slice", func(args []value.Value) (value.Value, error) {
		if err := exactly("array_slice", args, 3); err != nil {
			return nil, err
		}
		arr, err := wantArray("array_slice", args[0])
		if err != nil {
			return nil, err
		}
		start, err := wantInt("array_slice", args[1])
		if err != nil {
			return nil, err
		}
		end, err := wantInt("array_slice", args[2])
		if err != nil {
			return nil, err
		}
		if start < 0 || end > int64(len(arr.Elements)) || start > end {
			return nil, errs.New(errs.IndexOutOfBounds, "slice bounds [%d, %d) out of range for length %d", start, end, len(arr.Elements))
		}
		out := make([]value.Value, end-start)
		copy(out, arr.Elements[start:end])
		return value.NewArray(out), nil
	})

	r.register("array_concat", func(args []value.Value) (value.Value, error) {
		if err := exactly("array_concat", args, 2); err != nil {
			return nil, err
		}
		a, err := wantArray("array_concat", args[0])
		if err != nil {
			return nil, err
		}
		b, err := wantArray("array_concat", args[1])
		if err != nil {
			return nil, err
		}
		return value.Add(a, b)
	})

	r.register("array_reverse", func(args []value.Value) (value.Value, error) {
		if err := exactly("array_reverse", args, 1); err != nil {
			return nil, err
		}
		arr, err := wantArray("array_reverse", args[0])
		if err != nil {
			return nil, err
		}
		out := make([]value.Value, len(arr.Elements))
		for i, e := range arr.Elements {
			out[len(out)-1-i] = e
		}
		return value.NewArray(out), nil
	})

	r.register("array_sort", func(args []value.Value) (value.Value, error) {
		if err := exactly("array_sort", args, 1); err != nil {
			return nil, err
		}
		arr, err := wantArray("array_sort", args[0])
		if err != nil {
			return nil, err
		}
		out := make([]value.Value, len(arr.Elements))
		copy(out, arr.Elements)
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			c, err := value.Compare(out[i], out[j])
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return c < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return value.NewArray(out), nil
	})

	r.register("array_contains", func(args []value.Value) (value.Value, error) {
		if err := exactly("array_contains", args, 2); err != nil {
			return nil, err
		}
		arr, err := wantArray("array_contains", args[0])
		if err != nil {
			return nil, err
		}
		for _, e := range arr.Elements {
			if value.Equal(e, args[1]) {
				return true, nil
			}
		}
		return false, nil
	})
}

package value

import "flowlang/internal/errs"

// Index reads target[index]. Array and string indexes are bounds
// checked; a missing object key reads as null.
func Index(target, index Value) (Value, error) {
	switch t := target.(type) {
	case *Array:
		i, ok := index.(int64)
		if !ok {
			return nil, errs.Type("array index must be Integer, got %s", TypeName(index))
		}
		if i < 0 || i >= int64(len(t.Elements)) {
			return nil, errs.New(errs.IndexOutOfBounds, "index %d out of range for length %d", i, len(t.Elements))
		}
		return t.Elements[i], nil
	case string:
		i, ok := index.(int64)
		if !ok {
			return nil, errs.Type("string index must be Integer, got %s", TypeName(index))
		}
		runes := []rune(t)
		if i < 0 || i >= int64(len(runes)) {
			return nil, errs.New(errs.IndexOutOfBounds, "index %d out of range for length %d", i, len(runes))
		}
		return string(runes[i]), nil
	case *Object:
		key, ok := index.(string)
		if !ok {
			return nil, errs.Type("object key must be String, got %s", TypeName(index))
		}
		return t.Fields[key], nil
	default:
		return nil, errs.Type("%s is not indexable", TypeName(target))
	}
}

// SetIndex writes target[index] = val in place.
func SetIndex(target, index, val Value) error {
	switch t := target.(type) {
	case *Array:
		i, ok := index.(int64)
		if !ok {
			return errs.Type("array index must be Integer, got %s", TypeName(index))
		}
		if i < 0 || i >= int64(len(t.Elements)) {
			return errs.New(errs.IndexOutOfBounds, "index %d out of range for length %d", i, len(t.Elements))
		}
		t.Elements[i] = val
		return nil
	case *Object:
		key, ok := index.(string)
		if !ok {
			return errs.Type("object key must be String, got %s", TypeName(index))
		}
		t.Fields[key] = val
		return nil
	default:
		return errs.Type("%s is not indexable", TypeName(target))
	}
}

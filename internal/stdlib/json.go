package stdlib

import (
	"encoding/json"
	"math"

	"flowlang/internal/bigint"
	"flowlang/internal/errs"
	"flowlang/internal/value"
)

func (r *Registry) registerJSON() {
	r.register("json_parse", func(args []value.Value) (value.Value, error) {
		if err := exactly("json_parse", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("json_parse", args[0])
		if err != nil {
			return nil, err
		}
		var raw interface{}
		if jerr := json.Unmarshal([]byte(s), &raw); jerr != nil {
			return nil, errs.Type("json_parse: %v", jerr)
		}
		return fromJSON(raw), nil
	})

	r.register("json_stringify", func(args []value.Value) (value.Value, error) {
		if err := exactly("json_stringify", args, 1); err != nil {
			return nil, err
		}
		raw, err := toJSON(args[0])
		if err != nil {
			return nil, err
		}
		data, jerr := json.Marshal(raw)
		if jerr != nil {
			return nil, errs.Type("json_stringify: %v", jerr)
		}
		return string(data), nil
	})
}

// fromJSON maps decoded JSON onto runtime values. Whole numbers come
// back as Integers.
func fromJSON(raw interface{}) value.Value {
	switch t := raw.(type) {
	case nil:
		return nil
	case bool:
		return t
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < float64(math.MaxInt64) {
			return int64(t)
		}
		return t
	case []interface{}:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			elems[i] = fromJSON(e)
		}
		return value.NewArray(elems)
	case map[string]interface{}:
		obj := value.NewObject()
		for k, v := range t {
			obj.Fields[k] = fromJSON(v)
		}
		return obj
	default:
		return nil
	}
}

func toJSON(v value.Value) (interface{}, error) {
	switch t := v.(type) {
	case nil, bool, int64, float64, string:
		return t, nil
	case *bigint.Int:
		// JSON numbers cannot hold arbitrary precision; emit a string.
		return t.String(), nil
	case *value.Array:
		out := make([]interface{}, len(t.Elements))
		for i, e := range t.Elements {
			j, err := toJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case *value.Object:
		out := make(map[string]interface{}, len(t.Fields))
		for k, e := range t.Fields {
			j, err := toJSON(e)
			if err != nil {
				return nil, err
			}
			out[k] = j
		}
		return out, nil
	default:
		return nil, errs.Type("json_stringify cannot encode %s", value.TypeName(v))
	}
}

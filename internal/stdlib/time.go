package stdlib

import (
	"time"

	"github.com/dustin/go-humanize"

	"flowlang/internal/value"
)

func (r *Registry) registerTime() {
	// now returns milliseconds since the Unix epoch.
	r.register("now", func(args []value.Value) (value.Value, error) {
		if err := exactly("now", args, 0); err != nil {
			return nil, err
		}
		return time.Now().UnixMilli(), nil
	})

	r.register("sleep", func(args []value.Value) (value.Value, error) {
		if err := exactly("sleep", args, 1); err != nil {
			return nil, err
		}
		ms, err := wantNumber("sleep", args[0])
		if err != nil {
			return nil, err
		}
		time.Sleep(time.Duration(ms * float64(time.Millisecond)))
		return nil, nil
	})

	r.register("format_bytes", func(args []value.Value) (value.Value, error) {
		if err := exactly("format_bytes", args, 1); err != nil {
			return nil, err
		}
		n, err := wantInt("format_bytes", args[0])
		if err != nil {
			return nil, err
		}
		return humanize.Bytes(uint64(n)), nil
	})

	r.register("format_number", func(args []value.Value) (value.Value, error) {
		if err := exactly("format_number", args, 1); err != nil {
			return nil, err
		}
		switch t := args[0].(type) {
		case int64:
			return humanize.Comma(t), nil
		case float64:
			return humanize.Commaf(t), nil
		default:
			return value.ToString(args[0]), nil
		}
	})

	r.register("format_time_ago", func(args []value.Value) (value.Value, error) {
		if err := exactly("format_time_ago", args, 1); err != nil {
			return nil, err
		}
		ms, err := wantInt("format_time_ago", args[0])
		if err != nil {
			return nil, err
		}
		return humanize.Time(time.UnixMilli(ms)), nil
	})
}

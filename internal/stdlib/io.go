package stdlib

import (
	"os"

	pkgerrors "github.com/pkg/errors"

	"flowlang/internal/value"
)

func (r *Registry) registerIO() {
	r.register("read_file", func(args []value.Value) (value.Value, error) {
		if err := exactly("read_file", args, 1); err != nil {
			return nil, err
		}
		path, err := wantString("read_file", args[0])
		if err != nil {
			return nil, err
		}
		data, ferr := os.ReadFile(path)
		if ferr != nil {
			return nil, pkgerrors.Wrapf(ferr, "read_file %s", path)
		}
		return string(data), nil
	})

	r.register("write_file", func(args []value.Value) (value.Value, error) {
		if err := exactly("write_file", args, 2); err != nil {
			return nil, err
		}
		path, err := wantString("write_file", args[0])
		if err != nil {
			return nil, err
		}
		content, err := wantString("write_file", args[1])
		if err != nil {
			return nil, err
		}
		if ferr := os.WriteFile(path, []byte(content), 0o644); ferr != nil {
			return nil, pkgerrors.Wrapf(ferr, "write_file %s", path)
		}
		return true, nil
	})

	r.register("file_exists", func(args []value.Value) (value.Value, error) {
		if err := exactly("file_exists", args, 1); err != nil {
			return nil, err
		}
		path, err := wantString("file_exists", args[0])
		if err != nil {
			return nil, err
		}
		_, serr := os.Stat(path)
		return serr == nil, nil
	})
}

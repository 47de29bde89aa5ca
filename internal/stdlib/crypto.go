package stdlib

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"flowlang/internal/errs"
	"flowlang/internal/value"
)

const randomStringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (r *Registry) registerCrypto() {
	r.register("md5_hash", func(args []value.Value) (value.Value, error) {
		if err := exactly("md5_hash", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("md5_hash", args[0])
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%x", md5.Sum([]byte(s))), nil
	})

	r.register("sha256_hash", func(args []value.Value) (value.Value, error) {
		if err := exactly("sha256_hash", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("sha256_hash", args[0])
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%x", sha256.Sum256([]byte(s))), nil
	})

	r.register("base64_encode", func(args []value.Value) (value.Value, error) {
		if err := exactly("base64_encode", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("base64_encode", args[0])
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.EncodeToString([]byte(s)), nil
	})

	r.register("base64_decode", func(args []value.Value) (value.Value, error) {
		if err := exactly("base64_decode", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("base64_decode", args[0])
		if err != nil {
			return nil, err
		}
		data, derr := base64.StdEncoding.DecodeString(s)
		if derr != nil {
			return nil, errs.Type("base64_decode: %v", derr)
		}
		return string(data), nil
	})

	r.register("hex_encode", func(args []value.Value) (value.Value, error) {
		if err := exactly("hex_encode", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("hex_encode", args[0])
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString([]byte(s)), nil
	})

	r.register("hex_decode", func(args []value.Value) (value.Value, error) {
		if err := exactly("hex_decode", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("hex_decode", args[0])
		if err != nil {
			return nil, err
		}
		data, derr := hex.DecodeString(s)
		if derr != nil {
			return nil, errs.Type("hex_decode: %v", derr)
		}
		return string(data), nil
	})

	r.register("random_int", func(args []value.Value) (value.Value, error) {
		if err := exactly("random_int", args, 2); err != nil {
			return nil, err
		}
		lo, err := wantInt("random_int", args[0])
		if err != nil {
			return nil, err
		}
		hi, err := wantInt("random_int", args[1])
		if err != nil {
			return nil, err
		}
		if hi <= lo {
			return nil, errs.Type("random_int: empty range [%d, %d)", lo, hi)
		}
		return lo + rand.Int63n(hi-lo), nil
	})

	r.register("random_float", func(args []value.Value) (value.Value, error) {
		if err := exactly("random_float", args, 0); err != nil {
			return nil, err
		}
		return rand.Float64(), nil
	})

	r.register("random_string", func(args []value.Value) (value.Value, error) {
		if err := exactly("random_string", args, 1); err != nil {
			return nil, err
		}
		n, err := wantInt("random_string", args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errs.Type("random_string: negative length")
		}
		out := make([]byte, n)
		for i := range out {
			out[i] = randomStringAlphabet[rand.Intn(len(randomStringAlphabet))]
		}
		return string(out), nil
	})

	r.register("generate_uuid", func(args []value.Value) (value.Value, error) {
		if err := exactly("generate_uuid", args, 0); err != nil {
			return nil, err
		}
		return uuid.NewString(), nil
	})
}

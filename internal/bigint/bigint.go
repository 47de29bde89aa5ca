// Package bigint implements arbitrary-precision signed integers on
// base-1e9 limbs. The engine promotes int64 arithmetic into this
// representation on overflow.
package bigint

import (
	"fmt"
	"strings"

	"flowlang/internal/errs"
)

const limbBase = 1_000_000_000
const limbDigits = 9

// Int is a signed arbitrary-precision integer. Limbs are stored
// little-endian in base 1e9. The zero value is the number 0.
// negative is never true for zero.
type Int struct {
	limbs    []uint32
	negative bool
}

// FromInt64 builds an Int from a native integer.
func FromInt64(v int64) *Int {
	n := &Int{}
	if v == 0 {
		return n
	}
	// Negate via uint64 so MinInt64 does not overflow.
	var mag uint64
	if v < 0 {
		n.negative = true
		mag = uint64(-(v + 1)) + 1
	} else {
		mag = uint64(v)
	}
	for mag > 0 {
		n.limbs = append(n.limbs, uint32(mag%limbBase))
		mag /= limbBase
	}
	return n
}

// FromString parses an optionally signed decimal string.
func FromString(s string) (*Int, error) {
	orig := s
	n := &Int{}
	if strings.HasPrefix(s, "-") {
		n.negative = true
		s = s[1:]
	}
	if s == "" {
		return nil, errs.New(errs.RuntimeError, "invalid integer literal %q", orig)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, errs.New(errs.RuntimeError, "invalid integer literal %q", orig)
		}
	}
	for end := len(s); end > 0; end -= limbDigits {
		start := end - limbDigits
		if start < 0 {
			start = 0
		}
		var limb uint32
		for _, c := range s[start:end] {
			limb = limb*10 + uint32(c-'0')
		}
		n.limbs = append(n.limbs, limb)
	}
	n.normalize()
	return n, nil
}

// normalize strips high zero limbs and clears the sign of zero.
func (n *Int) normalize() {
	for len(n.limbs) > 0 && n.limbs[len(n.limbs)-1] == 0 {
		n.limbs = n.limbs[:len(n.limbs)-1]
	}
	if len(n.limbs) == 0 {
		n.negative = false
	}
}

func (n *Int) IsZero() bool { return len(n.limbs) == 0 }

// Sign returns -1, 0 or 1.
func (n *Int) Sign() int {
	if n.IsZero() {
		return 0
	}
	if n.negative {
		return -1
	}
	return 1
}

// Neg returns -n.
func (n *Int) Neg() *Int {
	out := &Int{limbs: append([]uint32(nil), n.limbs...)}
	if !out.IsZero() {
		out.negative = !n.negative
	}
	return out
}

// cmpMagnitude compares |a| and |b|.
func cmpMagnitude(a, b []uint32) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func addMagnitude(a, b []uint32) []uint32 {
	if len(a) < len(b) {
		a, b = b, a
	}
	out := make([]uint32, 0, len(a)+1)
	var carry uint64
	for i := 0; i < len(a); i++ {
		sum := uint64(a[i]) + carry
		if i < len(b) {
			sum += uint64(b[i])
		}
		out = append(out, uint32(sum%limbBase))
		carry = sum / limbBase
	}
	if carry > 0 {
		out = append(out, uint32(carry))
	}
	return out
}

// subMagnitude computes |a| - |b|; requires |a| >= |b|.
func subMagnitude(a, b []uint32) []uint32 {
	out := make([]uint32, 0, len(a))
	var borrow int64
	for i := 0; i < len(a); i++ {
		diff := int64(a[i]) - borrow
		if i < len(b) {
			diff -= int64(b[i])
		}
		if diff < 0 {
			diff += limbBase
			borrow = 1
		} else {
			borrow = 0
		}
		out = append(out, uint32(diff))
	}
	return out
}

// Add returns n + m.
func (n *Int) Add(m *Int) *Int {
	out := &Int{}
	if n.negative == m.negative {
		out.limbs = addMagnitude(n.limbs, m.limbs)
		out.negative = n.negative
	} else {
		switch cmpMagnitude(n.limbs, m.limbs) {
		case 0:
			return out
		case 1:
			out.limbs = subMagnitude(n.limbs, m.limbs)
			out.negative = n.negative
		default:
			out.limbs = subMagnitude(m.limbs, n.limbs)
			out.negative = m.negative
		}
	}
	out.normalize()
	return out
}

// Sub returns n - m.
func (n *Int) Sub(m *Int) *Int {
	return n.Add(m.Neg())
}

// Mul returns n * m using schoolbook multiplication.
func (n *Int) Mul(m *Int) *Int {
	out := &Int{}
	if n.IsZero() || m.IsZero() {
		return out
	}
	limbs := make([]uint32, len(n.limbs)+len(m.limbs))
	for i, a := range n.limbs {
		var carry uint64
		for j, b := range m.limbs {
			cur := uint64(limbs[i+j]) + uint64(a)*uint64(b) + carry
			limbs[i+j] = uint32(cur % limbBase)
			carry = cur / limbBase
		}
		k := i + len(m.limbs)
		for carry > 0 {
			cur := uint64(limbs[k]) + carry
			limbs[k] = uint32(cur % limbBase)
			carry = cur / limbBase
			k++
		}
	}
	out.limbs = limbs
	out.negative = n.negative != m.negative
	out.normalize()
	return out
}

// Cmp returns -1, 0 or 1 comparing n to m.
func (n *Int) Cmp(m *Int) int {
	if n.negative != m.negative {
		if n.negative {
			return -1
		}
		return 1
	}
	c := cmpMagnitude(n.limbs, m.limbs)
	if n.negative {
		return -c
	}
	return c
}

// ToInt64 converts back to int64 when the value fits.
func (n *Int) ToInt64() (int64, bool) {
	if len(n.limbs) > 2 {
		return 0, false
	}
	var mag uint64
	for i := len(n.limbs) - 1; i >= 0; i-- {
		mag = mag*limbBase + uint64(n.limbs[i])
	}
	if n.negative {
		if mag > uint64(1)<<63 {
			return 0, false
		}
		return -int64(mag), true
	}
	if mag > uint64(1)<<63-1 {
		return 0, false
	}
	return int64(mag), true
}

// ToFloat64 converts to float64 only when the value is exactly
// representable as an int64, matching the engine's promotion rules.
func (n *Int) ToFloat64() (float64, bool) {
	v, ok := n.ToInt64()
	if !ok {
		return 0, false
	}
	return float64(v), true
}

func (n *Int) String() string {
	if n.IsZero() {
		return "0"
	}
	var sb strings.Builder
	if n.negative {
		sb.WriteByte('-')
	}
	last := len(n.limbs) - 1
	sb.WriteString(fmt.Sprintf("%d", n.limbs[last]))
	for i := last - 1; i >= 0; i-- {
		sb.WriteString(fmt.Sprintf("%09d", n.limbs[i]))
	}
	return sb.String()
}

// Package eint implements the enriched integer: a signed integer whose bits
// are independently addressable and whose sign is tracked apart from its
// magnitude. Registers in a branch hold one of these rather than a plain
// int64, so that primitives like had and cnot can flip individual bits
// without reasoning about two's-complement overflow.
package eint

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Int is a sign-magnitude integer: Value() == Mag negated iff Neg is set.
// Mag is always held non-negative. The zero value is a valid representation
// of 0.
type Int struct {
	mag *big.Int
	neg bool
}

// Zero returns a fresh Int holding 0.
func Zero() Int { return Int{mag: new(big.Int)} }

// New builds an Int from a plain signed integer.
func New(v int64) Int {
	m := big.NewInt(v)
	neg := m.Sign() < 0
	m.Abs(m)
	return Int{mag: m, neg: neg}
}

// NewFromBig builds an Int from a math/big.Int, decomposing it into
// magnitude and sign.
func NewFromBig(v *big.Int) Int {
	m := new(big.Int).Abs(v)
	return Int{mag: m, neg: v.Sign() < 0}
}

// NewBool lowers a boolean into the canonical {0,1} enriched integer, as the
// engine does whenever a comparison result (e.g. key != val) is stored back
// into a register.
func NewBool(b bool) Int {
	if b {
		return New(1)
	}
	return Zero()
}

func (i Int) ensure() *big.Int {
	if i.mag == nil {
		return new(big.Int)
	}
	return i.mag
}

// Sign reports the independent sign flag. It does not necessarily agree
// with Value().Sign() after bit-level mutation of a zero magnitude: per the
// enriched-integer contract, the sign is tracked separately from the bits.
func (i Int) Sign() bool { return i.neg }

// SetSign returns a copy of i with the sign flag forced to neg, leaving the
// magnitude bits untouched.
func (i Int) SetSign(neg bool) Int {
	return Int{mag: new(big.Int).Set(i.ensure()), neg: neg}
}

// Value returns the signed big.Int this enriched integer represents.
func (i Int) Value() *big.Int {
	v := new(big.Int).Set(i.ensure())
	if i.neg {
		v.Neg(v)
	}
	return v
}

// Int64 returns the value as an int64, truncating silently if it doesn't
// fit (big.Int.Int64 semantics); no range check is made here or by the
// primitives that use it for bit indices and moduli.
func (i Int) Int64() int64 { return i.Value().Int64() }

// Copy returns a deep, independent copy.
func (i Int) Copy() Int {
	return Int{mag: new(big.Int).Set(i.ensure()), neg: i.neg}
}

// Bit reads the n'th bit (LSB = 0) of the magnitude, zero-extended beyond
// the current width.
func (i Int) Bit(n int) uint {
	if n < 0 {
		return 0
	}
	return i.ensure().Bit(n)
}

// SetBit returns a copy of i with the n'th magnitude bit set to v (0 or 1),
// growing the magnitude's width as needed. The sign flag is preserved.
func (i Int) SetBit(n int, v uint) Int {
	if v != 0 && v != 1 {
		panic(fmt.Sprintf("eint: SetBit value must be 0 or 1, got %d", v))
	}
	m := new(big.Int).Set(i.ensure())
	m.SetBit(m, n, v)
	return Int{mag: m, neg: i.neg}
}

// BitLen returns the magnitude's bit length (the width currently occupied).
func (i Int) BitLen() int { return i.ensure().BitLen() }

// Cmp compares the signed values of i and o.
func (i Int) Cmp(o Int) int { return i.Value().Cmp(o.Value()) }

// Equal reports whether i and o hold the same signed value. Two enriched
// integers with different Sign() flags but equal Value() (both zero) are
// still Equal, matching branch structural-equality semantics which compare
// register contents, not representation metadata.
func (i Int) Equal(o Int) bool { return i.Cmp(o) == 0 }

// IsZero reports whether the signed value is zero; used for control-branch
// truthiness checks ("nonzero" gating in spec.md §3).
func (i Int) IsZero() bool { return i.ensure().Sign() == 0 }

// Add returns i+o as a new enriched integer; the sign flag of the result is
// derived from the arithmetic result, not copied from either operand.
func (i Int) Add(o Int) Int { return NewFromBig(new(big.Int).Add(i.Value(), o.Value())) }

// Sub returns i-o.
func (i Int) Sub(o Int) Int { return NewFromBig(new(big.Int).Sub(i.Value(), o.Value())) }

// Mod returns the Euclidean modulus i mod o (0 <= result < |o| for o != 0),
// matching Python's % operator semantics that spec.md's QFT primitive (§4.8)
// relies on for negative register values.
func (i Int) Mod(o Int) Int {
	r := new(big.Int).Mod(i.Value(), o.Value())
	return NewFromBig(r)
}

// String renders the signed decimal value.
func (i Int) String() string { return i.Value().String() }

// Fingerprint returns a fixed-width uint256 view of the magnitude plus the
// sign flag, for use as a cheap equality pre-check in the branch merge
// routine (C8): two enriched integers can only be Equal if their
// fingerprints (when both present) agree. It reports ok=false whenever the
// magnitude doesn't fit in 256 bits, in which case callers must fall back
// to Equal/Cmp.
func (i Int) Fingerprint() (mag uint256.Int, neg bool, ok bool) {
	m := i.ensure()
	if m.BitLen() > 256 {
		return uint256.Int{}, false, false
	}
	var u uint256.Int
	if overflow := u.SetFromBig(m); overflow {
		return uint256.Int{}, false, false
	}
	return u, i.neg && m.Sign() != 0, true
}

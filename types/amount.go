package types

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"lukechampine.com/uint128"
)

// ErrArithmeticOverflow is returned when a checked 128-bit operation would
// leave the representable range. Amounts never wrap.
var ErrArithmeticOverflow = errors.New("recur: arithmetic overflow")

// UnitScale is the number of base units in one whole currency unit
// (10^24, the yocto denomination of the settlement ledger).
var UnitScale = MustParseAmount("1000000000000000000000000")

// Amount is an unsigned 128-bit magnitude in the smallest indivisible
// currency unit. The zero value is a valid zero amount.
//
// All arithmetic is checked: operations that would overflow or underflow
// return an error instead of wrapping.
type Amount struct {
	u uint128.Uint128
}

// Zero is the zero Amount.
var Zero Amount

// MaxAmount is the largest representable Amount (2^128 - 1).
var MaxAmount = Amount{u: uint128.Max}

// NewAmount creates an Amount from a uint64.
func NewAmount(v uint64) Amount { return Amount{u: uint128.From64(v)} }

// ParseAmount parses a base-10 string into an Amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("amount: parse %q: empty string", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return Zero, fmt.Errorf("amount: parse %q: invalid digit %q", s, c)
		}
	}
	u, err := uint128.FromString(s)
	if err != nil {
		return Zero, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	return Amount{u: u}, nil
}

// MustParseAmount is like ParseAmount but panics on error. Use for constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromBig converts a big.Int, failing closed on negative or oversized values.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b.Sign() < 0 {
		return Zero, fmt.Errorf("amount: negative value %s", b.String())
	}
	if b.BitLen() > 128 {
		return Zero, ErrArithmeticOverflow
	}
	return Amount{u: uint128.FromBig(b)}, nil
}

// Whole converts a count of whole currency units to base units using UnitScale.
// It panics on overflow; use Scale for caller-supplied values.
func Whole(n uint64) Amount {
	a, err := NewAmount(n).Scale(UnitScale)
	if err != nil {
		panic(fmt.Sprintf("amount: whole %d: %v", n, err))
	}
	return a
}

// Big returns the amount as a new big.Int.
func (a Amount) Big() *big.Int { return a.u.Big() }

// String returns the base-10 representation.
func (a Amount) String() string { return a.u.String() }

// Uint64 returns the amount and whether it fits in a uint64.
func (a Amount) Uint64() (uint64, bool) {
	return a.u.Lo, a.u.Hi == 0
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.u.IsZero() }

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.u.Cmp(b.u) }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.u.Equals(b.u) }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.Cmp(b) > 0 }

// Checked arithmetic

// CheckedAdd returns a + b or ErrArithmeticOverflow.
func (a Amount) CheckedAdd(b Amount) (Amount, error) {
	sum := new(big.Int).Add(a.Big(), b.Big())
	return AmountFromBig(sum)
}

// CheckedSub returns a - b or ErrArithmeticOverflow when b > a.
func (a Amount) CheckedSub(b Amount) (Amount, error) {
	if a.LessThan(b) {
		return Zero, ErrArithmeticOverflow
	}
	return Amount{u: a.u.Sub(b.u)}, nil
}

// CheckedMul returns a * b or ErrArithmeticOverflow.
func (a Amount) CheckedMul(b Amount) (Amount, error) {
	product := new(big.Int).Mul(a.Big(), b.Big())
	return AmountFromBig(product)
}

// Scale converts a whole-unit amount to base units.
func (a Amount) Scale(unit Amount) (Amount, error) {
	return a.CheckedMul(unit)
}

// Dec returns a - 1. Decrementing zero is an overflow.
func (a Amount) Dec() (Amount, error) {
	if a.IsZero() {
		return Zero, ErrArithmeticOverflow
	}
	return Amount{u: a.u.Sub64(1)}, nil
}

// Formatting

// FormatUnits renders the amount as whole units of the given scale with the
// fractional part trimmed of trailing zeros: "1.5" for 1.5 * unit.
func (a Amount) FormatUnits(unit Amount) string {
	if unit.IsZero() {
		return a.String()
	}
	q, r := new(big.Int).QuoRem(a.Big(), unit.Big(), new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	digits := len(unit.String()) - 1
	frac := r.String()
	if pad := digits - len(frac); pad > 0 {
		frac = strings.Repeat("0", pad) + frac
	}
	return q.String() + "." + strings.TrimRight(frac, "0")
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalJSON accepts both quoted decimal strings and bare JSON numbers,
// so clients limited to 53-bit numbers can still send exact values.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Zero
		return nil
	}
	return a.UnmarshalText(bytes.Trim(data, `"`))
}

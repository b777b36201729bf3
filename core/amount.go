package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow  = errors.New("core: amount overflow")
	ErrUnderflow = errors.New("core: amount underflow")
)

// Amount is an unsigned 256-bit token quantity in the token's smallest unit.
// The zero value is a valid zero amount. Arithmetic never wraps.
type Amount struct {
	v uint256.Int
}

func NewAmount(value uint64) Amount {
	var out Amount
	out.v.SetUint64(value)
	return out
}

// MaxAmount returns 2^256-1.
func MaxAmount() Amount {
	var out Amount
	out.v.SetAllOne()
	return out
}

func ParseAmount(raw string) (Amount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Amount{}, fmt.Errorf("core: amount is required")
	}
	parsed, err := uint256.FromDecimal(raw)
	if err != nil {
		return Amount{}, fmt.Errorf("core: invalid amount %q: %w", raw, err)
	}
	return Amount{v: *parsed}, nil
}

func MustParseAmount(raw string) Amount {
	amount, err := ParseAmount(raw)
	if err != nil {
		panic(err)
	}
	return amount
}

func AmountFromUint256(value *uint256.Int) Amount {
	if value == nil {
		return Amount{}
	}
	return Amount{v: *value}
}

func (a Amount) Uint256() *uint256.Int {
	out := a.v
	return &out
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) Cmp(other Amount) int {
	return a.v.Cmp(&other.v)
}

func (a Amount) LessThan(other Amount) bool {
	return a.v.Lt(&other.v)
}

func (a Amount) Equal(other Amount) bool {
	return a.v.Eq(&other.v)
}

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrOverflow
	}
	return out, nil
}

// Sub returns a-b or ErrUnderflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	if _, underflow := out.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrUnderflow
	}
	return out, nil
}

func (a Amount) Uint64() (uint64, bool) {
	if !a.v.IsUint64() {
		return 0, false
	}
	return a.v.Uint64(), true
}

func (a Amount) String() string {
	return a.v.Dec()
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// SumAmounts adds all values, failing with ErrOverflow past 2^256-1.
func SumAmounts(values ...Amount) (Amount, error) {
	total := Amount{}
	for _, value := range values {
		next, err := total.Add(value)
		if err != nil {
			return Amount{}, err
		}
		total = next
	}
	return total, nil
}

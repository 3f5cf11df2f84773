package primitives

import (
	"database/sql/driver"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative, arbitrary-precision token quantity. The zero
// value is zero. Subtraction saturates at zero; addition is exact.
type Amount struct {
	d decimal.Decimal
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{d: decimal.Zero}

// NewAmount constructs an Amount from a decimal string, rejecting negatives
// and malformed input.
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, s)
	}
	return Amount{d: d}, nil
}

// MustAmount is NewAmount but panics on error; for constants and tests only.
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromWei converts a raw integer unit amount (e.g. wei) to a decimal Amount
// given the token's decimals.
func FromWei(raw *big.Int, decimals uint8) (Amount, error) {
	if raw == nil {
		return ZeroAmount, nil
	}
	if raw.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: raw units negative", ErrInvalidAmount)
	}
	d := decimal.NewFromBigInt(raw, -int32(decimals))
	return Amount{d: d}, nil
}

// ToWei converts this Amount back to raw integer units at the given
// decimals, truncating any precision finer than the integer unit.
func (a Amount) ToWei(decimals uint8) *big.Int {
	shifted := a.d.Shift(int32(decimals))
	return shifted.Truncate(0).BigInt()
}

// Add returns a + b exactly.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b, saturating at zero when b > a.
func (a Amount) Sub(b Amount) Amount {
	r := a.d.Sub(b.d)
	if r.IsNegative() {
		return ZeroAmount
	}
	return Amount{d: r}
}

// Cmp compares two amounts: -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// String renders the amount in plain decimal form.
func (a Amount) String() string { return a.d.String() }

// Decimal exposes the underlying decimal.Decimal for callers that need it
// (e.g. the store layer, which persists NUMERIC columns directly).
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.d.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		a.d = d
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		a.d = d
		return nil
	case float64:
		a.d = decimal.NewFromFloat(v)
		return nil
	case nil:
		a.d = decimal.Zero
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into Amount", ErrInvalidAmount, src)
	}
}

// MarshalJSON renders the amount as a quoted decimal string to avoid float
// precision loss.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

// UnmarshalJSON parses a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := NewAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Package primitives holds the validated newtypes and small enums the rest
// of the indexer builds on: addresses, token amounts, streak counters, block
// numbers, and the handful of ordinal/tagged domain enums.
package primitives

import (
	"database/sql/driver"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte EVM address. The zero value is the zero address; it
// is always constructed from exactly 20 bytes or a well-formed hex string.
type Address struct {
	inner common.Address
}

// ZeroAddress is the all-zero 20-byte address.
var ZeroAddress = Address{}

// NewAddress validates raw bytes and returns an Address.
func NewAddress(b []byte) (Address, error) {
	if len(b) != common.AddressLength {
		return Address{}, fmt.Errorf("%w: address must be %d bytes, got %d", ErrInvalidAddress, common.AddressLength, len(b))
	}
	var a common.Address
	copy(a[:], b)
	return Address{inner: a}, nil
}

// ParseAddress parses a `0x`-prefixed (or bare) hex string into an Address.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("%w: %q is not a well-formed address", ErrInvalidAddress, s)
	}
	return Address{inner: common.HexToAddress(s)}, nil
}

// FromCommon wraps a go-ethereum common.Address.
func FromCommon(a common.Address) Address {
	return Address{inner: a}
}

// Common returns the underlying go-ethereum common.Address.
func (a Address) Common() common.Address { return a.inner }

// Bytes returns the 20 raw bytes.
func (a Address) Bytes() []byte { return a.inner.Bytes() }

// String renders the address as lowercase hex with a 0x prefix.
func (a Address) String() string {
	b := a.inner.Bytes()
	out := make([]byte, 2+2*len(b))
	out[0], out[1] = '0', 'x'
	const hexdigits = "0123456789abcdef"
	for i, c := range b {
		out[2+2*i] = hexdigits[c>>4]
		out[2+2*i+1] = hexdigits[c&0x0f]
	}
	return string(out)
}

// IsZero reports whether this is the zero address.
func (a Address) IsZero() bool { return a.inner == common.Address{} }

// Value implements driver.Valuer, storing the address as a raw 20-byte blob.
func (a Address) Value() (driver.Value, error) {
	return a.inner.Bytes(), nil
}

// Scan implements sql.Scanner, reading a raw 20-byte blob.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		addr, err := NewAddress(v)
		if err != nil {
			return err
		}
		*a = addr
		return nil
	case string:
		addr, err := ParseAddress(v)
		if err != nil {
			return err
		}
		*a = addr
		return nil
	case nil:
		*a = ZeroAddress
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into Address", ErrInvalidAddress, src)
	}
}

// MarshalJSON renders the address as a quoted lowercase hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses a quoted hex address string.
func (a *Address) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	addr, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

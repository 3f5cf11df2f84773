package primitives

import "errors"

// ErrInvalidAddress is returned when an address fails construction from
// malformed bytes or hex.
var ErrInvalidAddress = errors.New("invalid address")

// ErrInvalidAmount is returned when a negative or malformed amount is
// supplied to Amount construction.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidLevel is returned when an out-of-range integer is converted to
// a RiskLevel.
var ErrInvalidLevel = errors.New("invalid risk level")

package field

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrShapeMismatch    = errors.New("shape mismatch")
)

// InvalidParameterError reports a scalar argument outside its allowed range.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s = %g: %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

// ShapeMismatchError reports an array whose length does not agree with the
// shape it must broadcast against. It indicates a malformed Field or operand
// and is not recoverable by the callee.
type ShapeMismatchError struct {
	What string
	Have int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: have %d, want %d", e.What, e.Have, e.Want)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

func invalid(name string, value float64, reason string) error {
	return &InvalidParameterError{Name: name, Value: value, Reason: reason}
}

func mismatch(what string, have, want int) error {
	return &ShapeMismatchError{What: what, Have: have, Want: want}
}

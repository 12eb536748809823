package modarith

import (
	"errors"
	"fmt"
)

// ErrArithmetic is matched by every ArithmeticError via errors.Is.
var ErrArithmetic = errors.New("arithmetic error")

// ArithmeticError reports an operation that has no defined result, such as
// the inverse of a value sharing a factor with its modulus.
type ArithmeticError struct {
	Op     string
	Reason string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrArithmetic.
func (e *ArithmeticError) Is(target error) bool {
	return target == ErrArithmetic
}

package ecdsatwist

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by FormatError and ParseError.
	ErrFormat = errors.New("malformed input")

	// ErrOnCurve is returned by the twist analyzer for points that satisfy
	// the secp256k1 equation.
	ErrOnCurve = errors.New("point satisfies the secp256k1 equation")

	// ErrVerificationFailed marks a reconstructed key that does not
	// reproduce the target public key. It is not fatal: the fragment set
	// keeps accumulating.
	ErrVerificationFailed = errors.New("recovery failed verification")

	// ErrNotFound is returned by Store lookups for unknown keys.
	ErrNotFound = errors.New("not found")
)

// FormatError names the input field and the structural rule it broke.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ParseError reports a DER structure mismatch at a byte offset.
type ParseError struct {
	Offset   int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("DER signature: expected %s at offset %d, found %s", e.Expected, e.Offset, e.Found)
}

// Is reports whether target is ErrFormat.
func (e *ParseError) Is(target error) bool {
	return target == ErrFormat
}

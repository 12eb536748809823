// Package modarith provides modular arithmetic over math/big integers with
// normalized (non-negative) results and explicit failures where a result is
// undefined.
package modarith

import (
	"fmt"
	"math/big"
)

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

// Mod returns a mod m in [0, m). m must be positive.
func Mod(a, m *big.Int) *big.Int {
	// big.Int.Mod is Euclidean, which equals floored modulo for m > 0
	return new(big.Int).Mod(a, m)
}

// GCD returns the non-negative greatest common divisor of a and b.
func GCD(a, b *big.Int) *big.Int {
	x := new(big.Int).Abs(a)
	y := new(big.Int).Abs(b)
	return x.GCD(nil, nil, x, y)
}

// ExtendedGCD returns (g, x, y) with a*x + b*y = g = gcd(a, b).
// The iteration works on copies, a and b are not modified.
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)
	oldT, t := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	tmp := new(big.Int)
	for r.Sign() != 0 {
		q.Quo(oldR, r)

		tmp.Mul(q, r)
		oldR, r = r, new(big.Int).Sub(oldR, tmp)

		tmp.Mul(q, s)
		oldS, s = s, new(big.Int).Sub(oldS, tmp)

		tmp.Mul(q, t)
		oldT, t = t, new(big.Int).Sub(oldT, tmp)
	}

	if oldR.Sign() < 0 {
		oldR.Neg(oldR)
		oldS.Neg(oldS)
		oldT.Neg(oldT)
	}

	return oldR, oldS, oldT
}

// ModInverse returns a^-1 mod m.
//
// Returns:
//   - The inverse in [1, m) if gcd(a, m) == 1
//   - An *ArithmeticError otherwise; no value is ever guessed
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, &ArithmeticError{Op: "inverse", Reason: fmt.Sprintf("modulus %s is not positive", m)}
	}

	if m.Cmp(one) == 0 {
		return nil, &ArithmeticError{Op: "inverse", Reason: "modulus is 1"}
	}

	g, x, _ := ExtendedGCD(Mod(a, m), m)
	if g.Cmp(one) != 0 {
		return nil, &ArithmeticError{
			Op:     "inverse",
			Reason: fmt.Sprintf("%s shares factor %s with modulus %s", a, g, m),
		}
	}

	return Mod(x, m), nil
}

// ModExp returns base^exp mod m. A negative exponent raises the inverse of
// base, and fails the same way ModInverse does.
func ModExp(base, exp, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, &ArithmeticError{Op: "exp", Reason: fmt.Sprintf("modulus %s is not positive", m)}
	}

	b := Mod(base, m)
	e := new(big.Int).Set(exp)
	if e.Sign() < 0 {
		inv, err := ModInverse(b, m)
		if err != nil {
			return nil, err
		}
		b = inv
		e.Neg(e)
	}

	return new(big.Int).Exp(b, e, m), nil
}

// MulMod returns a*b mod m.
func MulMod(a, b, m *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, m)
}

// SubMod returns a-b mod m in [0, m).
func SubMod(a, b, m *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, m)
}

// IsZero reports whether a == 0.
func IsZero(a *big.Int) bool {
	return a.Cmp(zero) == 0
}

package modarith

import (
	"fmt"
	"math/big"
)

// CRT solves x ≡ residues[i] (mod moduli[i]) for pairwise coprime moduli.
//
// Returns:
//   - x in [0, M) and M, the product of all moduli
//   - An *ArithmeticError if the input is empty, a modulus is not positive,
//     or two moduli share a factor
func CRT(moduli, residues []*big.Int) (x, product *big.Int, err error) {
	if len(moduli) == 0 {
		return nil, nil, &ArithmeticError{Op: "crt", Reason: "no congruences given"}
	}

	if len(moduli) != len(residues) {
		return nil, nil, &ArithmeticError{
			Op:     "crt",
			Reason: fmt.Sprintf("%d moduli but %d residues", len(moduli), len(residues)),
		}
	}

	product = big.NewInt(1)
	for _, m := range moduli {
		if m.Sign() <= 0 {
			return nil, nil, &ArithmeticError{Op: "crt", Reason: fmt.Sprintf("modulus %s is not positive", m)}
		}
		product.Mul(product, m)
	}

	x = new(big.Int)
	for i, m := range moduli {
		// M_i = M / m_i, y_i = M_i^-1 mod m_i
		mi := new(big.Int).Quo(product, m)

		yi, err := ModInverse(mi, m)
		if err != nil {
			return nil, nil, &ArithmeticError{
				Op:     "crt",
				Reason: fmt.Sprintf("modulus %s is not coprime to the others", m),
			}
		}

		term := Mod(residues[i], m)
		term.Mul(term, mi)
		term.Mul(term, yi)
		x.Add(x, term)
	}

	return x.Mod(x, product), product, nil
}

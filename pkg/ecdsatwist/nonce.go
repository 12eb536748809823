package ecdsatwist

import (
	"errors"
	"math/big"

	"github.com/mahdiidarabi/ecdsa-twist/internal/modarith"
)

// SignedMessage is a signature together with the digest z it signs.
type SignedMessage struct {
	Z *big.Int
	R *big.Int
	S *big.Int
}

// AffineRelationship describes nonces with k2 = A·k1 + B.
type AffineRelationship struct {
	A *big.Int
	B *big.Int
}

// NonceReuse is a private key recovered from two signatures whose nonces
// were equal or negated.
type NonceReuse struct {
	PrivateKey   *big.Int
	Relationship AffineRelationship

	// Pair indexes the two signatures in the searched slice.
	Pair [2]int
}

// RecoverFromAffineNonces solves for the private key of two signatures
// whose nonces satisfy k2 = a·k1 + b:
//
//	priv = (a·s2·z1 - s1·z2 + b·s1·s2) / (r2·s1 - a·r1·s2) mod n
//
// Args:
//   - sig1, sig2: Signatures with related nonces
//   - a, b: Affine coefficients of the nonce relation
//
// Returns:
//   - The private key, or an error when the denominator vanishes
func RecoverFromAffineNonces(sig1, sig2 *SignedMessage, a, b *big.Int) (*big.Int, error) {
	n := Secp256k1CurveOrder

	as2z1 := new(big.Int).Mul(a, sig2.S)
	as2z1.Mul(as2z1, sig1.Z)

	s1z2 := new(big.Int).Mul(sig1.S, sig2.Z)

	bs1s2 := new(big.Int).Mul(b, sig1.S)
	bs1s2.Mul(bs1s2, sig2.S)

	numerator := new(big.Int).Sub(as2z1, s1z2)
	numerator.Add(numerator, bs1s2)
	numerator.Mod(numerator, n)

	r2s1 := new(big.Int).Mul(sig2.R, sig1.S)

	ar1s2 := new(big.Int).Mul(a, sig1.R)
	ar1s2.Mul(ar1s2, sig2.S)

	denominator := new(big.Int).Sub(r2s1, ar1s2)
	denominator.Mod(denominator, n)

	if denominator.Sign() == 0 {
		return nil, errors.New("denominator is zero: cannot recover private key")
	}

	inv, err := modarith.ModInverse(denominator, n)
	if err != nil {
		return nil, err
	}

	return modarith.MulMod(inv, numerator, n), nil
}

// FindNonceReuse looks for two signatures by pub sharing r, which means
// the nonce was reused (k2 = k1) or negated by low-s normalization
// (k2 = -k1). Only keys that reproduce pub are returned.
func FindNonceReuse(sigs []*SignedMessage, pub *CurvePoint) *NonceReuse {
	relationships := []AffineRelationship{
		{A: big.NewInt(1), B: big.NewInt(0)},
		{A: big.NewInt(-1), B: big.NewInt(0)},
	}

	for i := 0; i < len(sigs); i++ {
		for j := i + 1; j < len(sigs); j++ {
			if sigs[i].R.Cmp(sigs[j].R) != 0 {
				continue
			}
			if sigs[i].Z.Cmp(sigs[j].Z) == 0 {
				// same digest leaks nothing
				continue
			}

			for _, rel := range relationships {
				priv, err := RecoverFromAffineNonces(sigs[i], sigs[j], rel.A, rel.B)
				if err != nil {
					continue
				}
				if VerifyPrivateKey(priv, pub) {
					return &NonceReuse{PrivateKey: priv, Relationship: rel, Pair: [2]int{i, j}}
				}
			}
		}
	}

	return nil
}

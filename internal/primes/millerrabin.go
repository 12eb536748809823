// Package primes implements probabilistic primality testing and integer
// factorization over math/big integers.
package primes

import (
	"crypto/rand"
	"io"
	"math/big"
)

// DefaultRounds gives a false-positive probability of at most 4^-20.
const DefaultRounds = 20

var (
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
	big3 = big.NewInt(3)
)

// smallPrimes is the trial-division table, the first 14 primes.
var smallPrimes = []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43}

// MillerRabin is a probabilistic primality tester. A "prime" answer means
// prime beyond reasonable doubt, never a proof. A "composite" answer is
// always correct.
type MillerRabin struct {
	Rounds int
	rand   io.Reader
}

// NewMillerRabin returns a tester drawing bases from crypto/rand.
// rounds <= 0 selects DefaultRounds.
func NewMillerRabin(rounds int) *MillerRabin {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	return &MillerRabin{Rounds: rounds, rand: rand.Reader}
}

// WithRand replaces the source of random bases.
func (m *MillerRabin) WithRand(r io.Reader) *MillerRabin {
	m.rand = r
	return m
}

// IsProbablePrime reports whether n is prime beyond reasonable doubt.
func (m *MillerRabin) IsProbablePrime(n *big.Int) bool {
	if n.Cmp(big2) < 0 {
		return false
	}

	if n.Cmp(big3) <= 0 {
		return true
	}

	if n.Bit(0) == 0 {
		return false
	}

	q := new(big.Int)
	r := new(big.Int)
	for _, p := range smallPrimes {
		q.SetUint64(p)
		if n.Cmp(q) == 0 {
			return true
		}
		if r.Mod(n, q).Sign() == 0 {
			return false
		}
	}

	// n-1 = d * 2^s with d odd
	nMinus1 := new(big.Int).Sub(n, big1)
	s := nMinus1.TrailingZeroBits()
	d := new(big.Int).Rsh(nMinus1, s)

	// bases are drawn from [2, n-2]
	span := new(big.Int).Sub(n, big3)

	x := new(big.Int)
	for i := 0; i < m.Rounds; i++ {
		a, err := rand.Int(m.rand, span)
		if err != nil {
			// a broken entropy source must not turn into a "prime" verdict
			return false
		}
		a.Add(a, big2)

		x.Exp(a, d, n)
		if x.Cmp(big1) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}

		witness := true
		for j := uint(1); j < s; j++ {
			x.Mul(x, x).Mod(x, n)
			if x.Cmp(nMinus1) == 0 {
				witness = false
				break
			}
			if x.Cmp(big1) == 0 {
				break
			}
		}

		if witness {
			return false
		}
	}

	return true
}

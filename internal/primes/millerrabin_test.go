package primes

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMillerRabin_SmallNumbers(t *testing.T) {
	mr := NewMillerRabin(0)
	assert.Equal(t, DefaultRounds, mr.Rounds)

	primes := []int64{2, 3, 5, 7, 11, 13, 43, 47, 97, 7919, 104729}
	for _, p := range primes {
		assert.True(t, mr.IsProbablePrime(big.NewInt(p)), "%d is prime", p)
	}

	composites := []int64{-7, 0, 1, 4, 9, 35, 49, 91, 561, 1105, 7917}
	for _, c := range composites {
		assert.False(t, mr.IsProbablePrime(big.NewInt(c)), "%d is composite", c)
	}
}

func TestMillerRabin_CarmichaelAndStrongPseudoprimes(t *testing.T) {
	mr := NewMillerRabin(20)

	// 3215031751 is a strong pseudoprime to bases 2, 3, 5 and 7
	for _, c := range []int64{41041, 825265, 3215031751} {
		assert.False(t, mr.IsProbablePrime(big.NewInt(c)), "%d is composite", c)
	}
}

func TestMillerRabin_CurveConstants(t *testing.T) {
	mr := NewMillerRabin(10)

	p, _ := new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", 16)
	n, _ := new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

	assert.True(t, mr.IsProbablePrime(p))
	assert.True(t, mr.IsProbablePrime(n))
	assert.False(t, mr.IsProbablePrime(new(big.Int).Mul(p, n)))
}

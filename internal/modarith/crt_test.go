package modarith

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigs(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestCRT_Textbook(t *testing.T) {
	// x ≡ 2 (mod 3), x ≡ 3 (mod 5), x ≡ 2 (mod 7) → 23
	x, m, err := CRT(bigs(3, 5, 7), bigs(2, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(23), x.Int64())
	assert.Equal(t, int64(105), m.Int64())
}

func TestCRT_RoundTrip(t *testing.T) {
	d, _ := new(big.Int).SetString("f1c0e9a7d4c3b8e1f6a2d9c4b7e", 16)
	moduli := bigs(3319, 22639, 3, 199, 18979, 109903, 12977017, 383229727)

	residues := make([]*big.Int, len(moduli))
	for i, q := range moduli {
		residues[i] = Mod(d, q)
	}

	x, m, err := CRT(moduli, residues)
	require.NoError(t, err)
	require.Equal(t, 1, m.Cmp(d), "product must exceed the key for an exact round trip")
	assert.Equal(t, 0, x.Cmp(d))
}

func TestCRT_NegativeResidueNormalized(t *testing.T) {
	x, _, err := CRT(bigs(5, 7), bigs(-1, -1))
	require.NoError(t, err)
	assert.Equal(t, int64(34), x.Int64())
}

func TestCRT_NotCoprime(t *testing.T) {
	_, _, err := CRT(bigs(6, 9), bigs(1, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArithmetic)
	assert.Contains(t, err.Error(), "not coprime")
}

func TestCRT_BadInput(t *testing.T) {
	_, _, err := CRT(nil, nil)
	assert.ErrorIs(t, err, ErrArithmetic)

	_, _, err = CRT(bigs(3, 5), bigs(1))
	assert.ErrorIs(t, err, ErrArithmetic)

	_, _, err = CRT(bigs(3, 0), bigs(1, 1))
	assert.ErrorIs(t, err, ErrArithmetic)
}

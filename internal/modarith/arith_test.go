package modarith

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMod_NormalizesNegative(t *testing.T) {
	tests := []struct {
		a, m, want int64
	}{
		{-1, 7, 6},
		{-14, 7, 0},
		{15, 7, 1},
		{0, 5, 0},
		{-8, 3, 1},
	}

	for _, tc := range tests {
		got := Mod(big.NewInt(tc.a), big.NewInt(tc.m))
		assert.Equal(t, tc.want, got.Int64(), "%d mod %d", tc.a, tc.m)
	}
}

func TestExtendedGCD(t *testing.T) {
	a := big.NewInt(240)
	b := big.NewInt(46)

	g, x, y := ExtendedGCD(a, b)
	require.Equal(t, int64(2), g.Int64())

	// a*x + b*y == g
	lhs := new(big.Int).Mul(a, x)
	lhs.Add(lhs, new(big.Int).Mul(b, y))
	assert.Equal(t, 0, lhs.Cmp(g))

	// inputs are untouched
	assert.Equal(t, int64(240), a.Int64())
	assert.Equal(t, int64(46), b.Int64())
}

func TestGCD(t *testing.T) {
	assert.Equal(t, int64(6), GCD(big.NewInt(-48), big.NewInt(18)).Int64())
	assert.Equal(t, int64(7), GCD(big.NewInt(0), big.NewInt(7)).Int64())
}

func TestModInverse(t *testing.T) {
	inv, err := ModInverse(big.NewInt(3), big.NewInt(11))
	require.NoError(t, err)
	assert.Equal(t, int64(4), inv.Int64())

	inv, err = ModInverse(big.NewInt(-3), big.NewInt(11))
	require.NoError(t, err)
	assert.Equal(t, int64(7), inv.Int64())
}

func TestModInverse_NotCoprime(t *testing.T) {
	_, err := ModInverse(big.NewInt(6), big.NewInt(15))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArithmetic)

	var arithErr *ArithmeticError
	require.ErrorAs(t, err, &arithErr)
	assert.Equal(t, "inverse", arithErr.Op)
	assert.Contains(t, arithErr.Reason, "shares factor 3")
}

func TestModInverse_LargeModulus(t *testing.T) {
	n, _ := new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	a, _ := new(big.Int).SetString("1234567890abcdef1234567890abcdef", 16)

	inv, err := ModInverse(a, n)
	require.NoError(t, err)
	assert.Equal(t, int64(1), MulMod(a, inv, n).Int64())
	assert.Equal(t, 0, inv.Cmp(new(big.Int).ModInverse(a, n)))
}

func TestModExp(t *testing.T) {
	r, err := ModExp(big.NewInt(3), big.NewInt(5), big.NewInt(13))
	require.NoError(t, err)
	assert.Equal(t, int64(9), r.Int64())

	r, err = ModExp(big.NewInt(-2), big.NewInt(3), big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, int64(6), r.Int64())

	// 3^-1 mod 11 == 4
	r, err = ModExp(big.NewInt(3), big.NewInt(-1), big.NewInt(11))
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.Int64())

	_, err = ModExp(big.NewInt(5), big.NewInt(-1), big.NewInt(10))
	assert.ErrorIs(t, err, ErrArithmetic)

	_, err = ModExp(big.NewInt(5), big.NewInt(2), big.NewInt(0))
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestSubMod(t *testing.T) {
	assert.Equal(t, int64(8), SubMod(big.NewInt(3), big.NewInt(6), big.NewInt(11)).Int64())
}

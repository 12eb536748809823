package primes

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string, base int) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, base)
	require.True(t, ok, "bad literal %s", s)
	return v
}

func requireSound(t *testing.T, fz *Factorizer, f *Factorization, n *big.Int) {
	t.Helper()
	require.Equal(t, 0, f.Product().Cmp(n), "product of factors must equal %s", n)
	for _, p := range f.Primes {
		require.True(t, fz.Tester().IsProbablePrime(p), "%s must be prime", p)
	}
}

func TestFactor_ThirtyFive(t *testing.T) {
	fz := NewFactorizer(DefaultConfig())

	f, err := fz.Factor(context.Background(), big.NewInt(35))
	require.NoError(t, err)
	require.True(t, f.Complete())
	require.Len(t, f.Primes, 2)
	assert.Equal(t, int64(5), f.Primes[0].Int64())
	assert.Equal(t, int64(7), f.Primes[1].Int64())
}

func TestFactor_Trivial(t *testing.T) {
	fz := NewFactorizer(DefaultConfig())

	for _, v := range []int64{-5, 0, 1} {
		f, err := fz.Factor(context.Background(), big.NewInt(v))
		require.NoError(t, err)
		assert.Empty(t, f.Primes)
		assert.True(t, f.Complete())
	}

	f, err := fz.Factor(context.Background(), big.NewInt(2))
	require.NoError(t, err)
	require.Len(t, f.Primes, 1)
	assert.Equal(t, int64(2), f.Primes[0].Int64())
}

func TestFactor_Table(t *testing.T) {
	fz := NewFactorizer(DefaultConfig())

	tests := []struct {
		name string
		n    string
		want []int64
	}{
		{"power of two", "1024", []int64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}},
		{"repeated primes", "44100", []int64{2, 2, 3, 3, 5, 5, 7, 7}},
		{"prime", "104729", []int64{104729}},
		{"semiprime above trial limit", "1000036000099", []int64{1000003, 1000033}},
		{"mixed", "12000432001188", []int64{2, 2, 3, 1000003, 1000033}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := mustBig(t, tc.n, 10)
			f, err := fz.Factor(context.Background(), n)
			require.NoError(t, err)
			requireSound(t, fz, f, n)

			got := make([]int64, len(f.Primes))
			for i, p := range f.Primes {
				got[i] = p.Int64()
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestFactor_TwistOrder(t *testing.T) {
	fz := NewFactorizer(DefaultConfig())

	// order of y^2 = x^3 + 14 over the secp256k1 field
	n := mustBig(t, "ffffffffffffffffffffffffffffffff4c43534ba6c5e3a57918113a87c50283", 16)

	f, err := fz.Factor(context.Background(), n)
	require.NoError(t, err)
	requireSound(t, fz, f, n)
	require.Len(t, f.Primes, 4)
	assert.Equal(t, int64(109903), f.Primes[0].Int64())
	assert.Equal(t, int64(12977017), f.Primes[1].Int64())
	assert.Equal(t, int64(383229727), f.Primes[2].Int64())
	assert.Equal(t, "8a3da1572042fac2e762092c5262d37282e48ba91f99bab", f.Primes[3].Text(16))
}

func TestFactor_Multiplicity(t *testing.T) {
	fz := NewFactorizer(DefaultConfig())

	// order of y^2 = x^3 + 9: 3^2 * 13^2 * 3319 * 22639 * q
	n := mustBig(t, "1000000000000000000000000000000014551231950b75fc4402da1712fc9b71f", 16)

	f, err := fz.Factor(context.Background(), n)
	require.NoError(t, err)
	requireSound(t, fz, f, n)

	assert.Equal(t, 2, f.Multiplicity(big.NewInt(3)))
	assert.Equal(t, 2, f.Multiplicity(big.NewInt(13)))
	assert.Equal(t, 1, f.Multiplicity(big.NewInt(3319)))
	assert.Equal(t, 1, f.Multiplicity(big.NewInt(22639)))
	assert.Len(t, f.Distinct(), 5)
}

func TestFactor_BudgetExhausted(t *testing.T) {
	// two 61-bit primes: out of reach for 64 rho steps and a p-1 bound of 50
	p := mustBig(t, "2305843009213693951", 10)
	q := mustBig(t, "2305843009213693967", 10)
	n := new(big.Int).Mul(p, q)

	fz := NewFactorizer(Config{
		TrialDivisionLimit: 100,
		RhoIterations:      64,
		RhoAttempts:        1,
		PM1Bound:           50,
		Rounds:             10,
	})

	f, err := fz.Factor(context.Background(), n)
	require.ErrorIs(t, err, ErrFactorizationIncomplete)
	require.NotNil(t, f)
	assert.False(t, f.Complete())
	assert.Equal(t, 0, f.Product().Cmp(n))
	require.Len(t, f.Unfactored, 1)
	assert.Equal(t, 0, f.Unfactored[0].Cmp(n))
}

func TestFactor_Cancelled(t *testing.T) {
	p := mustBig(t, "2305843009213693951", 10)
	q := mustBig(t, "2305843009213693967", 10)
	n := new(big.Int).Mul(p, q)

	fz := NewFactorizer(Config{RhoIterations: 1 << 30, Timeout: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := fz.Factor(ctx, n)
	require.ErrorIs(t, err, ErrFactorizationIncomplete)
	assert.Contains(t, err.Error(), context.Canceled.Error())
	assert.Equal(t, 0, f.Product().Cmp(n))
}

func TestFactor_PollardPMinus1Splits(t *testing.T) {
	// 367567200 = 2^5·3^3·5^2·7·11·13·17, the other prime is a safe prime
	p := big.NewInt(367567201)
	q := mustBig(t, "2305843009213699919", 10)
	n := new(big.Int).Mul(p, q)

	// a starved rho leaves the split to p-1
	fz := NewFactorizer(Config{
		TrialDivisionLimit: 64,
		RhoIterations:      8,
		RhoAttempts:        1,
		PM1Bound:           100,
	})

	d, err := fz.rho(context.Background(), n)
	require.NoError(t, err)
	require.Nil(t, d)

	d, err = fz.pminus1(context.Background(), n)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 0, d.Cmp(p))

	f, err := fz.Factor(context.Background(), n)
	require.NoError(t, err)
	require.True(t, f.Complete())
	require.Len(t, f.Primes, 2)
	assert.Equal(t, 0, f.Primes[0].Cmp(p))
	assert.Equal(t, 0, f.Primes[1].Cmp(q))
	requireSound(t, fz, f, n)
}

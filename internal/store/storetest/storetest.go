// Package storetest holds the behaviour every ecdsatwist.Store backend must
// share, run against each backend from its own tests.
package storetest

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/mahdiidarabi/ecdsa-twist/pkg/ecdsatwist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerKeyID = "95f3fa06b77d3e17661cb24cb6a607fde3c7539850ea3670d85857f702c0a0ff" +
		"1c55ce8dea2799fa277a60f36c3982c1c78048b467189d92131d7db1691d5519"

	twistedKey = "04989892e7d459aab988d5f43569f6d0de877bae23190c9ebd763e4dd4630fbba0" +
		"0a4d61a05b3ed79331451994454757eb137c8cf4fff7ef22ed7d4ada8db7e091"

	signature = "304402201361de9b63f9d1755838cbe6142b112ed4293305a1effb7464323b7537ceed1c" +
		"02205948b8fa53f11b90eb7f6758d4273fff4424349e824d0df5c49567229b6e6c8b01"

	recoveredKey = "0000000000000000000000000000000000000f1c0e9a7d4c3b8e1f6a2d9c4b7e"
)

// Opener returns a fresh, empty store. Closing it is left to Run.
type Opener func(t *testing.T) ecdsatwist.Store

// Run exercises open against the Store contract.
func Run(t *testing.T, open Opener) {
	t.Run("analysis not found", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		_, err := store.LoadAnalysis(context.Background(), "missing")
		assert.ErrorIs(t, err, ecdsatwist.ErrNotFound)
	})

	t.Run("analysis round trip", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		defer store.Close()

		want := sampleResult(t)
		require.NoError(t, store.SaveAnalysis(ctx, want))

		got, err := store.LoadAnalysis(ctx, want.TxID)
		require.NoError(t, err)
		assert.Equal(t, want.TxID, got.TxID)
		assert.Equal(t, want.VulnerabilityType, got.VulnerabilityType)
		assert.True(t, want.PublicKey.Equal(got.PublicKey))
		assert.Equal(t, 0, want.Signature.R.Cmp(got.Signature.R))
		assert.Equal(t, want.Signature.Sighash, got.Signature.Sighash)
		assert.Equal(t, want.PrimeFactors, got.PrimeFactors)
		assert.Equal(t, want.PrivateKeyModulo.Residues, got.PrivateKeyModulo.Residues)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.KeyID, got.KeyID)
	})

	t.Run("analysis upsert", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		defer store.Close()

		result := sampleResult(t)
		result.Status = ecdsatwist.StatusAnalyzing
		result.Message = ""
		require.NoError(t, store.SaveAnalysis(ctx, result))

		result.Status = ecdsatwist.StatusCompleted
		result.Message = "recovered"
		result.RecoveredPrivateKey = recoveredKey
		require.NoError(t, store.SaveAnalysis(ctx, result))

		got, err := store.LoadAnalysis(ctx, result.TxID)
		require.NoError(t, err)
		assert.Equal(t, ecdsatwist.StatusCompleted, got.Status)
		assert.Equal(t, "recovered", got.Message)
		assert.Equal(t, recoveredKey, got.RecoveredPrivateKey)
	})

	t.Run("fragments not found", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		_, err := store.LoadFragments(context.Background(), ownerKeyID)
		assert.ErrorIs(t, err, ecdsatwist.ErrNotFound)
	})

	t.Run("fragments replace", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		defer store.Close()

		set := sampleSet()
		require.NoError(t, store.SaveFragments(ctx, ownerKeyID, set, ""))

		got, err := store.LoadFragments(ctx, ownerKeyID)
		require.NoError(t, err)
		assert.Equal(t, set.Residues, got.Residues)
		assert.False(t, got.Complete())

		set.Add(ecdsatwist.Fragment{Modulus: big.NewInt(13), Residue: big.NewInt(4)})
		require.NoError(t, store.SaveFragments(ctx, ownerKeyID, set, recoveredKey))

		got, err = store.LoadFragments(ctx, ownerKeyID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
		assert.True(t, got.Complete())
		assert.Equal(t, recoveredKey, got.RecoveredKey)
	})

	t.Run("fragments update", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		defer store.Close()

		err := store.UpdateFragments(ctx, ownerKeyID, func(current *ecdsatwist.KeyFragmentSet) (*ecdsatwist.KeyFragmentSet, error) {
			assert.Nil(t, current)
			return sampleSet(), nil
		})
		require.NoError(t, err)

		err = store.UpdateFragments(ctx, ownerKeyID, func(current *ecdsatwist.KeyFragmentSet) (*ecdsatwist.KeyFragmentSet, error) {
			require.NotNil(t, current)
			assert.Equal(t, 2, current.Len())
			current.Add(ecdsatwist.Fragment{Modulus: big.NewInt(13), Residue: big.NewInt(4)})
			current.RecoveredKey = recoveredKey
			return current, nil
		})
		require.NoError(t, err)

		got, err := store.LoadFragments(ctx, ownerKeyID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
		assert.Equal(t, recoveredKey, got.RecoveredKey)
	})

	t.Run("fragments update without change", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		defer store.Close()

		err := store.UpdateFragments(ctx, ownerKeyID, func(*ecdsatwist.KeyFragmentSet) (*ecdsatwist.KeyFragmentSet, error) {
			return nil, nil
		})
		require.NoError(t, err)

		_, err = store.LoadFragments(ctx, ownerKeyID)
		assert.ErrorIs(t, err, ecdsatwist.ErrNotFound)

		errAbort := errors.New("abort")
		err = store.UpdateFragments(ctx, ownerKeyID, func(*ecdsatwist.KeyFragmentSet) (*ecdsatwist.KeyFragmentSet, error) {
			return sampleSet(), errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		_, err = store.LoadFragments(ctx, ownerKeyID)
		assert.ErrorIs(t, err, ecdsatwist.ErrNotFound)
	})

	t.Run("fragments concurrent updates", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		defer store.Close()

		moduli := []int64{3, 5, 7, 11, 13, 17, 19, 23}

		var wg sync.WaitGroup
		for _, m := range moduli {
			wg.Add(1)
			go func(m int64) {
				defer wg.Done()

				err := store.UpdateFragments(ctx, ownerKeyID, func(current *ecdsatwist.KeyFragmentSet) (*ecdsatwist.KeyFragmentSet, error) {
					next := ecdsatwist.NewKeyFragmentSet(ownerKeyID)
					if current != nil {
						next = current.Clone()
					}
					// widen the window between read and write
					time.Sleep(2 * time.Millisecond)
					next.Add(ecdsatwist.Fragment{Modulus: big.NewInt(m), Residue: big.NewInt(1)})
					return next, nil
				})
				assert.NoError(t, err)
			}(m)
		}
		wg.Wait()

		got, err := store.LoadFragments(ctx, ownerKeyID)
		require.NoError(t, err)
		assert.Equal(t, len(moduli), got.Len())
	})
}

func sampleSet() *ecdsatwist.KeyFragmentSet {
	set := ecdsatwist.NewKeyFragmentSet(ownerKeyID)
	set.Merge([]ecdsatwist.Fragment{
		{Modulus: big.NewInt(3319), Residue: big.NewInt(2392)},
		{Modulus: big.NewInt(22639), Residue: big.NewInt(14051)},
	})
	return set
}

func sampleResult(t *testing.T) *ecdsatwist.AnalysisResult {
	t.Helper()

	pub, err := ecdsatwist.ParsePublicKey(twistedKey)
	require.NoError(t, err)

	sig, err := ecdsatwist.ParseDERSignatureHex(signature)
	require.NoError(t, err)

	return &ecdsatwist.AnalysisResult{
		TxID:              "tx-store",
		VulnerabilityType: ecdsatwist.VulnerabilityTwistedCurve,
		PublicKey:         pub,
		Signature:         sig,
		TwistOrder:        "12345",
		PrimeFactors:      []string{"3", "5", "823"},
		PrivateKeyModulo:  sampleSet(),
		Status:            ecdsatwist.StatusCompleted,
		Message:           "point lies on y^2 = x^3 + 9",
		KeyID:             ownerKeyID,
	}
}

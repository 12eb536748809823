package ecdsatwist

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *AnalysisResult {
	t.Helper()

	sig, err := ParseDERSignatureHex(fixtureSignature)
	require.NoError(t, err)

	set := NewKeyFragmentSet(fixtureOwnerKeyID)
	set.Merge(fragmentsOf(fixtureKey(t), []int64{3319, 22639}))

	return &AnalysisResult{
		TxID:              "tx-1",
		VulnerabilityType: VulnerabilityTwistedCurve,
		PublicKey:         mustPoint(t, fixtureTwist9),
		Signature:         sig,
		TwistOrder:        "12345",
		PrimeFactors:      []string{"3", "5", "823"},
		PrivateKeyModulo:  set,
		Status:            StatusCompleted,
		Message:           "done",
		KeyID:             fixtureOwnerKeyID,
	}
}

func TestMemoryStore_Analysis(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.LoadAnalysis(ctx, "tx-1")
	assert.ErrorIs(t, err, ErrNotFound)

	want := sampleResult(t)
	require.NoError(t, store.SaveAnalysis(ctx, want))

	got, err := store.LoadAnalysis(ctx, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, want.TxID, got.TxID)
	assert.Equal(t, want.VulnerabilityType, got.VulnerabilityType)
	assert.True(t, got.PublicKey.Equal(want.PublicKey))
	assert.False(t, got.PublicKey.IsOnCurve())
	assert.Equal(t, 0, got.Signature.R.Cmp(want.Signature.R))
	assert.Equal(t, want.Signature.Sighash, got.Signature.Sighash)
	assert.Equal(t, want.PrimeFactors, got.PrimeFactors)
	assert.Equal(t, want.PrivateKeyModulo.Residues, got.PrivateKeyModulo.Residues)
	assert.Equal(t, want.KeyID, got.KeyID)

	// upsert
	want.Message = "again"
	require.NoError(t, store.SaveAnalysis(ctx, want))
	got, err = store.LoadAnalysis(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "again", got.Message)
}

func TestMemoryStore_Fragments(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.LoadFragments(ctx, fixtureOwnerKeyID)
	assert.ErrorIs(t, err, ErrNotFound)

	set := NewKeyFragmentSet(fixtureOwnerKeyID)
	set.Merge(fragmentsOf(fixtureKey(t), []int64{3, 199}))
	require.NoError(t, store.SaveFragments(ctx, fixtureOwnerKeyID, set, pad64(fixtureKey(t))))

	// the caller's set is not aliased
	set.Add(Fragment{Modulus: fixtureKey(t), Residue: fixtureKey(t)})

	got, err := store.LoadFragments(ctx, fixtureOwnerKeyID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, pad64(fixtureKey(t)), got.RecoveredKey)
}

func TestAnalysisRecord_Validation(t *testing.T) {
	good := NewAnalysisRecord(sampleResult(t))
	_, err := good.Result()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(r *AnalysisRecord)
	}{
		{"missing txid", func(r *AnalysisRecord) { r.TxID = "" }},
		{"status", func(r *AnalysisRecord) { r.Status = "done" }},
		{"vulnerability", func(r *AnalysisRecord) { r.VulnerabilityType = "twisted" }},
		{"coordinate", func(r *AnalysisRecord) { r.PublicKeyX = "xyz" }},
		{"signature", func(r *AnalysisRecord) { r.SignatureS = "" }},
		{"sighash", func(r *AnalysisRecord) { r.Sighash = 300 }},
		{"order", func(r *AnalysisRecord) { r.TwistOrder = "0x12" }},
		{"factor", func(r *AnalysisRecord) { r.PrimeFactors = []string{"three"} }},
		{"residue", func(r *AnalysisRecord) { r.PrivateKeyModulo = map[string]string{"3": "05"} }},
		{"recovered key", func(r *AnalysisRecord) { r.RecoveredPrivateKey = "nothex" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewAnalysisRecord(sampleResult(t))
			tc.mutate(rec)

			_, err := rec.Result()
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestFragmentRecord_Validation(t *testing.T) {
	set := NewKeyFragmentSet(fixtureOwnerKeyID)
	set.Add(Fragment{Modulus: big.NewInt(3), Residue: big.NewInt(3)})

	rec := NewFragmentRecord(fixtureOwnerKeyID, set, "")
	got, err := rec.Set()
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000000000000000000000000000000000000000000000000000", got.Residues["3"])

	bad := NewFragmentRecord("abc", set, "")
	_, err = bad.Set()
	assert.ErrorIs(t, err, ErrFormat)
}

func TestCachedStore_MemoizesTerminal(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStore()

	cached, err := NewCachedStore(backing, 4)
	require.NoError(t, err)

	pending := sampleResult(t)
	pending.TxID = "tx-pending"
	pending.Status = StatusPending
	require.NoError(t, cached.SaveAnalysis(ctx, pending))
	_, ok := cached.cache.Get("tx-pending")
	assert.False(t, ok)

	done := sampleResult(t)
	require.NoError(t, cached.SaveAnalysis(ctx, done))

	// served from the cache even when the backing store forgets it
	delete(backing.analyses, "tx-1")
	got, err := cached.LoadAnalysis(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	_, err = cached.LoadAnalysis(ctx, "tx-pending")
	require.NoError(t, err)

	_, err = NewCachedStore(backing, 0)
	assert.Error(t, err)
}

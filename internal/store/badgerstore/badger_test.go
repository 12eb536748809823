package badgerstore

import (
	"context"
	"testing"

	"github.com/mahdiidarabi/ecdsa-twist/internal/store/storetest"
	"github.com/mahdiidarabi/ecdsa-twist/pkg/ecdsatwist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ecdsatwist.Store {
		s, err := New("", nil)
		require.NoError(t, err)
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, nil)
	require.NoError(t, err)

	set := ecdsatwist.NewKeyFragmentSet("k")
	require.NoError(t, s.SaveFragments(ctx, "k", set, ""))
	require.NoError(t, s.Close())

	s, err = New(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	// "k" is not a valid key identity, so the stored record fails validation
	// on the way out; the point is that it was found.
	_, err = s.LoadFragments(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ecdsatwist.ErrNotFound)
	assert.ErrorIs(t, err, ecdsatwist.ErrFormat)
}

func TestStore_CanceledContext(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.LoadAnalysis(ctx, "tx")
	assert.ErrorIs(t, err, context.Canceled)
}

package sqlstore

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/mahdiidarabi/ecdsa-twist/internal/store/storetest"
	"github.com/mahdiidarabi/ecdsa-twist/pkg/ecdsatwist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQL_SQLiteMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ecdsatwist.Store {
		s, err := New(&url.URL{Scheme: "sqlitememory"}, nil)
		require.NoError(t, err)
		return s
	})
}

func TestSQL_SQLiteFile(t *testing.T) {
	dir := t.TempDir()

	storetest.Run(t, func(t *testing.T) ecdsatwist.Store {
		u, err := url.Parse("sqlite:///" + strings.ReplaceAll(t.Name(), "/", "_") + "?dataFolder=" + url.QueryEscape(dir))
		require.NoError(t, err)

		s, err := New(u, nil)
		require.NoError(t, err)
		return s
	})
}

func TestSQL_UnknownEngine(t *testing.T) {
	_, err := New(&url.URL{Scheme: "mysql"}, nil)
	assert.ErrorContains(t, err, "unknown database engine")
}

func TestSQL_CanceledContext(t *testing.T) {
	s, err := New(&url.URL{Scheme: "sqlitememory"}, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.LoadAnalysis(ctx, "tx")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDBName(t *testing.T) {
	u, _ := url.Parse("postgres://user:pw@localhost:5432/twist_db")
	assert.Equal(t, "twist_db", dbName(u))
	assert.Equal(t, "twist", dbName(&url.URL{Scheme: "sqlite"}))
}

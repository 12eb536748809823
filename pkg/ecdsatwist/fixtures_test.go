package ecdsatwist

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Fixtures computed offline for the key below. The faulty public keys are
// key·B where B is the generator lifted onto y^2 = x^3 + b.
const (
	fixtureKeyHex = "f1c0e9a7d4c3b8e1f6a2d9c4b7e"

	fixtureOwnerCompressed = "0395f3fa06b77d3e17661cb24cb6a607fde3c7539850ea3670d85857f702c0a0ff"
	fixtureOwnerKeyID      = "95f3fa06b77d3e17661cb24cb6a607fde3c7539850ea3670d85857f702c0a0ff" +
		"1c55ce8dea2799fa277a60f36c3982c1c78048b467189d92131d7db1691d5519"

	// y^2 = x^3 + 9, order 3^2 * 13^2 * 3319 * 22639 * q
	fixtureTwist9 = "04989892e7d459aab988d5f43569f6d0de877bae23190c9ebd763e4dd4630fbba0" +
		"0a4d61a05b3ed79331451994454757eb137c8cf4fff7ef22ed7d4ada8db7e091"

	// y^2 = x^3 + 18, order 3 * 199 * 18979 * c (c composite)
	fixtureTwist18 = "042c76f02495911783a0487bfce242c42a5af08b431bae02bd7ffb703eb2708959" +
		"1bbe0d2a785aad7cac0eaea50eba40ac972d341af23485209a023381e5308383"

	// y^2 = x^3 + 14, order 109903 * 12977017 * 383229727 * q
	fixtureTwist14 = "049874fb7b653f1bc266a091c0642c2ab5c801b117635cd52a33b6224b3d57c18e" +
		"e73ad5cbadd9c24b1491a7b4dc6158b2648750ab9759ac4e05d337cc559ae0a7"

	// y^2 = x^3
	fixtureSingular = "040a81dc98d7256a33fb4f8c364580b8cf52e4fa513565e3a45b781109fc5ed56b" +
		"59ff8a9d3989db1b1752425665e590ad1ddeb36f7d7bc1ff13778e61a5a913e0"

	// any DER signature; the twist analysis does not depend on it
	fixtureSignature = "304402201361de9b63f9d1755838cbe6142b112ed4293305a1effb7464323b7537ceed1c" +
		"02205948b8fa53f11b90eb7f6758d4273fff4424349e824d0df5c49567229b6e6c8b01"
)

var fixtureResidues = map[int64]int64{
	3319:      2392,
	22639:     14051,
	3:         0,
	199:       112,
	18979:     7706,
	109903:    52789,
	12977017:  11277011,
	383229727: 245555963,
}

func fixtureKey(t *testing.T) *big.Int {
	t.Helper()
	return mustHex(t, fixtureKeyHex)
}

func mustHex(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 16)
	require.True(t, ok, "bad hex literal %s", s)
	return v
}

func mustPoint(t *testing.T, s string) *CurvePoint {
	t.Helper()
	p, err := ParsePublicKey(s)
	require.NoError(t, err)
	return p
}

// testConfig keeps factorization cheap: the composite cofactors of the
// fixture orders are given up on quickly instead of after seconds of rho.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Factor.RhoIterations = 1 << 15
	cfg.Factor.RhoAttempts = 1
	cfg.Factor.PM1Bound = 2000
	cfg.Factor.Timeout = time.Minute
	cfg.Primality.Rounds = 10
	return cfg
}

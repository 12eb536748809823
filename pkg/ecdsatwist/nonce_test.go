package ecdsatwist

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two signatures by the fixture key with the same nonce.
const (
	reuseZ1   = "1111111111111111111111111111111111111111111111111111111111111111"
	reuseZ2   = "2222222222222222222222222222222222222222222222222222222222222222"
	reuseSig1 = "304402201361de9b63f9d1755838cbe6142b112ed4293305a1effb7464323b7537ceed1c" +
		"02205948b8fa53f11b90eb7f6758d4273fff4424349e824d0df5c49567229b6e6c8b01"
	reuseSig2 = "304502201361de9b63f9d1755838cbe6142b112ed4293305a1effb7464323b7537ceed1c" +
		"022100c476dc8d2e893a0ebc4bbc345cddfb35f8ad862ec77caa070f54dbb4fb86c08c01"

	// reuseSig2 with s replaced by n - s, as low-s normalization would do
	reuseSig2LowS = "304402201361de9b63f9d1755838cbe6142b112ed4293305a1effb7464323b7537ceed1c" +
		"02203b892372d176c5f143b443cba32204c8c20156b7e7cbf634b07d82d7d4af80b501"
)

func signedMessage(t *testing.T, z, der string) *SignedMessage {
	t.Helper()
	sig, err := ParseDERSignatureHex(der)
	require.NoError(t, err)
	return &SignedMessage{Z: mustHex(t, z), R: sig.R, S: sig.S}
}

func TestRecoverFromAffineNonces(t *testing.T) {
	m1 := signedMessage(t, reuseZ1, reuseSig1)
	m2 := signedMessage(t, reuseZ2, reuseSig2)

	priv, err := RecoverFromAffineNonces(m1, m2, big.NewInt(1), big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, 0, priv.Cmp(fixtureKey(t)))
}

func TestRecoverFromAffineNonces_ZeroDenominator(t *testing.T) {
	m1 := signedMessage(t, reuseZ1, reuseSig1)

	// identical signatures: r2·s1 - r1·s2 = 0
	_, err := RecoverFromAffineNonces(m1, m1, big.NewInt(1), big.NewInt(0))
	assert.ErrorContains(t, err, "denominator is zero")
}

func TestFindNonceReuse(t *testing.T) {
	owner := mustPoint(t, fixtureOwnerCompressed)

	tests := []struct {
		name string
		sig2 string
		a    int64
	}{
		{"same nonce", reuseSig2, 1},
		{"negated nonce", reuseSig2LowS, -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sigs := []*SignedMessage{
				{Z: big.NewInt(7), R: big.NewInt(99), S: big.NewInt(5)},
				signedMessage(t, reuseZ1, reuseSig1),
				signedMessage(t, reuseZ2, tc.sig2),
			}

			found := FindNonceReuse(sigs, owner)
			require.NotNil(t, found)
			assert.Equal(t, [2]int{1, 2}, found.Pair)
			assert.Equal(t, tc.a, found.Relationship.A.Int64())
			assert.Equal(t, 0, found.PrivateKey.Cmp(fixtureKey(t)))
		})
	}
}

func TestFindNonceReuse_WrongKey(t *testing.T) {
	sigs := []*SignedMessage{
		signedMessage(t, reuseZ1, reuseSig1),
		signedMessage(t, reuseZ2, reuseSig2),
	}

	other := publicKeyOf(t, big.NewInt(42))
	assert.Nil(t, FindNonceReuse(sigs, other))
}

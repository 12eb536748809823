package ecdsatwist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONParser(t *testing.T) {
	input := `[
		{"txid": "a", "publicKey": "` + fixtureTwist9 + `", "signature": "` + fixtureSignature + `"},
		{"txid": "b", "publicKey": "` + fixtureOwnerCompressed + `", "signature": "` + reuseSig1 + `", "messageHash": "` + reuseZ1 + `"}
	]`

	inputs, err := (&JSONParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "a", inputs[0].TxID)
	assert.Equal(t, fixtureTwist9, inputs[0].PublicKey)
	assert.Empty(t, inputs[0].MessageHash)
	assert.Equal(t, reuseZ1, inputs[1].MessageHash)
}

func TestJSONParser_CustomFields(t *testing.T) {
	input := `[{"hash": "a", "pubkey": "02aa", "sig": "3006020101020102", "owner": "03bb"}]`

	p := &JSONParser{Columns: Columns{TxID: "hash", PublicKey: "pubkey", Signature: "sig", OwnerPublicKey: "owner"}}
	inputs, err := p.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "03bb", inputs[0].OwnerPublicKey)
}

func TestJSONParser_Errors(t *testing.T) {
	for _, input := range []string{
		`{"txid": "a"}`,
		`[{"publicKey": "02", "signature": "30"}]`,
		`[{"txid": 5, "publicKey": "02", "signature": "30"}]`,
	} {
		_, err := (&JSONParser{}).Parse(strings.NewReader(input))
		assert.Error(t, err, input)
	}
}

func TestCSVParser(t *testing.T) {
	input := "txid,publicKey,signature,messageHash\n" +
		"a, " + fixtureTwist14 + "," + fixtureSignature + ",\n" +
		"b," + fixtureOwnerCompressed + "," + reuseSig2 + "," + reuseZ2 + "\n"

	inputs, err := (&CSVParser{}).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, fixtureTwist14, inputs[0].PublicKey)
	assert.Equal(t, reuseZ2, inputs[1].MessageHash)
	assert.Empty(t, inputs[1].OwnerPublicKey)
}

func TestCSVParser_MissingColumn(t *testing.T) {
	_, err := (&CSVParser{}).Parse(strings.NewReader("txid,signature\na,30\n"))
	assert.ErrorContains(t, err, "publicKey")
}

func TestParserFor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.CSV")
	require.NoError(t, os.WriteFile(path, []byte("txid,publicKey,signature\na,02,30\n"), 0o600))

	p := ParserFor(path)
	require.IsType(t, &CSVParser{}, p)

	inputs, err := p.ParseTransactions(path)
	require.NoError(t, err)
	assert.Len(t, inputs, 1)

	assert.IsType(t, &JSONParser{}, ParserFor("inputs.json"))
}

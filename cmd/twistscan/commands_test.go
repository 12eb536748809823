package main

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12345", 12345, false},
		{"0x3039", 12345, false},
		{" 0X3039 ", 12345, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"12ab", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := parseInteger(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Int64())
		})
	}
}

func TestDecimals(t *testing.T) {
	assert.Equal(t, []string{"3", "199"}, decimals([]*big.Int{big.NewInt(3), big.NewInt(199)}))
	assert.Empty(t, decimals(nil))
}

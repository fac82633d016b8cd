package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pharmachain/pkg/domain-errors"
)

// EIP-55 reference vectors.
var checksummed = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestParseAddress(t *testing.T) {
	t.Run("accepts checksummed addresses and canonicalizes to lowercase", func(t *testing.T) {
		for _, s := range checksummed {
			a, err := ParseAddress(s)
			require.NoError(t, err, s)
			assert.Equal(t, strings.ToLower(s), a.String())
			assert.Equal(t, s, a.Checksum())
		}
	})

	t.Run("accepts single-case input without checksum", func(t *testing.T) {
		lower := strings.ToLower(checksummed[0])
		upper := "0x" + strings.ToUpper(lower[2:])
		a1, err := ParseAddress(lower)
		require.NoError(t, err)
		a2, err := ParseAddress(upper)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
	})

	t.Run("accepts missing 0x prefix", func(t *testing.T) {
		a, err := ParseAddress(strings.TrimPrefix(checksummed[1], "0x"))
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(checksummed[1]), a.String())
	})

	t.Run("rejects bad checksum", func(t *testing.T) {
		bad := "0x5aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
		_, err := ParseAddress(bad)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentity))
	})

	t.Run("rejects wrong length and non-hex", func(t *testing.T) {
		for _, s := range []string{"", "0x", "0x1234", "0xZZaeb6053F3E94C9b9A09f33669435E7Ef1BeAed", checksummed[0] + "00"} {
			_, err := ParseAddress(s)
			require.Error(t, err, s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentity), s)
		}
	})
}

func TestZeroAddress(t *testing.T) {
	a, err := ParseAddress("0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.True(t, a.IsZero())
	assert.True(t, Address("").IsZero())
	assert.False(t, MustParseAddress(checksummed[0]).IsZero())
}

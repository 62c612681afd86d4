package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		v, err := Generate(PrefixLoan)
		require.NoError(t, err)
		assert.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
}

func TestGenerate_Prefix(t *testing.T) {
	for _, prefix := range []string{PrefixBook, PrefixMember, PrefixLoan, PrefixReservation, PrefixFine, PrefixPayment} {
		t.Run(prefix, func(t *testing.T) {
			v, err := Generate(prefix)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(v, prefix+"-"))
			assert.Len(t, v, len(prefix)+1+21)
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate(PrefixFine), "fine-"))
	})
}

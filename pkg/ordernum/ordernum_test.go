package ordernum

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderNumber(t *testing.T) {
	t.Parallel()

	number, err := NewOrderNumber()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, "ORD-"))
	assert.Len(t, number, len(OrderPrefix)+1+suffixLength)

	for _, r := range strings.TrimPrefix(number, "ORD-") {
		assert.Contains(t, alphabet, string(r))
	}
}

func TestNewSellerOrderNumberDistinctPrefix(t *testing.T) {
	t.Parallel()

	number, err := NewSellerOrderNumber()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, "SLR-"))
}

func TestGenerateIsNotConstant(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		number, err := NewOrderNumber()
		require.NoError(t, err)
		seen[number] = struct{}{}
	}
	assert.Greater(t, len(seen), 90)
}

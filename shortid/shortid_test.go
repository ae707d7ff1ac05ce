package shortid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShape(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id, err := New()
		require.NoError(t, err)
		assert.Len(t, id, Length)
		assert.True(t, Valid(id), "generated id %q must match its own pattern", id)
		for _, c := range id {
			assert.Contains(t, Alphabet, string(c))
		}
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id, err := New()
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %q after %d draws", id, i)
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("abc1234"))
	assert.True(t, Valid("A-b_C9d2eF1234"))

	assert.False(t, Valid("short"))                // under 7
	assert.False(t, Valid(strings.Repeat("a", 15))) // over 14
	assert.False(t, Valid("has space7"))
	assert.False(t, Valid("dot.dot77"))
	assert.False(t, Valid(""))
}

package lot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Create(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Create("conv"))
	assert.True(t, s.Exists("conv"))
	assert.Equal(t, 1, s.Active())

	n, ok := s.Len("conv")
	require.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestStore_CreateExistingLeavesBufferUntouched(t *testing.T) {
	s := NewStore()

	require.True(t, s.Create("conv"))
	_, ok := s.Append("conv", []byte("img"))
	require.True(t, ok)

	assert.False(t, s.Create("conv"))

	n, ok := s.Len("conv")
	require.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	s := NewStore()
	require.True(t, s.Create("conv"))

	payloads := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("b")}
	for i, p := range payloads {
		n, ok := s.Append("conv", p)
		require.True(t, ok)
		assert.Equal(t, i+1, n)
	}

	items, ok := s.Items("conv")
	require.True(t, ok)
	// Duplicates survive, order matches arrival.
	assert.Equal(t, payloads, items)
}

func TestStore_AppendWithoutSession(t *testing.T) {
	s := NewStore()

	_, ok := s.Append("conv", []byte("img"))
	assert.False(t, ok)
	assert.False(t, s.Exists("conv"))
}

func TestStore_ItemsReturnsSnapshot(t *testing.T) {
	s := NewStore()
	require.True(t, s.Create("conv"))
	_, _ = s.Append("conv", []byte("a"))

	items, ok := s.Items("conv")
	require.True(t, ok)

	_, _ = s.Append("conv", []byte("b"))
	assert.Len(t, items, 1)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore()
	require.True(t, s.Create("conv"))

	assert.True(t, s.Delete("conv"))
	assert.False(t, s.Exists("conv"))
	assert.Equal(t, 0, s.Active())

	// Deleting again is a no-op
	assert.False(t, s.Delete("conv"))
}

func TestStore_IndependentConversations(t *testing.T) {
	s := NewStore()
	require.True(t, s.Create("a"))
	require.True(t, s.Create("b"))

	_, _ = s.Append("a", []byte("img"))

	nA, _ := s.Len("a")
	nB, _ := s.Len("b")
	assert.Equal(t, 1, nA)
	assert.Equal(t, 0, nB)
	assert.Equal(t, 2, s.Active())
}

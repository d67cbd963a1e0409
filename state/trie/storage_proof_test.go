package trie_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/state/trie"
)

func TestStorageProof(t *testing.T) {
	a, b, c := []byte("node-a"), []byte("node-b"), []byte("node-c")

	t.Run("duplicates collapse", func(t *testing.T) {
		proof := trie.NewStorageProof([][]byte{a, b, a})
		assert.Equal(t, 2, proof.Len())
		assert.False(t, proof.IsEmpty())
		assert.True(t, trie.EmptyStorageProof().IsEmpty())
	})

	t.Run("merge is a union", func(t *testing.T) {
		merged := trie.MergeStorageProofs(
			trie.NewStorageProof([][]byte{a, b}),
			trie.NewStorageProof([][]byte{b, c}),
		)
		assert.Equal(t, [][]byte{a, b, c}, merged.Nodes())
	})

	t.Run("encoding is independent of insertion order", func(t *testing.T) {
		first, err := trie.NewStorageProof([][]byte{c, a, b}).Encode()
		require.NoError(t, err)
		second, err := trie.NewStorageProof([][]byte{b, c, a}).Encode()
		require.NoError(t, err)
		assert.Equal(t, first, second)

		decoded, err := trie.DecodeStorageProof(first)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{a, b, c}, decoded.Nodes())
	})

	t.Run("memory db addresses nodes by their hash", func(t *testing.T) {
		db := trie.NewStorageProof([][]byte{a}).IntoMemoryDB()
		assert.True(t, db.Contains(nil, crypto.Keccak256Hash(a)))
		assert.True(t, db.Contains([]byte("any keyspace"), crypto.Keccak256Hash(a)))
		assert.False(t, db.Contains(nil, crypto.Keccak256Hash(b)))
	})

	t.Run("garbage does not decode", func(t *testing.T) {
		_, err := trie.DecodeStorageProof([]byte{0xff, 0x00})
		require.Error(t, err)
	})
}

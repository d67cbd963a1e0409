package trie_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalitylab/grandpa-node/state/trie"
)

func TestMemoryDB_Keyspaces(t *testing.T) {
	blob := []byte("node")

	t.Run("keyspaces are isolated", func(t *testing.T) {
		db := trie.NewMemoryDB()
		hash := db.Insert([]byte("a"), blob)
		assert.Equal(t, crypto.Keccak256Hash(blob), hash)

		assert.True(t, db.Contains([]byte("a"), hash))
		assert.False(t, db.Contains([]byte("b"), hash))
		assert.False(t, db.Contains(nil, hash))

		value, err := db.Get([]byte("b"), hash)
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("hash keyed store ignores keyspaces", func(t *testing.T) {
		db := trie.NewHashKeyedMemoryDB()
		hash := db.Insert([]byte("a"), blob)
		value, err := db.Get([]byte("b"), hash)
		require.NoError(t, err)
		assert.Equal(t, blob, value)
	})

	t.Run("nodes leaves the store intact", func(t *testing.T) {
		db := trie.NewMemoryDB()
		db.Insert(nil, []byte("one"))
		db.Insert([]byte("a"), []byte("two"))
		nodes := db.Nodes()
		assert.Len(t, nodes, 2)
		assert.Equal(t, 2, db.Len())
	})
}

func TestEphemeral_WritesStayInOverlay(t *testing.T) {
	backing := trie.NewMemoryDB()
	below := backing.Insert(nil, []byte("below"))

	overlay := trie.NewMemoryDB()
	eph := trie.NewEphemeral(backing, overlay)

	value, err := eph.Get(nil, below)
	require.NoError(t, err)
	assert.Equal(t, []byte("below"), value)

	above := crypto.Keccak256Hash([]byte("above"))
	eph.Put(nil, above, []byte("above"))
	value, err = eph.Get(nil, above)
	require.NoError(t, err)
	assert.Equal(t, []byte("above"), value)

	assert.False(t, backing.Contains(nil, above))
	assert.True(t, overlay.Contains(nil, above))
}

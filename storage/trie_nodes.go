package storage

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/finalitylab/grandpa-node/state/trie"
)

// TrieNodes is the persistent node store of the state tries.
type TrieNodes interface {
	trie.Storage

	// Store persists one node. Storing a node twice is a no-op.
	Store(keyspace []byte, hash common.Hash, blob []byte) error

	// Commit persists every node of an overlay produced by a state update.
	Commit(overlay *trie.MemoryDB) error
}

package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/triedb/database"
	mpt "github.com/ethereum/go-ethereum/trie"
)

// Storage is a content-addressed store of encoded trie nodes. Nodes of the
// top trie live in the empty keyspace; every child trie uses its own.
type Storage interface {
	// Get returns the node blob stored under hash in the given keyspace, or
	// nil if there is none. Errors are reserved for failures of the store.
	Get(keyspace []byte, hash common.Hash) ([]byte, error)
}

// Node is one stored trie node together with its location.
type Node struct {
	Keyspace []byte
	Hash     common.Hash
	Blob     []byte
}

// nodeDatabase exposes one keyspace of a Storage as the node database
// expected by the trie implementation.
type nodeDatabase struct {
	storage  Storage
	keyspace []byte
}

var _ database.NodeDatabase = (*nodeDatabase)(nil)
var _ database.NodeReader = (*nodeDatabase)(nil)

func newNodeDatabase(storage Storage, keyspace []byte) *nodeDatabase {
	return &nodeDatabase{
		storage:  storage,
		keyspace: keyspace,
	}
}

// NodeReader returns the database itself: nodes are addressed by hash so
// every state root shares one reader.
func (db *nodeDatabase) NodeReader(_ common.Hash) (database.NodeReader, error) {
	return db, nil
}

func (db *nodeDatabase) Node(_ common.Hash, _ []byte, hash common.Hash) ([]byte, error) {
	return db.storage.Get(db.keyspace, hash)
}

// openTrie opens the trie with the given root inside a keyspace of storage.
func openTrie(storage Storage, keyspace []byte, root common.Hash) (*mpt.Trie, error) {
	return mpt.New(mpt.TrieID(root), newNodeDatabase(storage, keyspace))
}

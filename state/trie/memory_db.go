package trie

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MemoryDB is an in-memory node Storage. It is safe for concurrent use.
type MemoryDB struct {
	mu      sync.RWMutex
	hashKey bool
	nodes   map[string]Node
}

var _ Storage = (*MemoryDB)(nil)

// NewMemoryDB returns a store which keeps keyspaces apart.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		nodes: make(map[string]Node),
	}
}

// NewHashKeyedMemoryDB returns a store which ignores keyspaces and addresses
// nodes by hash only. Proof checking uses it since a proof carries no
// keyspace information.
func NewHashKeyedMemoryDB() *MemoryDB {
	return &MemoryDB{
		hashKey: true,
		nodes:   make(map[string]Node),
	}
}

// key is unique per (keyspace, hash) pair because the hash has a fixed length.
func (db *MemoryDB) key(keyspace []byte, hash common.Hash) string {
	if db.hashKey {
		return string(hash[:])
	}
	return string(keyspace) + string(hash[:])
}

func (db *MemoryDB) Get(keyspace []byte, hash common.Hash) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	node, ok := db.nodes[db.key(keyspace, hash)]
	if !ok {
		return nil, nil
	}
	return node.Blob, nil
}

func (db *MemoryDB) Contains(keyspace []byte, hash common.Hash) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.nodes[db.key(keyspace, hash)]
	return ok
}

// Put stores blob under the given hash. The caller guarantees that hash is
// the hash of blob.
func (db *MemoryDB) Put(keyspace []byte, hash common.Hash, blob []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nodes[db.key(keyspace, hash)] = Node{
		Keyspace: common.CopyBytes(keyspace),
		Hash:     hash,
		Blob:     common.CopyBytes(blob),
	}
}

// Insert hashes blob and stores it.
func (db *MemoryDB) Insert(keyspace []byte, blob []byte) common.Hash {
	hash := crypto.Keccak256Hash(blob)
	db.Put(keyspace, hash, blob)
	return hash
}

func (db *MemoryDB) Remove(keyspace []byte, hash common.Hash) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.nodes, db.key(keyspace, hash))
}

func (db *MemoryDB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.nodes)
}

// Merge copies every node of other into db.
func (db *MemoryDB) Merge(other *MemoryDB) {
	if other == nil || other == db {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, node := range other.nodes {
		db.nodes[db.key(node.Keyspace, node.Hash)] = node
	}
}

// ForEach calls fn for every stored node in unspecified order. fn must not
// modify db.
func (db *MemoryDB) ForEach(fn func(node Node)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, node := range db.nodes {
		fn(node)
	}
}

// Nodes returns all nodes ordered by keyspace and hash without removing them.
func (db *MemoryDB) Nodes() []Node {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := make([]string, 0, len(db.nodes))
	for key := range db.nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	nodes := make([]Node, 0, len(keys))
	for _, key := range keys {
		nodes = append(nodes, db.nodes[key])
	}
	return nodes
}

package operation

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/common"
)

// InsertTrieNode stores a trie node. Nodes are content addressed, so an
// existing node under the same key is left untouched.
func InsertTrieNode(keyspace []byte, hash common.Hash, blob []byte) func(*badger.Txn) error {
	return SkipDuplicates(insert(makePrefix(codeTrieNode, keyspace, hash), blob))
}

func RetrieveTrieNode(keyspace []byte, hash common.Hash, blob *[]byte) func(*badger.Txn) error {
	return retrieve(makePrefix(codeTrieNode, keyspace, hash), blob)
}

func TrieNodeExists(keyspace []byte, hash common.Hash, nodeExists *bool) func(*badger.Txn) error {
	return exists(makePrefix(codeTrieNode, keyspace, hash), nodeExists)
}

package trie

import (
	"github.com/ethereum/go-ethereum/common"
)

const (
	// ChildStorageKeyPrefix starts every top-trie key that holds a child root.
	ChildStorageKeyPrefix = ":child_storage:"
	// DefaultChildStorageKeyPrefix is the location of default child tries.
	DefaultChildStorageKeyPrefix = ChildStorageKeyPrefix + "default:"
)

// ChildInfo identifies a default child trie. Its root is stored in the top
// trie under the prefixed storage key and its nodes live in a keyspace equal
// to the unprefixed storage key.
type ChildInfo struct {
	storageKey []byte
}

func NewDefaultChildInfo(storageKey []byte) ChildInfo {
	return ChildInfo{storageKey: common.CopyBytes(storageKey)}
}

// StorageKey is the unprefixed key of the child trie.
func (c ChildInfo) StorageKey() []byte {
	return c.storageKey
}

// PrefixedStorageKey is the top-trie key at which the child root is stored.
func (c ChildInfo) PrefixedStorageKey() []byte {
	key := make([]byte, 0, len(DefaultChildStorageKeyPrefix)+len(c.storageKey))
	key = append(key, DefaultChildStorageKeyPrefix...)
	return append(key, c.storageKey...)
}

// Keyspace is the node store namespace of the child trie.
func (c ChildInfo) Keyspace() []byte {
	return c.storageKey
}

func (c ChildInfo) String() string {
	return string(c.storageKey)
}

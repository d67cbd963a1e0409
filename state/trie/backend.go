package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// KeyValue is one change of a storage delta. An empty Value deletes the key.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// ChildDelta is the delta of one child trie.
type ChildDelta struct {
	Child ChildInfo
	Delta []KeyValue
}

// Backend is a state backend over a trie. It extends the read operations of
// Essence with listings and with root computation for storage deltas.
type Backend struct {
	*Essence
}

func NewBackend(log zerolog.Logger, storage Storage, root common.Hash) *Backend {
	return &Backend{
		Essence: NewEssence(log, storage, root),
	}
}

// WithStorage returns a backend for the same root reading from storage.
func (b *Backend) WithStorage(storage Storage) *Backend {
	return &Backend{
		Essence: NewEssence(b.log, storage, b.Root()),
	}
}

// Pairs lists every key-value pair of the top trie.
func (b *Backend) Pairs() []KeyValue {
	var pairs []KeyValue
	b.ForKeyValuesWithPrefix(nil, func(key, value []byte) {
		pairs = append(pairs, KeyValue{Key: common.CopyBytes(key), Value: common.CopyBytes(value)})
	})
	return pairs
}

// Keys lists the keys of the top trie starting with prefix.
func (b *Backend) Keys(prefix []byte) [][]byte {
	var keys [][]byte
	b.ForKeysWithPrefix(prefix, func(key []byte) {
		keys = append(keys, common.CopyBytes(key))
	})
	return keys
}

// ChildKeys lists the keys of a child trie starting with prefix.
func (b *Backend) ChildKeys(child ChildInfo, prefix []byte) [][]byte {
	var keys [][]byte
	b.ForKeysWithChildPrefix(child, prefix, func(key []byte) {
		keys = append(keys, common.CopyBytes(key))
	})
	return keys
}

// StorageRoot computes the root of the top trie after applying delta. The
// new nodes are returned in a MemoryDB; the backend itself is not modified.
func (b *Backend) StorageRoot(delta []KeyValue) (common.Hash, *MemoryDB, error) {
	overlay := NewMemoryDB()
	root, err := b.applyDelta(overlay, nil, b.Root(), delta)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return root, overlay, nil
}

// ChildStorageRoot computes the root of a child trie after applying delta and
// reports whether the result is the empty trie.
func (b *Backend) ChildStorageRoot(child ChildInfo, delta []KeyValue) (common.Hash, bool, *MemoryDB, error) {
	current, err := b.ChildRoot(child)
	if err != nil {
		return common.Hash{}, false, nil, err
	}
	overlay := NewMemoryDB()
	root, err := b.applyDelta(overlay, child.Keyspace(), current, delta)
	if err != nil {
		return common.Hash{}, false, nil, fmt.Errorf("could not update child trie %s: %w", child, err)
	}
	return root, root == types.EmptyRootHash, overlay, nil
}

// FullStorageRoot applies the child deltas, records the resulting child roots
// in the top trie (removing children that became empty), then applies delta
// to the top trie.
func (b *Backend) FullStorageRoot(delta []KeyValue, children []ChildDelta) (common.Hash, *MemoryDB, error) {
	overlay := NewMemoryDB()
	top := make([]KeyValue, 0, len(children)+len(delta))
	for _, child := range children {
		root, empty, childOverlay, err := b.ChildStorageRoot(child.Child, child.Delta)
		if err != nil {
			return common.Hash{}, nil, err
		}
		overlay.Merge(childOverlay)
		change := KeyValue{Key: child.Child.PrefixedStorageKey()}
		if !empty {
			change.Value = root.Bytes()
		}
		top = append(top, change)
	}
	top = append(top, delta...)

	root, err := b.applyDelta(overlay, nil, b.Root(), top)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return root, overlay, nil
}

// applyDelta writes delta into the trie at root within keyspace and commits.
// Nodes are read through an Ephemeral over overlay, and the committed nodes
// are written to overlay.
func (b *Backend) applyDelta(overlay *MemoryDB, keyspace []byte, root common.Hash, delta []KeyValue) (common.Hash, error) {
	eph := NewEphemeral(b.BackendStorage(), overlay)
	tr, err := openTrie(eph, keyspace, root)
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not open trie at %x: %w", root, err)
	}
	for _, change := range delta {
		if len(change.Value) == 0 {
			err = tr.Delete(change.Key)
		} else {
			err = tr.Update(change.Key, change.Value)
		}
		if err != nil {
			return common.Hash{}, fmt.Errorf("could not apply change to key %x: %w", change.Key, err)
		}
	}

	newRoot, nodes := tr.Commit(false)
	if nodes == nil {
		return newRoot, nil
	}
	for _, node := range nodes.Nodes {
		// deleted nodes carry no blob; the store is append-only
		if len(node.Blob) == 0 {
			continue
		}
		eph.Put(keyspace, node.Hash, node.Blob)
	}
	return newRoot, nil
}

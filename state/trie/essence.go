package trie

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	mpt "github.com/ethereum/go-ethereum/trie"
	"github.com/rs/zerolog"
)

// Essence answers reads against one trie root over a node Storage. Every
// operation opens the trie through a fresh Ephemeral overlay, so concurrent
// readers never share mutable state.
type Essence struct {
	log     zerolog.Logger
	storage Storage
	root    common.Hash
}

func NewEssence(log zerolog.Logger, storage Storage, root common.Hash) *Essence {
	return &Essence{
		log:     log.With().Str("component", "trie_essence").Logger(),
		storage: storage,
		root:    root,
	}
}

func (e *Essence) Root() common.Hash {
	return e.root
}

// BackendStorage returns the node store the essence reads from.
func (e *Essence) BackendStorage() Storage {
	return e.storage
}

// Storage returns the value stored under key, or nil if the key is absent.
// An error means a node reachable from the root could not be loaded.
func (e *Essence) Storage(key []byte) ([]byte, error) {
	return e.lookup(nil, e.root, key)
}

// ChildRoot returns the root of a child trie. A child trie that was never
// written has the empty root.
func (e *Essence) ChildRoot(child ChildInfo) (common.Hash, error) {
	value, err := e.Storage(child.PrefixedStorageKey())
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not read root of child trie %s: %w", child, err)
	}
	switch len(value) {
	case 0:
		return types.EmptyRootHash, nil
	case common.HashLength:
		return common.BytesToHash(value), nil
	default:
		return common.Hash{}, fmt.Errorf("root of child trie %s has invalid length %d", child, len(value))
	}
}

// ChildStorage returns the value stored under key in a child trie.
func (e *Essence) ChildStorage(child ChildInfo, key []byte) ([]byte, error) {
	root, err := e.ChildRoot(child)
	if err != nil {
		return nil, err
	}
	return e.lookup(child.Keyspace(), root, key)
}

func (e *Essence) lookup(keyspace []byte, root common.Hash, key []byte) ([]byte, error) {
	eph := NewEphemeral(e.storage, NewMemoryDB())
	tr, err := openTrie(eph, keyspace, root)
	if err != nil {
		return nil, fmt.Errorf("trie lookup error: %w", err)
	}
	value, err := tr.Get(key)
	if err != nil {
		return nil, fmt.Errorf("trie lookup error: %w", err)
	}
	return value, nil
}

// ForKeysWithPrefix calls f for every key of the top trie starting with
// prefix, in key order. Iteration stops at the first error, which is logged.
// Use ForKeysWithPrefixStrict where a truncated listing is not acceptable.
func (e *Essence) ForKeysWithPrefix(prefix []byte, f func(key []byte)) {
	err := e.ForKeysWithPrefixStrict(prefix, func(key []byte) error {
		f(key)
		return nil
	})
	if err != nil {
		e.log.Debug().Err(err).Hex("prefix", prefix).Msg("error while iterating by prefix")
	}
}

// ForKeysWithPrefixStrict is ForKeysWithPrefix but returns the first error
// from the trie or from f.
func (e *Essence) ForKeysWithPrefixStrict(prefix []byte, f func(key []byte) error) error {
	return e.iterate(nil, e.root, prefix, func(key, _ []byte) error {
		return f(key)
	})
}

// ForKeyValuesWithPrefix calls f for every key-value pair of the top trie
// whose key starts with prefix. Errors are logged and end the iteration.
func (e *Essence) ForKeyValuesWithPrefix(prefix []byte, f func(key, value []byte)) {
	err := e.iterate(nil, e.root, prefix, func(key, value []byte) error {
		f(key, value)
		return nil
	})
	if err != nil {
		e.log.Debug().Err(err).Hex("prefix", prefix).Msg("error while iterating key values by prefix")
	}
}

// ForKeysInChildStorage calls f for every key of a child trie.
func (e *Essence) ForKeysInChildStorage(child ChildInfo, f func(key []byte)) {
	e.ForKeysWithChildPrefix(child, nil, f)
}

// ForKeysWithChildPrefix calls f for every key of a child trie starting with
// prefix. Errors are logged and end the iteration.
func (e *Essence) ForKeysWithChildPrefix(child ChildInfo, prefix []byte, f func(key []byte)) {
	err := e.ForKeysWithChildPrefixStrict(child, prefix, func(key []byte) error {
		f(key)
		return nil
	})
	if err != nil {
		e.log.Debug().
			Err(err).
			Str("storage_key", child.String()).
			Hex("prefix", prefix).
			Msg("error while iterating child storage by prefix")
	}
}

// ForKeysWithChildPrefixStrict is ForKeysWithChildPrefix but returns the first
// error from the trie or from f.
func (e *Essence) ForKeysWithChildPrefixStrict(child ChildInfo, prefix []byte, f func(key []byte) error) error {
	root, err := e.ChildRoot(child)
	if err != nil {
		return err
	}
	return e.iterate(child.Keyspace(), root, prefix, func(key, _ []byte) error {
		return f(key)
	})
}

// ForEachNode loads every hashed node of the top trie and calls f with its
// hash. Nodes embedded in their parent are not visited.
func (e *Essence) ForEachNode(f func(hash common.Hash) error) error {
	return e.walkNodes(nil, e.root, f)
}

// ForEachChildNode is ForEachNode for a child trie. The top trie nodes on the
// path to the child root are loaded as well.
func (e *Essence) ForEachChildNode(child ChildInfo, f func(hash common.Hash) error) error {
	root, err := e.ChildRoot(child)
	if err != nil {
		return err
	}
	return e.walkNodes(child.Keyspace(), root, f)
}

func (e *Essence) walkNodes(keyspace []byte, root common.Hash, f func(hash common.Hash) error) error {
	if root == types.EmptyRootHash {
		return nil
	}
	eph := NewEphemeral(e.storage, NewMemoryDB())
	tr, err := openTrie(eph, keyspace, root)
	if err != nil {
		return fmt.Errorf("could not open trie at %x: %w", root, err)
	}
	it, err := tr.NodeIterator(nil)
	if err != nil {
		return fmt.Errorf("could not create trie iterator: %w", err)
	}
	for it.Next(true) {
		hash := it.Hash()
		if hash == (common.Hash{}) {
			continue
		}
		if err := f(hash); err != nil {
			return err
		}
	}
	if it.Error() != nil {
		return fmt.Errorf("trie iteration error: %w", it.Error())
	}
	return nil
}

// NextStorageKey returns the smallest key of the top trie strictly greater
// than key, or nil if there is none.
func (e *Essence) NextStorageKey(key []byte) ([]byte, error) {
	return e.nextKey(nil, e.root, key)
}

// NextChildStorageKey returns the smallest key of a child trie strictly
// greater than key, or nil if there is none.
func (e *Essence) NextChildStorageKey(child ChildInfo, key []byte) ([]byte, error) {
	root, err := e.ChildRoot(child)
	if err != nil {
		return nil, err
	}
	return e.nextKey(child.Keyspace(), root, key)
}

func (e *Essence) nextKey(keyspace []byte, root common.Hash, key []byte) ([]byte, error) {
	it, err := e.leafIterator(keyspace, root, key)
	if err != nil {
		return nil, err
	}
	for it.Next() {
		if bytes.Compare(it.Key, key) > 0 {
			return common.CopyBytes(it.Key), nil
		}
	}
	if it.Err != nil {
		return nil, fmt.Errorf("trie iteration error: %w", it.Err)
	}
	return nil, nil
}

// iterate walks the leaves of a trie in key order starting at prefix and
// stops at the first key that no longer carries the prefix.
func (e *Essence) iterate(keyspace []byte, root common.Hash, prefix []byte, f func(key, value []byte) error) error {
	it, err := e.leafIterator(keyspace, root, prefix)
	if err != nil {
		return err
	}
	for it.Next() {
		if !bytes.HasPrefix(it.Key, prefix) {
			return nil
		}
		if err := f(it.Key, it.Value); err != nil {
			return err
		}
	}
	if it.Err != nil {
		return fmt.Errorf("trie iteration error: %w", it.Err)
	}
	return nil
}

func (e *Essence) leafIterator(keyspace []byte, root common.Hash, start []byte) (*mpt.Iterator, error) {
	eph := NewEphemeral(e.storage, NewMemoryDB())
	tr, err := openTrie(eph, keyspace, root)
	if err != nil {
		return nil, fmt.Errorf("could not open trie at %x: %w", root, err)
	}
	nodeIt, err := tr.NodeIterator(start)
	if err != nil {
		return nil, fmt.Errorf("could not create trie iterator: %w", err)
	}
	return mpt.NewIterator(nodeIt), nil
}

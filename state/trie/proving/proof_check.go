package proving

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/finalitylab/grandpa-node/state/trie"
)

// CreateProofCheckBackend returns a backend that answers lookups from the
// nodes of proof only. It fails with trie.ErrInvalidProof unless the proof
// contains the root node. Lookups which need a node missing from the proof
// return an error rather than reporting the key as absent.
func CreateProofCheckBackend(log zerolog.Logger, root common.Hash, proof trie.StorageProof) (*trie.Backend, error) {
	db := proof.IntoMemoryDB()
	if root != types.EmptyRootHash && !db.Contains(nil, root) {
		return nil, fmt.Errorf("root %x is not part of the proof: %w", root, trie.ErrInvalidProof)
	}
	return trie.NewBackend(log, db, root), nil
}

// ReadProofCheck verifies proof against root and returns the value of every
// requested key. A nil value proves the key absent.
func ReadProofCheck(log zerolog.Logger, root common.Hash, proof trie.StorageProof, keys [][]byte) (map[string][]byte, error) {
	backend, err := CreateProofCheckBackend(log, root, proof)
	if err != nil {
		return nil, err
	}
	values := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := backend.Storage(key)
		if err != nil {
			return nil, fmt.Errorf("could not prove key %x: %w", key, err)
		}
		values[string(key)] = value
	}
	return values, nil
}

// ReadChildProofCheck is ReadProofCheck for keys of a child trie.
func ReadChildProofCheck(log zerolog.Logger, root common.Hash, proof trie.StorageProof, child trie.ChildInfo, keys [][]byte) (map[string][]byte, error) {
	backend, err := CreateProofCheckBackend(log, root, proof)
	if err != nil {
		return nil, err
	}
	values := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := backend.ChildStorage(child, key)
		if err != nil {
			return nil, fmt.Errorf("could not prove key %x of child trie %s: %w", key, child, err)
		}
		values[string(key)] = value
	}
	return values, nil
}

// ProveRead reads keys from backend and returns the proof of those reads.
func ProveRead(backend *trie.Backend, keys [][]byte) (trie.StorageProof, error) {
	prover := NewProvingBackend(backend)
	for _, key := range keys {
		if _, err := prover.Storage(key); err != nil {
			return trie.StorageProof{}, fmt.Errorf("could not read key %x: %w", key, err)
		}
	}
	return prover.ExtractProof(), nil
}

// ProveChildRead reads keys of a child trie and returns the proof of those reads.
func ProveChildRead(backend *trie.Backend, child trie.ChildInfo, keys [][]byte) (trie.StorageProof, error) {
	prover := NewProvingBackend(backend)
	for _, key := range keys {
		if _, err := prover.ChildStorage(child, key); err != nil {
			return trie.StorageProof{}, fmt.Errorf("could not read key %x of child trie %s: %w", key, child, err)
		}
	}
	return prover.ExtractProof(), nil
}

package trie

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
)

// StorageProof is an unordered set of encoded trie nodes. Together with a
// trusted root it lets a verifier repeat the lookups that produced it.
type StorageProof struct {
	nodes map[common.Hash][]byte
}

// NewStorageProof builds a proof from raw nodes. Duplicates collapse.
func NewStorageProof(nodes [][]byte) StorageProof {
	proof := StorageProof{nodes: make(map[common.Hash][]byte, len(nodes))}
	for _, node := range nodes {
		proof.nodes[crypto.Keccak256Hash(node)] = common.CopyBytes(node)
	}
	return proof
}

func EmptyStorageProof() StorageProof {
	return StorageProof{}
}

func (p StorageProof) IsEmpty() bool {
	return len(p.nodes) == 0
}

func (p StorageProof) Len() int {
	return len(p.nodes)
}

// Nodes returns the proof nodes ordered by their bytes.
func (p StorageProof) Nodes() [][]byte {
	nodes := make([][]byte, 0, len(p.nodes))
	for _, node := range p.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return bytes.Compare(nodes[i], nodes[j]) < 0
	})
	return nodes
}

// Size is the total length of all nodes in bytes.
func (p StorageProof) Size() int {
	size := 0
	for _, node := range p.nodes {
		size += len(node)
	}
	return size
}

// IntoMemoryDB loads the proof into a hash-keyed store. Every node is stored
// under its own hash, so a proof cannot place a node at a foreign hash.
func (p StorageProof) IntoMemoryDB() *MemoryDB {
	db := NewHashKeyedMemoryDB()
	for hash, node := range p.nodes {
		db.Put(nil, hash, node)
	}
	return db
}

// MergeStorageProofs returns the union of the given proofs.
func MergeStorageProofs(proofs ...StorageProof) StorageProof {
	merged := StorageProof{nodes: make(map[common.Hash][]byte)}
	for _, proof := range proofs {
		for hash, node := range proof.nodes {
			merged.nodes[hash] = node
		}
	}
	return merged
}

// Encode serializes the proof as a CBOR array of byte strings in Nodes order.
func (p StorageProof) Encode() ([]byte, error) {
	data, err := cbor.Marshal(p.Nodes())
	if err != nil {
		return nil, fmt.Errorf("could not encode storage proof: %w", err)
	}
	return data, nil
}

func DecodeStorageProof(data []byte) (StorageProof, error) {
	var nodes [][]byte
	if err := cbor.Unmarshal(data, &nodes); err != nil {
		return StorageProof{}, fmt.Errorf("could not decode storage proof: %w", err)
	}
	return NewStorageProof(nodes), nil
}

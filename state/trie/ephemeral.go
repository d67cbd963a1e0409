package trie

import (
	"github.com/ethereum/go-ethereum/common"
)

// Ephemeral layers a write overlay in front of a backing Storage for the
// duration of one trie operation. Reads consult the overlay first; writes
// only ever reach the overlay.
type Ephemeral struct {
	storage Storage
	overlay *MemoryDB
}

var _ Storage = (*Ephemeral)(nil)

func NewEphemeral(storage Storage, overlay *MemoryDB) *Ephemeral {
	return &Ephemeral{
		storage: storage,
		overlay: overlay,
	}
}

func (e *Ephemeral) Get(keyspace []byte, hash common.Hash) ([]byte, error) {
	if blob, _ := e.overlay.Get(keyspace, hash); blob != nil {
		return blob, nil
	}
	return e.storage.Get(keyspace, hash)
}

func (e *Ephemeral) Put(keyspace []byte, hash common.Hash, blob []byte) {
	e.overlay.Put(keyspace, hash, blob)
}

func (e *Ephemeral) Overlay() *MemoryDB {
	return e.overlay
}

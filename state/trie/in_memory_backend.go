package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// StorageChanges is the delta for the top trie (Child == nil) or for one
// child trie.
type StorageChanges struct {
	Child *ChildInfo
	Delta []KeyValue
}

// InMemoryBackend is a Backend over its own MemoryDB. Updating it yields a
// successor backend; since nodes are only ever added, every earlier backend
// stays readable.
type InMemoryBackend struct {
	*Backend
	log zerolog.Logger
	db  *MemoryDB
}

// NewInMemoryBackend returns an empty backend.
func NewInMemoryBackend(log zerolog.Logger) *InMemoryBackend {
	db := NewMemoryDB()
	return &InMemoryBackend{
		Backend: NewBackend(log, db, types.EmptyRootHash),
		log:     log,
		db:      db,
	}
}

// Update applies the changes and returns the backend for the new root.
func (m *InMemoryBackend) Update(changes []StorageChanges) (*InMemoryBackend, error) {
	var top []KeyValue
	var children []ChildDelta
	for _, change := range changes {
		if change.Child == nil {
			top = append(top, change.Delta...)
			continue
		}
		children = append(children, ChildDelta{Child: *change.Child, Delta: change.Delta})
	}

	root, overlay, err := m.FullStorageRoot(top, children)
	if err != nil {
		return nil, fmt.Errorf("could not compute storage root: %w", err)
	}
	m.db.Merge(overlay)

	return &InMemoryBackend{
		Backend: NewBackend(m.log, m.db, root),
		log:     m.log,
		db:      m.db,
	}, nil
}

// AsTrieBackend returns the plain trie backend of this state.
func (m *InMemoryBackend) AsTrieBackend() *Backend {
	return m.Backend
}

// DB returns the node store shared by this backend and its successors.
func (m *InMemoryBackend) DB() *MemoryDB {
	return m.db
}

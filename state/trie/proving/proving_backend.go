package proving

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/state/trie"
)

// ProvingBackend is a trie backend which records every node it reads from
// the underlying store. After a set of reads, ExtractProof returns the nodes
// a verifier needs to repeat them against the same root.
//
// If a read fails the recorded proof is incomplete and must be discarded.
type ProvingBackend struct {
	*trie.Backend
	recorder *Recorder
}

// NewProvingBackend starts a proving session with a fresh recorder.
func NewProvingBackend(backend *trie.Backend) *ProvingBackend {
	return NewProvingBackendWithRecorder(backend, NewRecorder(metrics.NewNoopCollector()))
}

// NewProvingBackendWithRecorder records into an existing recorder, so several
// backends can contribute to one proof.
func NewProvingBackendWithRecorder(backend *trie.Backend, recorder *Recorder) *ProvingBackend {
	recording := &recordingStorage{
		storage:  backend.BackendStorage(),
		recorder: recorder,
	}
	return &ProvingBackend{
		Backend:  backend.WithStorage(recording),
		recorder: recorder,
	}
}

func (p *ProvingBackend) Recorder() *Recorder {
	return p.recorder
}

// ExtractProof drains the recorder into a storage proof.
func (p *ProvingBackend) ExtractProof() trie.StorageProof {
	return p.recorder.ExtractProof()
}

// RecordAllKeys loads every node of the top trie, so the proof supports
// enumerating the whole trie.
func (p *ProvingBackend) RecordAllKeys() error {
	err := p.ForEachNode(func(common.Hash) error { return nil })
	if err != nil {
		return fmt.Errorf("could not record top trie: %w", err)
	}
	return nil
}

// RecordAllChildKeys loads every node of a child trie together with the top
// trie path to its root.
func (p *ProvingBackend) RecordAllChildKeys(child trie.ChildInfo) error {
	err := p.ForEachChildNode(child, func(common.Hash) error { return nil })
	if err != nil {
		return fmt.Errorf("could not record child trie %s: %w", child, err)
	}
	return nil
}

// OwnedProvingBackend is a proving backend that holds its own handle to the
// node store. Clones share the store and the recorder, so a session can be
// split across goroutines and extracted once.
type OwnedProvingBackend struct {
	*ProvingBackend
	log     zerolog.Logger
	storage trie.Storage
}

func NewOwnedProvingBackend(log zerolog.Logger, storage trie.Storage, root common.Hash, recorder *Recorder) *OwnedProvingBackend {
	return &OwnedProvingBackend{
		ProvingBackend: NewProvingBackendWithRecorder(trie.NewBackend(log, storage, root), recorder),
		log:            log,
		storage:        storage,
	}
}

func (o *OwnedProvingBackend) Clone() *OwnedProvingBackend {
	return NewOwnedProvingBackend(o.log, o.storage, o.Root(), o.recorder)
}

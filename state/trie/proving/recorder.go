package proving

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/finalitylab/grandpa-node/module"
	"github.com/finalitylab/grandpa-node/state/trie"
)

// Recorder collects the trie nodes fetched from a backing store during a
// proving session. It may be shared by any number of backends and is safe
// for concurrent use; the lock is held per access only.
type Recorder struct {
	mu      sync.RWMutex
	nodes   map[common.Hash][]byte // nil value: the store had no node under the hash
	metrics module.StorageProofMetrics
}

func NewRecorder(metrics module.StorageProofMetrics) *Recorder {
	return &Recorder{
		nodes:   make(map[common.Hash][]byte),
		metrics: metrics,
	}
}

// Get returns the recorded blob for hash and whether hash was recorded at
// all. A recorded hash with a nil blob was confirmed absent.
func (r *Recorder) Get(hash common.Hash) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.nodes[hash]
	return blob, ok
}

// Record stores the result of fetching hash. The first blob recorded for a
// hash wins; a blob replaces a recorded absence.
func (r *Recorder) Record(hash common.Hash, blob []byte) {
	r.mu.Lock()
	if recorded, ok := r.nodes[hash]; ok && (recorded != nil || blob == nil) {
		r.mu.Unlock()
		return
	}
	r.nodes[hash] = common.CopyBytes(blob)
	r.mu.Unlock()

	if blob != nil {
		r.metrics.ProofNodeRecorded(len(blob))
	}
}

// Len returns the number of recorded hashes including confirmed absences.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Proof returns the nodes recorded so far without resetting the recorder.
func (r *Recorder) Proof() trie.StorageProof {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.proof()
}

// ExtractProof drains the recorder and returns the recorded nodes as a
// storage proof. Confirmed absences are not part of the proof.
func (r *Recorder) ExtractProof() trie.StorageProof {
	r.mu.Lock()
	proof := r.proof()
	r.nodes = make(map[common.Hash][]byte)
	r.mu.Unlock()

	r.metrics.ProofExtracted(proof.Len(), proof.Size())
	return proof
}

func (r *Recorder) proof() trie.StorageProof {
	nodes := make([][]byte, 0, len(r.nodes))
	for _, blob := range r.nodes {
		if blob != nil {
			nodes = append(nodes, blob)
		}
	}
	return trie.NewStorageProof(nodes)
}

// recordingStorage records every node it fetches from the wrapped storage.
// Recorded blobs are answered from the recorder. Absences are keyspace
// specific and always go to the wrapped storage.
type recordingStorage struct {
	storage  trie.Storage
	recorder *Recorder
}

var _ trie.Storage = (*recordingStorage)(nil)

func (s *recordingStorage) Get(keyspace []byte, hash common.Hash) ([]byte, error) {
	if blob, _ := s.recorder.Get(hash); blob != nil {
		return blob, nil
	}
	blob, err := s.storage.Get(keyspace, hash)
	if err != nil {
		// a failed fetch must not leave a confirmed absence behind
		return nil, err
	}
	s.recorder.Record(hash, blob)
	return blob, nil
}

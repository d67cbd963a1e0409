package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/finalitylab/grandpa-node/module"
	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/state/trie"
	"github.com/finalitylab/grandpa-node/storage"
	"github.com/finalitylab/grandpa-node/storage/badger/operation"
)

// DefaultTrieNodeCacheSize is the number of nodes kept in the read cache.
const DefaultTrieNodeCacheSize = 16384

// commitBatchSize bounds the number of nodes written per transaction.
const commitBatchSize = 1024

// TrieNodes stores trie nodes in badger behind an LRU read cache.
type TrieNodes struct {
	db      *badger.DB
	metrics module.CacheMetrics
	cache   *lru.Cache[string, []byte]
}

var _ storage.TrieNodes = (*TrieNodes)(nil)

func NewTrieNodes(collector module.CacheMetrics, db *badger.DB, cacheSize int) (*TrieNodes, error) {
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create trie node cache: %w", err)
	}
	return &TrieNodes{
		db:      db,
		metrics: collector,
		cache:   cache,
	}, nil
}

func cacheKey(keyspace []byte, hash common.Hash) string {
	return string(keyspace) + string(hash[:])
}

// Get implements trie.Storage. A missing node is reported as nil.
func (t *TrieNodes) Get(keyspace []byte, hash common.Hash) ([]byte, error) {
	key := cacheKey(keyspace, hash)
	if blob, ok := t.cache.Get(key); ok {
		t.metrics.CacheHit(metrics.ResourceTrieNode)
		return blob, nil
	}
	t.metrics.CacheMiss(metrics.ResourceTrieNode)

	var blob []byte
	err := t.db.View(operation.RetrieveTrieNode(keyspace, hash, &blob))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not retrieve trie node %x: %w", hash, err)
	}
	t.cache.Add(key, blob)
	return blob, nil
}

func (t *TrieNodes) Store(keyspace []byte, hash common.Hash, blob []byte) error {
	err := operation.RetryOnConflict(t.db.Update, operation.InsertTrieNode(keyspace, hash, blob))
	if err != nil {
		return fmt.Errorf("could not store trie node %x: %w", hash, operation.FullDiskException(err))
	}
	t.cache.Add(cacheKey(keyspace, hash), common.CopyBytes(blob))
	return nil
}

// Commit persists every node of overlay. Nodes are written in batches and
// removed from overlay once their batch is committed, so the nodes of failed
// batches stay in overlay for another attempt. The errors of all failed
// batches are returned together.
func (t *TrieNodes) Commit(overlay *trie.MemoryDB) error {
	nodes := overlay.Nodes()
	var result *multierror.Error
	for start := 0; start < len(nodes); start += commitBatchSize {
		end := start + commitBatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]
		err := operation.RetryOnConflict(t.db.Update, func(tx *badger.Txn) error {
			for _, node := range batch {
				err := operation.InsertTrieNode(node.Keyspace, node.Hash, node.Blob)(tx)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("could not commit nodes %d to %d: %w", start, end, operation.FullDiskException(err)))
			continue
		}
		for _, node := range batch {
			overlay.Remove(node.Keyspace, node.Hash)
			t.cache.Add(cacheKey(node.Keyspace, node.Hash), node.Blob)
		}
	}
	t.metrics.CacheEntries(metrics.ResourceTrieNode, uint(t.cache.Len()))
	return result.ErrorOrNil()
}

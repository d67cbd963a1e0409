package proving_test

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/finalitylab/grandpa-node/module/metrics"
	"github.com/finalitylab/grandpa-node/state/trie"
	"github.com/finalitylab/grandpa-node/state/trie/proving"
	"github.com/finalitylab/grandpa-node/utils/unittest"
)

var childSub1 = trie.NewDefaultChildInfo([]byte("sub1"))

func testBackend(t *testing.T) *trie.InMemoryBackend {
	top := []trie.KeyValue{
		{Key: []byte("key"), Value: []byte("value")},
		{Key: []byte("value1"), Value: []byte{42}},
		{Key: []byte("value2"), Value: []byte{24}},
		{Key: []byte(":code"), Value: []byte("return 42")},
	}
	for i := 0; i < 256; i++ {
		top = append(top, trie.KeyValue{Key: []byte{byte(i)}, Value: []byte{byte(i)}})
	}
	child := childSub1
	backend, err := trie.NewInMemoryBackend(unittest.Logger()).Update([]trie.StorageChanges{
		{Delta: top},
		{Child: &child, Delta: []trie.KeyValue{
			{Key: []byte("value3"), Value: []byte{142}},
			{Key: []byte("value4"), Value: []byte{124}},
		}},
	})
	require.NoError(t, err)
	return backend
}

// failingStorage fails every read.
type failingStorage struct {
	err error
}

func (s failingStorage) Get([]byte, common.Hash) ([]byte, error) {
	return nil, s.err
}

func TestProvingBackend_ProofIsEmptyUntilSomethingIsRead(t *testing.T) {
	backend := testBackend(t)
	prover := proving.NewProvingBackend(backend.AsTrieBackend())
	assert.True(t, prover.ExtractProof().IsEmpty())
}

func TestProvingBackend_ProofIsNonEmptyAfterRead(t *testing.T) {
	backend := testBackend(t)
	prover := proving.NewProvingBackend(backend.AsTrieBackend())

	value, err := prover.Storage([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	assert.False(t, prover.ExtractProof().IsEmpty())
}

func TestProvingBackend_ExtractDrainsRecorder(t *testing.T) {
	backend := testBackend(t)
	prover := proving.NewProvingBackend(backend.AsTrieBackend())

	_, err := prover.Storage([]byte("key"))
	require.NoError(t, err)
	require.Greater(t, prover.Recorder().Len(), 0)

	assert.False(t, prover.ExtractProof().IsEmpty())
	assert.Equal(t, 0, prover.Recorder().Len())
	assert.True(t, prover.ExtractProof().IsEmpty())
}

func TestCreateProofCheckBackend_RejectsMissingRoot(t *testing.T) {
	_, err := proving.CreateProofCheckBackend(unittest.Logger(), unittest.HashFixture(), trie.EmptyStorageProof())
	require.Error(t, err)
	assert.ErrorIs(t, err, trie.ErrInvalidProof)

	t.Run("the empty root needs no nodes", func(t *testing.T) {
		check, err := proving.CreateProofCheckBackend(unittest.Logger(), types.EmptyRootHash, trie.EmptyStorageProof())
		require.NoError(t, err)
		value, err := check.Storage([]byte("anything"))
		require.NoError(t, err)
		assert.Nil(t, value)
	})
}

func TestProvingBackend_PassesThroughReads(t *testing.T) {
	backend := testBackend(t)
	trieBackend := backend.AsTrieBackend()
	prover := proving.NewProvingBackend(trieBackend)

	expected, err := trieBackend.Storage([]byte("key"))
	require.NoError(t, err)
	actual, err := prover.Storage([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	assert.Equal(t, trieBackend.Pairs(), prover.Pairs())

	delta := []trie.KeyValue{{Key: []byte("new"), Value: []byte("entry")}}
	expectedRoot, _, err := trieBackend.StorageRoot(delta)
	require.NoError(t, err)
	actualRoot, _, err := prover.StorageRoot(delta)
	require.NoError(t, err)
	assert.Equal(t, expectedRoot, actualRoot)
}

func TestProofCheck_OnlyRecordedPathsAreProven(t *testing.T) {
	delta := make([]trie.KeyValue, 0, 64)
	for i := 0; i < 64; i++ {
		delta = append(delta, trie.KeyValue{Key: []byte{byte(i)}, Value: []byte{byte(i)}})
	}
	backend, err := trie.NewInMemoryBackend(unittest.Logger()).Update([]trie.StorageChanges{{Delta: delta}})
	require.NoError(t, err)

	for i := 0; i < 64; i++ {
		value, err := backend.Storage([]byte{byte(i)})
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, value)
	}

	prover := proving.NewProvingBackend(backend.AsTrieBackend())
	value, err := prover.Storage([]byte{42})
	require.NoError(t, err)
	require.Equal(t, []byte{42}, value)
	proof := prover.ExtractProof()

	check, err := checkBackend(t, backend.Root(), proof)
	require.NoError(t, err)

	value, err = check.Storage([]byte{42})
	require.NoError(t, err)
	assert.Equal(t, []byte{42}, value)

	// shares the branch node with 42
	value, err = check.Storage([]byte{41})
	require.NoError(t, err)
	assert.Equal(t, []byte{41}, value)

	_, err = check.Storage([]byte{0})
	require.Error(t, err)
	assert.True(t, trie.IsMissingNodeError(err))

	// the root proves that nothing lives under the first nibble 4
	value, err = check.Storage([]byte{64})
	require.NoError(t, err)
	assert.Nil(t, value)
}

func checkBackend(t *testing.T, root common.Hash, proof trie.StorageProof) (*trie.Backend, error) {
	t.Helper()
	encoded, err := proof.Encode()
	require.NoError(t, err)
	decoded, err := trie.DecodeStorageProof(encoded)
	require.NoError(t, err)
	return proving.CreateProofCheckBackend(unittest.Logger(), root, decoded)
}

func TestProvingBackend_ChildStorageProof(t *testing.T) {
	backend := testBackend(t)
	prover := proving.NewProvingBackend(backend.AsTrieBackend())

	value, err := prover.ChildStorage(childSub1, []byte("value3"))
	require.NoError(t, err)
	require.Equal(t, []byte{142}, value)
	proof := prover.ExtractProof()

	values, err := readChildProof(t, backend.Root(), proof)
	require.NoError(t, err)
	assert.Equal(t, []byte{142}, values["value3"])

	t.Run("child root lookup is part of the proof", func(t *testing.T) {
		check, err := checkBackend(t, backend.Root(), proof)
		require.NoError(t, err)
		root, err := check.ChildRoot(childSub1)
		require.NoError(t, err)
		assert.NotEqual(t, types.EmptyRootHash, root)
	})
}

func readChildProof(t *testing.T, root common.Hash, proof trie.StorageProof) (map[string][]byte, error) {
	t.Helper()
	return proving.ReadChildProofCheck(unittest.Logger(), root, proof, childSub1, [][]byte{[]byte("value3")})
}

func TestProvingBackend_RecordingIsIdempotent(t *testing.T) {
	backend := testBackend(t)

	once := proving.NewProvingBackend(backend.AsTrieBackend())
	_, err := once.Storage([]byte("value1"))
	require.NoError(t, err)

	twice := proving.NewProvingBackend(backend.AsTrieBackend())
	_, err = twice.Storage([]byte("value1"))
	require.NoError(t, err)
	_, err = twice.Storage([]byte("value1"))
	require.NoError(t, err)

	assert.Equal(t, once.ExtractProof().Nodes(), twice.ExtractProof().Nodes())
}

func TestProvingBackend_BackendErrorsPropagate(t *testing.T) {
	errDisk := errors.New("disk failure")
	backend := trie.NewBackend(unittest.Logger(), failingStorage{err: errDisk}, unittest.HashFixture())
	prover := proving.NewProvingBackend(backend)

	_, err := prover.Storage([]byte("key"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)

	// nothing was fetched, so nothing is recorded
	assert.Equal(t, 0, prover.Recorder().Len())
	assert.True(t, prover.ExtractProof().IsEmpty())
}

func TestProvingBackend_RecordAllKeys(t *testing.T) {
	backend := testBackend(t)
	prover := proving.NewProvingBackend(backend.AsTrieBackend())
	require.NoError(t, prover.RecordAllKeys())
	require.NoError(t, prover.RecordAllChildKeys(childSub1))
	proof := prover.ExtractProof()

	check, err := checkBackend(t, backend.Root(), proof)
	require.NoError(t, err)

	count := 0
	err = check.ForKeysWithPrefixStrict(nil, func([]byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	// 256 single byte keys, 4 named keys and the child root entry
	assert.Equal(t, 261, count)

	childKeys := 0
	err = check.ForKeysWithChildPrefixStrict(childSub1, nil, func([]byte) error {
		childKeys++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, childKeys)
}

func TestOwnedProvingBackend_ConcurrentReadsShareOneProof(t *testing.T) {
	backend := testBackend(t)
	recorder := proving.NewRecorder(metrics.NewNoopCollector())
	owned := proving.NewOwnedProvingBackend(unittest.Logger(), backend.DB(), backend.Root(), recorder)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		clone := owned.Clone()
		key := []byte{byte(i * 30)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := clone.Storage(key)
			assert.NoError(t, err)
		}()
	}
	unittest.RequireReturnsBefore(t, wg.Wait, time.Second, "concurrent reads did not finish")

	proof := owned.ExtractProof()
	check, err := checkBackend(t, backend.Root(), proof)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		value, err := check.Storage([]byte{byte(i * 30)})
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i * 30)}, value)
	}
}

func TestProofRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		content := rapid.MapOfN(
			rapid.Map(rapid.SliceOfN(rapid.Byte(), 1, 8), func(b []byte) string { return string(b) }),
			rapid.SliceOfN(rapid.Byte(), 1, 40),
			1, 64,
		).Draw(t, "content")

		keys := make([][]byte, 0, len(content))
		for key := range content {
			keys = append(keys, []byte(key))
		}
		sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })
		delta := make([]trie.KeyValue, 0, len(keys))
		for _, key := range keys {
			delta = append(delta, trie.KeyValue{Key: key, Value: content[string(key)]})
		}
		backend, err := trie.NewInMemoryBackend(unittest.Logger()).Update([]trie.StorageChanges{{Delta: delta}})
		if err != nil {
			t.Fatalf("could not build backend: %v", err)
		}

		read := rapid.SliceOfNDistinct(rapid.SampledFrom(keys), 1, len(keys), func(k []byte) string { return string(k) }).Draw(t, "read")
		proof, err := proving.ProveRead(backend.AsTrieBackend(), read)
		if err != nil {
			t.Fatalf("could not prove reads: %v", err)
		}
		values, err := proving.ReadProofCheck(unittest.Logger(), backend.Root(), proof, read)
		if err != nil {
			t.Fatalf("could not check proof: %v", err)
		}
		for _, key := range read {
			expected, err := backend.Storage(key)
			if err != nil {
				t.Fatalf("could not read key %x: %v", key, err)
			}
			if string(values[string(key)]) != string(expected) {
				t.Fatalf("key %x: proven %x, stored %x", key, values[string(key)], expected)
			}
		}
	})
}

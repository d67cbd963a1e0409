package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/finalitylab/grandpa-node/model/finality"
)

const (

	// codes for special database markers
	codeDBSchemaVersion = 1

	// codes for trie nodes; the key continues with the keyspace and the hash
	codeTrieNode = 10

	// codes for the voting progress of the local voter
	codeVoterState     = 20
	codeLastVoterRound = 21
)

func makePrefix(code byte, keys ...interface{}) []byte {
	prefix := make([]byte, 1)
	prefix[0] = code
	for _, key := range keys {
		prefix = append(prefix, b(key)...)
	}
	return prefix
}

func b(v interface{}) []byte {
	switch i := v.(type) {
	case uint8:
		return []byte{i}
	case uint32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, i)
		return b
	case uint64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, i)
		return b
	case finality.SetID:
		return b(uint64(i))
	case finality.Round:
		return b(uint64(i))
	case common.Hash:
		return i[:]
	case []byte:
		return i
	default:
		panic(fmt.Sprintf("unsupported type to convert (%T)", v))
	}
}

package operation

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack"

	"github.com/finalitylab/grandpa-node/module/irrecoverable"
)

var errUncompressedValue = errors.New("could not uncompress data")

// encodeEntity serializes entity with msgpack and compresses the result with
// snappy.
// possible error to return is irrecoverable.exception
func encodeEntity(entity interface{}) ([]byte, error) {
	val, err := msgpack.Marshal(entity)
	if err != nil {
		return nil, irrecoverable.NewExceptionf("could not encode entity: %w", err)
	}
	return snappy.Encode(nil, val), nil
}

// decodeValue reverses encodeEntity into the given entity.
func decodeValue(val []byte, entity interface{}) error {
	uncompressed, err := snappy.Decode(nil, val)
	if err != nil {
		return fmt.Errorf("%s: %w", err, errUncompressedValue)
	}
	err = msgpack.Unmarshal(uncompressed, entity)
	if err != nil {
		return irrecoverable.NewExceptionf("could not decode entity: %w", err)
	}
	return nil
}

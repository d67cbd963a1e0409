package operation

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/finalitylab/grandpa-node/storage"
)

// lookup returns the item under key, or storage.ErrNotFound.
func lookup(tx *badger.Txn, key []byte) (*badger.Item, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read key %x: %w", key, err)
	}
	return item, nil
}

func set(tx *badger.Txn, key []byte, entity interface{}) error {
	val, err := encodeEntity(entity)
	if err != nil {
		return err
	}
	err = tx.Set(key, val)
	if err != nil {
		return fmt.Errorf("could not write key %x: %w", key, err)
	}
	return nil
}

// insert stores entity under key. It returns storage.ErrAlreadyExists if the
// key is taken.
func insert(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		_, err := lookup(tx, key)
		switch {
		case err == nil:
			return storage.ErrAlreadyExists
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		return set(tx, key, entity)
	}
}

// upsert stores entity under key, replacing any previous value.
func upsert(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		return set(tx, key, entity)
	}
}

// retrieve decodes the value under key into entity, which must be a pointer.
func retrieve(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		item, err := lookup(tx, key)
		if err != nil {
			return err
		}
		err = item.Value(func(val []byte) error {
			return decodeValue(val, entity)
		})
		if err != nil {
			return fmt.Errorf("could not decode value of key %x: %w", key, err)
		}
		return nil
	}
}

func exists(key []byte, keyExists *bool) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		_, err := lookup(tx, key)
		if errors.Is(err, storage.ErrNotFound) {
			*keyExists = false
			return nil
		}
		if err != nil {
			return err
		}
		*keyExists = true
		return nil
	}
}

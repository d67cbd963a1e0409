package operation

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/dgraph-io/badger/v2"

	"github.com/finalitylab/grandpa-node/module/irrecoverable"
	"github.com/finalitylab/grandpa-node/storage"
)

// maxConflictRetries bounds RetryOnConflict. Writers in this module touch few
// keys, so a transaction that keeps conflicting points at a livelock.
const maxConflictRetries = 32

// SkipDuplicates turns storage.ErrAlreadyExists of op into success. Trie nodes
// are addressed by hash, so an existing key already holds the same blob.
func SkipDuplicates(op func(*badger.Txn) error) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		err := op(tx)
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil
		}
		return err
	}
}

// RetryOnConflict runs op through action, usually db.Update, until it commits
// without a badger.ErrConflict or the retries are used up.
func RetryOnConflict(action func(func(*badger.Txn) error) error, op func(*badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = action(op)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction still conflicting after %d attempts: %w", maxConflictRetries, err)
}

// FullDiskException returns err as an irrecoverable exception if the write
// failed because the disk is full, and err unchanged otherwise.
func FullDiskException(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return irrecoverable.NewExceptionf("disk full: %w", err)
	}
	return err
}

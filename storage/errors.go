package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned by every store in this module when the requested
	// record is absent. badger.ErrKeyNotFound never leaves storage/badger.
	ErrNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned by inserts that refuse to overwrite. Trie
	// nodes are content addressed, so their writers treat it as success.
	ErrAlreadyExists = errors.New("key already exists")
)

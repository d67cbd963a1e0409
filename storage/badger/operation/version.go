package operation

import (
	"github.com/dgraph-io/badger/v2"
)

// SchemaVersion is the layout version of the database written by this code.
const SchemaVersion uint32 = 1

func InsertSchemaVersion(version uint32) func(*badger.Txn) error {
	return insert(makePrefix(codeDBSchemaVersion), version)
}

func RetrieveSchemaVersion(version *uint32) func(*badger.Txn) error {
	return retrieve(makePrefix(codeDBSchemaVersion), version)
}

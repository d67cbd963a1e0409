package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/finalitylab/grandpa-node/storage"
	"github.com/finalitylab/grandpa-node/storage/badger/operation"
)

// InitDB opens the database in dir and checks its schema version. A fresh
// database is stamped with the current version.
func InitDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open database in %s: %w", dir, err)
	}

	var version uint32
	err = db.View(operation.RetrieveSchemaVersion(&version))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		err = db.Update(operation.InsertSchemaVersion(operation.SchemaVersion))
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("could not stamp schema version: %w", err)
		}
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("could not read schema version: %w", err)
	case version != operation.SchemaVersion:
		_ = db.Close()
		return nil, fmt.Errorf("unsupported schema version %d (expected %d)", version, operation.SchemaVersion)
	}
	return db, nil
}

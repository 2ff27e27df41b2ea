// Package memory constructs blockchain storage backed by in-memory
// key-value stores. It is used by tests and throwaway nodes.
package memory

import (
	"github.com/simplechain/node/foundation/blockchain/storage"
	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// New constructs a storage value whose three stores live in memory.
func New() (*storage.Storage, error) {
	dbs := make([]*leveldb.DB, 3)

	for i := range dbs {
		db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
		if err != nil {
			for _, opened := range dbs[:i] {
				opened.Close()
			}
			return nil, err
		}
		dbs[i] = db
	}

	return storage.New(dbs[0], dbs[1], dbs[2]), nil
}

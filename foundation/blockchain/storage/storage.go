// Package storage handles all the lower level support for maintaining the
// blockchain on disk. The chain is kept in three key-value stores: the blocks
// by hash, the chain metadata (tip and height index) and the account balances.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Set of store names under the data directory.
const (
	blocksDB   = "blocks"
	metadataDB = "blocksmetadata"
	balancesDB = "balances"
)

// ErrReadOnly is returned when a write is attempted through a read-only handle.
var ErrReadOnly = errors.New("storage is read only")

// Options control how the stores are opened.
type Options struct {
	ReadOnly bool
}

// Storage manages reading and writing of the chain to the key-value stores.
type Storage struct {
	blocks   *leveldb.DB
	metadata *leveldb.DB
	balances *leveldb.DB
	readOnly bool
	owner    bool
}

// Open provides access to the blockchain stores under the data directory.
// A read-only open is meant for tooling inspecting the chain of a stopped
// node, the stores stay locked while a node has them open.
func Open(dataDir string, options Options) (*Storage, error) {
	o := opt.Options{
		ReadOnly: options.ReadOnly,
	}

	names := []string{blocksDB, metadataDB, balancesDB}
	dbs := make([]*leveldb.DB, 0, len(names))

	for _, name := range names {
		db, err := leveldb.OpenFile(filepath.Join(dataDir, name), &o)
		if err != nil {
			for _, opened := range dbs {
				opened.Close()
			}
			return nil, fmt.Errorf("storage: open %s: %w", name, err)
		}
		dbs = append(dbs, db)
	}

	strg := New(dbs[0], dbs[1], dbs[2])
	strg.readOnly = options.ReadOnly

	return strg, nil
}

// New constructs a storage value from already opened stores. The storage
// takes ownership of the stores and closes them on Close.
func New(blocks *leveldb.DB, metadata *leveldb.DB, balances *leveldb.DB) *Storage {
	return &Storage{
		blocks:   blocks,
		metadata: metadata,
		balances: balances,
		owner:    true,
	}
}

// ReadOnly returns a view of the stores that shares the open handles but
// refuses writes. Readers may observe a slightly stale tip.
func (str *Storage) ReadOnly() *Storage {
	return &Storage{
		blocks:   str.blocks,
		metadata: str.metadata,
		balances: str.balances,
		readOnly: true,
	}
}

// IsReadOnly reports whether writes are refused through this handle.
func (str *Storage) IsReadOnly() bool {
	return str.readOnly
}

// Close cleanly releases the stores. Closing a read-only view is a no-op.
func (str *Storage) Close() error {
	if !str.owner {
		return nil
	}

	var errs []error
	for _, db := range []*leveldb.DB{str.blocks, str.metadata, str.balances} {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// =============================================================================

// get reads a key and reports a missing key as not found instead of an error.
func get(db *leveldb.DB, key string) (string, bool, error) {
	value, err := db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	return string(value), true, nil
}

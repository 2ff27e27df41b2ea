package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
)

// latestBlockKey is the metadata key holding the hash of the chain tip.
const latestBlockKey = "latest_block_hash"

// GetBlock returns the block for the specified hash.
func (str *Storage) GetBlock(hash string) (database.Block, bool, error) {
	value, found, err := get(str.blocks, hash)
	if err != nil {
		return database.Block{}, false, fmt.Errorf("storage: get block %s: %w", hash, err)
	}

	if !found {
		return database.Block{}, false, nil
	}

	var block database.Block
	if err := json.Unmarshal([]byte(value), &block); err != nil {
		return database.Block{}, false, fmt.Errorf("storage: decode block %s: %w", hash, err)
	}

	return block, true, nil
}

// AddBlock writes the block keyed by its hash. Writing the same block twice
// leaves the store unchanged.
func (str *Storage) AddBlock(block database.Block) error {
	if str.readOnly {
		return ErrReadOnly
	}

	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("storage: encode block %s: %w", block.Hash, err)
	}

	if err := str.blocks.Put([]byte(block.Hash), data, nil); err != nil {
		return fmt.Errorf("storage: put block %s: %w", block.Hash, err)
	}

	return nil
}

// GetLatestBlockHash returns the hash of the chain tip.
func (str *Storage) GetLatestBlockHash() (string, bool, error) {
	hash, found, err := get(str.metadata, latestBlockKey)
	if err != nil {
		return "", false, fmt.Errorf("storage: get latest block hash: %w", err)
	}

	return hash, found, nil
}

// SetLatestBlockHash moves the tip to the specified hash and records the
// height index in both directions. The three writes are applied as one batch.
func (str *Storage) SetLatestBlockHash(hash string, height uint32) error {
	if str.readOnly {
		return ErrReadOnly
	}

	h := strconv.FormatUint(uint64(height), 10)

	var batch leveldb.Batch
	batch.Put([]byte(latestBlockKey), []byte(hash))
	batch.Put([]byte(h), []byte(hash))
	batch.Put([]byte(hash), []byte(h))

	if err := str.metadata.Write(&batch, nil); err != nil {
		return fmt.Errorf("storage: set latest block hash %s: %w", hash, err)
	}

	return nil
}

// GetBlockHeight returns the height the specified block was applied at.
func (str *Storage) GetBlockHeight(hash string) (uint32, bool, error) {
	value, found, err := get(str.metadata, hash)
	if err != nil {
		return 0, false, fmt.Errorf("storage: get block height %s: %w", hash, err)
	}

	if !found {
		return 0, false, nil
	}

	height, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("storage: decode block height %s: %w", hash, err)
	}

	return uint32(height), true, nil
}

// GetBlockHash returns the hash of the block applied at the specified height.
func (str *Storage) GetBlockHash(height uint32) (string, bool, error) {
	hash, found, err := get(str.metadata, strconv.FormatUint(uint64(height), 10))
	if err != nil {
		return "", false, fmt.Errorf("storage: get block hash %d: %w", height, err)
	}

	return hash, found, nil
}

// GetLatestBlockNumber returns the height of the chain tip, or 0 when the
// chain is empty.
func (str *Storage) GetLatestBlockNumber() (uint32, error) {
	hash, found, err := str.GetLatestBlockHash()
	if err != nil || !found {
		return 0, err
	}

	height, found, err := str.GetBlockHeight(hash)
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, fmt.Errorf("storage: latest block %s has no height", hash)
	}

	return height, nil
}

// GetBlockHashes returns every known block hash ordered by height.
func (str *Storage) GetBlockHashes() ([]string, error) {
	type entry struct {
		height uint32
		hash   string
	}

	var entries []entry

	iter := str.metadata.NewIterator(nil, nil)
	for iter.Next() {
		key := string(iter.Key())
		if key == latestBlockKey {
			continue
		}

		// Only the hash -> height entries carry a numeric value.
		height, err := strconv.ParseUint(string(iter.Value()), 10, 32)
		if err != nil {
			continue
		}

		entries = append(entries, entry{height: uint32(height), hash: key})
	}
	iter.Release()

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("storage: scan block hashes: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].height < entries[j].height
	})

	hashes := make([]string, len(entries))
	for i, e := range entries {
		hashes[i] = e.hash
	}

	return hashes, nil
}

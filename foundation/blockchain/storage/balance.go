package storage

import (
	"fmt"
	"strconv"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
)

// GetBalance returns the balance for the specified account.
func (str *Storage) GetBalance(pk database.PublicKey) (uint32, bool, error) {
	value, found, err := get(str.balances, string(pk))
	if err != nil {
		return 0, false, fmt.Errorf("storage: get balance %s: %w", pk, err)
	}

	if !found {
		return 0, false, nil
	}

	balance, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("storage: decode balance %s: %w", pk, err)
	}

	return uint32(balance), true, nil
}

// SetBalance writes the balance for the specified account.
func (str *Storage) SetBalance(pk database.PublicKey, balance uint32) error {
	return str.SetBalances(map[database.PublicKey]uint32{pk: balance})
}

// SetBalances writes all the specified balances as one batch.
func (str *Storage) SetBalances(balances map[database.PublicKey]uint32) error {
	if str.readOnly {
		return ErrReadOnly
	}

	var batch leveldb.Batch
	for pk, balance := range balances {
		batch.Put([]byte(pk), []byte(strconv.FormatUint(uint64(balance), 10)))
	}

	if err := str.balances.Write(&batch, nil); err != nil {
		return fmt.Errorf("storage: set balances: %w", err)
	}

	return nil
}

// GetBalances returns the balance of every known account.
func (str *Storage) GetBalances() (map[database.PublicKey]uint32, error) {
	balances := make(map[database.PublicKey]uint32)

	iter := str.balances.NewIterator(nil, nil)
	for iter.Next() {
		pk := database.PublicKey(iter.Key())

		balance, err := strconv.ParseUint(string(iter.Value()), 10, 32)
		if err != nil {
			iter.Release()
			return nil, fmt.Errorf("storage: decode balance %s: %w", pk, err)
		}

		balances[pk] = uint32(balance)
	}
	iter.Release()

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("storage: scan balances: %w", err)
	}

	return balances, nil
}

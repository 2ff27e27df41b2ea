package mempool

import "github.com/simplechain/node/foundation/blockchain/database"

// byCreatedAt provides sorting support by the transaction creation time.
// The transaction id breaks ties so the order is stable across nodes.
type byCreatedAt []database.SignedTx

// Len returns the number of transactions in the list.
func (bc byCreatedAt) Len() int {
	return len(bc)
}

// Less helps to sort the list by creation time in ascending order.
func (bc byCreatedAt) Less(i, j int) bool {
	if bc[i].Transaction.CreatedAt != bc[j].Transaction.CreatedAt {
		return bc[i].Transaction.CreatedAt < bc[j].Transaction.CreatedAt
	}

	return bc[i].Transaction.ID < bc[j].Transaction.ID
}

// Swap moves transactions in the order of the creation time.
func (bc byCreatedAt) Swap(i, j int) {
	bc[i], bc[j] = bc[j], bc[i]
}

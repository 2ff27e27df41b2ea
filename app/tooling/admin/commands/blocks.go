package commands

import (
	"fmt"
	"io"

	"github.com/simplechain/node/foundation/blockchain/storage"
)

// Blocks writes the blocks of the chain in height order.
func Blocks(w io.Writer, strg *storage.Storage) error {
	hashes, err := strg.GetBlockHashes()
	if err != nil {
		return err
	}

	for i, hash := range hashes {
		block, found, err := strg.GetBlock(hash)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("block %s is indexed but missing", hash)
		}

		fmt.Fprintf(w, "Height: %d  Hash: %s  Prev: %s  Nonce: %d  Txs: %d\n",
			i+1, block.Hash, block.PrevBlock, block.Nonce, len(block.Transactions))

		for _, tx := range block.Transactions {
			fmt.Fprintf(w, "    From: %s  To: %s  Amount: %d\n", tx.Transaction.From, tx.Transaction.To, tx.Transaction.Amount)
		}
	}

	return nil
}

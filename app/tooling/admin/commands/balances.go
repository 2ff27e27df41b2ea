// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/storage"
)

// Balances writes the current set of balances, or the balance of the one
// account when a public key is provided.
func Balances(w io.Writer, strg *storage.Storage, pubkey string) error {
	hash, found, err := strg.GetLatestBlockHash()
	if err != nil {
		return err
	}
	if !found {
		hash = "none"
	}

	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", hash)

	if pubkey != "" {
		pk, err := database.ToPublicKey(pubkey)
		if err != nil {
			return err
		}

		bal, _, err := strg.GetBalance(pk)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Account: %s  Balance: %d\n", pk, bal)
		return nil
	}

	bals, err := strg.GetBalances()
	if err != nil {
		return err
	}

	keys := make([]database.PublicKey, 0, len(bals))
	for pk := range bals {
		keys = append(keys, pk)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, pk := range keys {
		fmt.Fprintf(w, "Account: %s  Balance: %d\n", pk, bals[pk])
	}

	return nil
}

package storage_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/signature"
	"github.com/simplechain/node/foundation/blockchain/storage"
	"github.com/simplechain/node/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func blocks(n int) []database.Block {
	blks := make([]database.Block, n)

	prev := signature.ZeroHash
	for i := range blks {
		hash := strings.Repeat(string(rune('a'+i)), 64)
		blks[i] = database.Block{
			Hash:      hash,
			PrevBlock: prev,
			Nonce:     uint32(i),
		}
		prev = hash
	}

	return blks
}

func writeChain(t *testing.T, strg *storage.Storage, blks []database.Block) {
	for i, blk := range blks {
		if err := strg.AddBlock(blk); err != nil {
			t.Fatalf("\t%s\tShould be able to add block %d: %s", failed, i, err)
		}
		if err := strg.SetLatestBlockHash(blk.Hash, uint32(i+1)); err != nil {
			t.Fatalf("\t%s\tShould be able to move the tip to block %d: %s", failed, i, err)
		}
	}
}

// =============================================================================

func Test_Blocks(t *testing.T) {
	strg, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open the storage: %s", err)
	}
	defer strg.Close()

	t.Log("Given the need to store blocks and the chain tip.")
	{
		t.Logf("\tTest 0:\tWhen the chain is empty.")
		{
			if _, found, err := strg.GetLatestBlockHash(); err != nil || found {
				t.Fatalf("\t%s\tShould not find a tip: found[%v] err[%v]", failed, found, err)
			}
			t.Logf("\t%s\tShould not find a tip.", success)

			num, err := strg.GetLatestBlockNumber()
			if err != nil || num != 0 {
				t.Fatalf("\t%s\tShould report height 0: num[%d] err[%v]", failed, num, err)
			}
			t.Logf("\t%s\tShould report height 0.", success)

			hashes, err := strg.GetBlockHashes()
			if err != nil || len(hashes) != 0 {
				t.Fatalf("\t%s\tShould have no block hashes: %v %v", failed, hashes, err)
			}
			t.Logf("\t%s\tShould have no block hashes.", success)
		}

		t.Logf("\tTest 1:\tWhen three blocks are applied.")
		{
			blks := blocks(3)
			writeChain(t, strg, blks)

			hash, found, err := strg.GetLatestBlockHash()
			if err != nil || !found || hash != blks[2].Hash {
				t.Fatalf("\t%s\tShould point the tip at the last block: %s %v %v", failed, hash, found, err)
			}
			t.Logf("\t%s\tShould point the tip at the last block.", success)

			num, err := strg.GetLatestBlockNumber()
			if err != nil || num != 3 {
				t.Fatalf("\t%s\tShould report height 3: num[%d] err[%v]", failed, num, err)
			}
			t.Logf("\t%s\tShould report height 3.", success)

			hashes, err := strg.GetBlockHashes()
			if err != nil {
				t.Fatalf("\t%s\tShould be able to list block hashes: %s", failed, err)
			}
			if len(hashes) != 3 {
				t.Fatalf("\t%s\tShould list three block hashes: got %d", failed, len(hashes))
			}
			for i, h := range hashes {
				if h != blks[i].Hash {
					t.Logf("\t\tgot: %s", h)
					t.Logf("\t\texp: %s", blks[i].Hash)
					t.Fatalf("\t%s\tShould list the hashes ordered by height.", failed)
				}
			}
			t.Logf("\t%s\tShould list the hashes ordered by height.", success)

			height, found, err := strg.GetBlockHeight(blks[1].Hash)
			if err != nil || !found || height != 2 {
				t.Fatalf("\t%s\tShould index the height by hash: %d %v %v", failed, height, found, err)
			}
			t.Logf("\t%s\tShould index the height by hash.", success)

			hash, found, err = strg.GetBlockHash(2)
			if err != nil || !found || hash != blks[1].Hash {
				t.Fatalf("\t%s\tShould index the hash by height: %s %v %v", failed, hash, found, err)
			}
			t.Logf("\t%s\tShould index the hash by height.", success)

			blk, found, err := strg.GetBlock(blks[1].Hash)
			if err != nil || !found {
				t.Fatalf("\t%s\tShould be able to read a block back: %v %v", failed, found, err)
			}
			if blk.PrevBlock != blks[0].Hash || blk.Nonce != 1 {
				t.Fatalf("\t%s\tShould read back the same block.", failed)
			}
			t.Logf("\t%s\tShould read back the same block.", success)

			if err := strg.AddBlock(blks[1]); err != nil {
				t.Fatalf("\t%s\tShould be able to add the same block twice: %s", failed, err)
			}
			hashes, _ = strg.GetBlockHashes()
			if len(hashes) != 3 {
				t.Fatalf("\t%s\tShould not change the chain when adding a block twice.", failed)
			}
			t.Logf("\t%s\tShould not change the chain when adding a block twice.", success)

			if _, found, err := strg.GetBlock(signature.ZeroHash); err != nil || found {
				t.Fatalf("\t%s\tShould not find an unknown block: %v %v", failed, found, err)
			}
			t.Logf("\t%s\tShould not find an unknown block.", success)
		}
	}
}

func Test_Balances(t *testing.T) {
	strg, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open the storage: %s", err)
	}
	defer strg.Close()

	const (
		alice = database.PublicKey("alice")
		bob   = database.PublicKey("bob")
	)

	t.Log("Given the need to store balances.")
	{
		if _, found, err := strg.GetBalance(alice); err != nil || found {
			t.Fatalf("\t%s\tShould not find an unknown account: %v %v", failed, found, err)
		}
		t.Logf("\t%s\tShould not find an unknown account.", success)

		if err := strg.SetBalance(alice, 512); err != nil {
			t.Fatalf("\t%s\tShould be able to set a balance: %s", failed, err)
		}
		if err := strg.SetBalances(map[database.PublicKey]uint32{alice: 500, bob: 12}); err != nil {
			t.Fatalf("\t%s\tShould be able to set balances: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to set balances.", success)

		bal, found, err := strg.GetBalance(alice)
		if err != nil || !found || bal != 500 {
			t.Fatalf("\t%s\tShould read back the last balance: %d %v %v", failed, bal, found, err)
		}
		t.Logf("\t%s\tShould read back the last balance.", success)

		all, err := strg.GetBalances()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to list balances: %s", failed, err)
		}
		if len(all) != 2 || all[alice] != 500 || all[bob] != 12 {
			t.Fatalf("\t%s\tShould list every balance: %v", failed, all)
		}
		t.Logf("\t%s\tShould list every balance.", success)
	}
}

func Test_ReadOnly(t *testing.T) {
	dir := t.TempDir()

	t.Log("Given the need to read the chain without write access.")
	{
		strg, err := storage.Open(dir, storage.Options{})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the storage: %s", failed, err)
		}

		blks := blocks(2)
		writeChain(t, strg, blks)

		if strg.IsReadOnly() {
			t.Fatalf("\t%s\tShould report the owner as writable.", failed)
		}

		view := strg.ReadOnly()
		if !view.IsReadOnly() {
			t.Fatalf("\t%s\tShould report the view as read only.", failed)
		}
		if err := view.AddBlock(blks[0]); !errors.Is(err, storage.ErrReadOnly) {
			t.Fatalf("\t%s\tShould refuse writes through the view: %v", failed, err)
		}
		if err := view.SetBalance("alice", 1); !errors.Is(err, storage.ErrReadOnly) {
			t.Fatalf("\t%s\tShould refuse balance writes through the view: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse writes through the view.", success)

		if err := view.Close(); err != nil {
			t.Fatalf("\t%s\tShould be able to close the view: %s", failed, err)
		}
		hashes, err := view.GetBlockHashes()
		if err != nil || len(hashes) != 2 {
			t.Fatalf("\t%s\tShould read through the view after closing it: %v %v", failed, hashes, err)
		}
		t.Logf("\t%s\tShould share the owner's stores.", success)

		if err := strg.Close(); err != nil {
			t.Fatalf("\t%s\tShould be able to close the storage: %s", failed, err)
		}

		ro, err := storage.Open(dir, storage.Options{ReadOnly: true})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen the storage read only: %s", failed, err)
		}
		defer ro.Close()

		if !ro.IsReadOnly() {
			t.Fatalf("\t%s\tShould report a store opened read only as read only.", failed)
		}

		num, err := ro.GetLatestBlockNumber()
		if err != nil || num != 2 {
			t.Fatalf("\t%s\tShould read the persisted tip: %d %v", failed, num, err)
		}
		t.Logf("\t%s\tShould read the persisted tip.", success)

		if err := ro.SetLatestBlockHash(blks[0].Hash, 1); !errors.Is(err, storage.ErrReadOnly) {
			t.Fatalf("\t%s\tShould refuse writes to a read only store: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse writes to a read only store.", success)
	}
}

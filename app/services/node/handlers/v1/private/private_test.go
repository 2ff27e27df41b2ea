package private_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	v1 "github.com/simplechain/node/app/services/node/handlers/v1"
	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/genesis"
	"github.com/simplechain/node/foundation/blockchain/peer"
	"github.com/simplechain/node/foundation/blockchain/state"
	"github.com/simplechain/node/foundation/blockchain/storage/memory"
	"github.com/simplechain/node/foundation/blockchain/worker"
	"github.com/simplechain/node/foundation/p2p"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	keyA = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	keyB = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	keyC = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

var client = p2p.Client{Timeout: 5 * time.Second}

// startNode runs a node on a loopback port the way the service does: the
// p2p server accepts connections before the worker syncs.
func startNode(t *testing.T, hexKey string, bootstrap ...string) *state.State {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	strg, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open memory storage: %s", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Should be able to listen: %s", err)
	}

	gen := genesis.Default()
	gen.Difficulty = 1

	st, err := state.New(state.Config{
		PrivateKey: pk,
		Host:       ln.Addr().String(),
		Storage:    strg,
		Genesis:    gen,
		Client:     client,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	log := zap.NewNop().Sugar()

	srv := p2p.NewServer(p2p.ServerConfig{Log: log, Timeout: 5 * time.Second})
	v1.PrivateRoutes(srv, v1.Config{Log: log, State: st})
	go srv.Serve(ln)

	worker.Run(st, worker.Config{Bootstrap: bootstrap}, nil)

	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		st.Shutdown()
	})

	return st
}

func mine(t *testing.T, st *state.State) database.Block {
	pb, err := st.GetProposedBlock()
	if err != nil {
		t.Fatalf("Should be able to get a proposed block: %s", err)
	}

	prefix := pb.Serialize()
	for nonce := uint32(0); ; nonce++ {
		block := pb.Seal(prefix, nonce)
		if database.IsHashSolved(st.Genesis().Difficulty, block.Hash) {
			if err := st.ProcessMinedBlock(block); err != nil {
				t.Fatalf("Should be able to process the mined block: %s", err)
			}
			return block
		}
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func height(st *state.State) uint32 {
	n, _ := st.LatestBlockNumber()
	return n
}

// =============================================================================

func Test_PeerSync(t *testing.T) {
	t.Log("Given the need for a new node to join a running node.")
	{
		nodeA := startNode(t, keyA)
		for i := 0; i < 3; i++ {
			mine(t, nodeA)
		}

		nodeB := startNode(t, keyB, nodeA.Host())

		t.Logf("\tTest 0:\tWhen node B bootstraps from node A.")
		{
			if n := height(nodeB); n != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould catch up with the chain of node A: height[%d]", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould catch up with the chain of node A.", success)

			tipA, _, _ := nodeA.LatestBlock()
			tipB, _, _ := nodeB.LatestBlock()
			if tipA.Hash != tipB.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould have the same tip: got[%s] exp[%s]", failed, tipB.Hash, tipA.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould have the same tip.", success)

			if !containsHost(nodeA.KnownPeers(), nodeB.Host()) {
				t.Fatalf("\t%s\tTest 0:\tShould be known by node A: %v", failed, nodeA.KnownPeers())
			}
			t.Logf("\t%s\tTest 0:\tShould be known by node A.", success)

			if !containsHost(nodeB.KnownPeers(), nodeA.Host()) {
				t.Fatalf("\t%s\tTest 0:\tShould know node A: %v", failed, nodeB.KnownPeers())
			}
			t.Logf("\t%s\tTest 0:\tShould know node A.", success)
		}

		t.Logf("\tTest 1:\tWhen node A mines a new block.")
		{
			block := mine(t, nodeA)

			if !waitFor(func() bool { return height(nodeB) == 4 }) {
				t.Fatalf("\t%s\tTest 1:\tShould reach node B: height[%d]", failed, height(nodeB))
			}
			t.Logf("\t%s\tTest 1:\tShould reach node B.", success)

			tipB, _, _ := nodeB.LatestBlock()
			if tipB.Hash != block.Hash {
				t.Fatalf("\t%s\tTest 1:\tShould be the tip of node B: got[%s] exp[%s]", failed, tipB.Hash, block.Hash)
			}
			t.Logf("\t%s\tTest 1:\tShould be the tip of node B.", success)
		}

		t.Logf("\tTest 2:\tWhen node A sends a transaction.")
		{
			tx, err := nodeA.SendTx(nodeB.PublicKey(), 10)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to send the transaction: %s", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould be able to send the transaction.", success)

			if !waitFor(func() bool { return nodeB.MempoolLength() == 1 }) {
				t.Fatalf("\t%s\tTest 2:\tShould reach the mempool of node B.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reach the mempool of node B.", success)

			if got := nodeB.Mempool()[0].Transaction.ID; got != tx.Transaction.ID {
				t.Fatalf("\t%s\tTest 2:\tShould be the same transaction: got[%s] exp[%s]", failed, got, tx.Transaction.ID)
			}
			t.Logf("\t%s\tTest 2:\tShould be the same transaction.", success)
		}
	}
}

func Test_SyncHashes(t *testing.T) {
	t.Log("Given the need for a new node to copy a longer chain.")
	{
		nodeA := startNode(t, keyA)
		for i := 0; i < 5; i++ {
			mine(t, nodeA)
		}

		nodeB := startNode(t, keyB, nodeA.Host())

		t.Logf("\tTest 0:\tWhen node B bootstraps from node A at height 5.")
		{
			if n := height(nodeB); n != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould reach height 5: height[%d]", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould reach height 5.", success)

			resp, err := client.Send(nodeA.Host(), p2p.CmdGetBlocks, "")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould list the hashes of node A: %s", failed, err)
			}

			var exp []string
			if err := json.Unmarshal([]byte(resp), &exp); err != nil || len(exp) != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould list the hashes of node A: %s", failed, resp)
			}

			got, err := nodeB.ReadOnlyStorage().GetBlockHashes()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould read the hashes of node B: %s", failed, err)
			}

			if !slices.Equal(got, exp) {
				t.Logf("\t%s\tTest 0:\tgot: %v", failed, got)
				t.Logf("\t%s\tTest 0:\texp: %v", failed, exp)
				t.Fatalf("\t%s\tTest 0:\tShould hold the same hashes in the same order.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould hold the same hashes in the same order.", success)

			balA, _ := nodeA.Balances()
			balB, _ := nodeB.Balances()
			if balB[nodeA.PublicKey()] != balA[nodeA.PublicKey()] || len(balB) != len(balA) {
				t.Fatalf("\t%s\tTest 0:\tShould derive the same balances: got[%v] exp[%v]", failed, balB, balA)
			}
			t.Logf("\t%s\tTest 0:\tShould derive the same balances.", success)
		}
	}
}

func Test_BlockRelay(t *testing.T) {
	t.Log("Given the need to relay a new block across a chain of nodes.")
	{
		nodeA := startNode(t, keyA)
		for i := 0; i < 5; i++ {
			mine(t, nodeA)
		}

		nodeB := startNode(t, keyB, nodeA.Host())
		nodeC := startNode(t, keyC, nodeB.Host())

		t.Logf("\tTest 0:\tWhen node C bootstraps from node B.")
		{
			for _, st := range []*state.State{nodeB, nodeC} {
				if n := height(st); n != 5 {
					t.Fatalf("\t%s\tTest 0:\tShould catch up with the chain: node[%s] height[%d]", failed, st.Host(), n)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould catch up with the chain.", success)
		}

		t.Logf("\tTest 1:\tWhen node A mines a new block.")
		{
			block := mine(t, nodeA)

			for _, st := range []*state.State{nodeB, nodeC} {
				if !waitFor(func() bool { return height(st) == 6 }) {
					t.Fatalf("\t%s\tTest 1:\tShould reach every node: node[%s] height[%d]", failed, st.Host(), height(st))
				}

				tip, _, _ := st.LatestBlock()
				if tip.Hash != block.Hash {
					t.Fatalf("\t%s\tTest 1:\tShould be the tip of every node: got[%s] exp[%s]", failed, tip.Hash, block.Hash)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould reach every node as the tip.", success)

			// Let the relayed copies make their way back to node A.
			time.Sleep(500 * time.Millisecond)

			for _, st := range []*state.State{nodeA, nodeB, nodeC} {
				if n := height(st); n != 6 {
					t.Fatalf("\t%s\tTest 1:\tShould apply the block once: node[%s] height[%d]", failed, st.Host(), n)
				}

				hashes, err := st.ReadOnlyStorage().GetBlockHashes()
				if err != nil || len(hashes) != 6 || hashes[5] != block.Hash {
					t.Fatalf("\t%s\tTest 1:\tShould index the block once: node[%s] hashes[%v] err[%v]", failed, st.Host(), hashes, err)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould apply the block once on every node.", success)

			balA, _ := nodeA.Balance(nodeA.PublicKey())
			for _, st := range []*state.State{nodeB, nodeC} {
				if bal, _ := st.Balance(nodeA.PublicKey()); bal != balA {
					t.Fatalf("\t%s\tTest 1:\tShould credit the reward once: node[%s] got[%d] exp[%d]", failed, st.Host(), bal, balA)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould credit the reward once.", success)
		}
	}
}

func Test_Commands(t *testing.T) {
	t.Log("Given the need to answer the node to node commands.")
	{
		node := startNode(t, keyA)
		block := mine(t, node)
		host := node.Host()

		t.Logf("\tTest 0:\tWhen handling well formed requests.")
		{
			resp, err := client.Send(host, p2p.CmdPing, "")
			if err != nil || resp != p2p.Pong {
				t.Fatalf("\t%s\tTest 0:\tShould answer a ping: resp[%s] err[%v]", failed, resp, err)
			}
			t.Logf("\t%s\tTest 0:\tShould answer a ping.", success)

			resp, err = client.Send(host, p2p.CmdGetBlocks, "")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould list the block hashes: %s", failed, err)
			}
			var hashes []string
			if err := json.Unmarshal([]byte(resp), &hashes); err != nil || len(hashes) != 1 || hashes[0] != block.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould list the block hashes: %s", failed, resp)
			}
			t.Logf("\t%s\tTest 0:\tShould list the block hashes.", success)

			resp, err = client.Send(host, p2p.CmdGetBlock, block.Hash)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould return the block: %s", failed, err)
			}
			var got database.Block
			if err := json.Unmarshal([]byte(resp), &got); err != nil || got.Hash != block.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould return the block: %s", failed, resp)
			}
			t.Logf("\t%s\tTest 0:\tShould return the block.", success)

			resp, err = client.Send(host, p2p.CmdGetBlock, strings.Repeat("f", 64))
			if err != nil || resp != "null" {
				t.Fatalf("\t%s\tTest 0:\tShould return null for an unknown block: resp[%s] err[%v]", failed, resp, err)
			}
			t.Logf("\t%s\tTest 0:\tShould return null for an unknown block.", success)

			data, _ := json.Marshal(block)
			resp, err = client.Send(host, p2p.CmdNewBlock, string(data))
			if err != nil || resp != p2p.Ack {
				t.Fatalf("\t%s\tTest 0:\tShould acknowledge a known block: resp[%s] err[%v]", failed, resp, err)
			}
			if n := height(node); n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould not apply a known block twice: height[%d]", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould not apply a known block twice.", success)
		}

		t.Logf("\tTest 1:\tWhen handling bad requests.")
		{
			tests := []struct {
				name    string
				command string
				payload string
			}{
				{"garbage block", p2p.CmdNewBlock, "{not json"},
				{"garbage transaction", p2p.CmdNewTransaction, "[1,2"},
				{"empty peer", p2p.CmdNewPeer, ""},
				{"unknown command", "GET_PEERS", ""},
			}

			for _, tst := range tests {
				_, err := client.Send(host, tst.command, tst.payload)
				if !errors.Is(err, p2p.ErrInvalidMessage) {
					t.Fatalf("\t%s\tTest 1:\tShould reject the %s: %v", failed, tst.name, err)
				}
				t.Logf("\t%s\tTest 1:\tShould reject the %s.", success, tst.name)
			}

			tampered := database.Block{
				Hash:         "0" + strings.Repeat("1", 63),
				PrevBlock:    block.Hash,
				Transactions: block.Transactions,
			}
			data, _ := json.Marshal(tampered)

			resp, err := client.Send(host, p2p.CmdNewBlock, string(data))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould answer a tampered block: %s", failed, err)
			}
			if !strings.Contains(resp, state.ErrHashMismatch.Error()) {
				t.Fatalf("\t%s\tTest 1:\tShould report the hash mismatch: %s", failed, resp)
			}
			t.Logf("\t%s\tTest 1:\tShould report the hash mismatch.", success)

			if n := height(node); n != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the chain untouched: height[%d]", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the chain untouched.", success)
		}
	}
}

func containsHost(peers []peer.Peer, host string) bool {
	for _, pr := range peers {
		if pr.Match(host) {
			return true
		}
	}
	return false
}

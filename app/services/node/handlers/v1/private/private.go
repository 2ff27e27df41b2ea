// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/peer"
	"github.com/simplechain/node/foundation/blockchain/state"
	"github.com/simplechain/node/foundation/p2p"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node commands.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Ping answers the liveness check of a peer.
func (h Handlers) Ping(ctx context.Context, payload string) (string, error) {
	return p2p.Pong, nil
}

// Blocks returns the hashes of the local chain ordered by height.
func (h Handlers) Blocks(ctx context.Context, payload string) (string, error) {
	hashes, err := h.State.ReadOnlyStorage().GetBlockHashes()
	if err != nil {
		return "", err
	}

	if hashes == nil {
		hashes = []string{}
	}

	return marshal(hashes)
}

// Block returns the block for the hash in the payload, null if the block
// is unknown.
func (h Handlers) Block(ctx context.Context, payload string) (string, error) {
	block, found, err := h.State.ReadOnlyStorage().GetBlock(strings.TrimSpace(payload))
	if err != nil {
		return "", err
	}

	if !found {
		return "null", nil
	}

	return marshal(block)
}

// NewBlock takes a block received from a peer, validates it and if that
// passes, adds the block to the local blockchain.
func (h Handlers) NewBlock(ctx context.Context, payload string) (string, error) {
	var block database.Block
	if err := json.Unmarshal([]byte(payload), &block); err != nil {
		return "", fmt.Errorf("%w: block: %s", p2p.ErrInvalidMessage, err)
	}

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the blockchain database.
	if err := h.State.ProcessProposedBlock(block); err != nil {
		return "", err
	}

	return p2p.Ack, nil
}

// NewTransaction adds a transaction shared by a peer to the mempool.
func (h Handlers) NewTransaction(ctx context.Context, payload string) (string, error) {
	var tx database.SignedTx
	if err := json.Unmarshal([]byte(payload), &tx); err != nil {
		return "", fmt.Errorf("%w: transaction: %s", p2p.ErrInvalidMessage, err)
	}

	if err := h.State.UpsertNodeTransaction(tx); err != nil {
		return "", err
	}

	return p2p.Ack, nil
}

// NewPeer adds the announcing node to the known peers, catches up with its
// chain and returns the other peers this node knows about.
func (h Handlers) NewPeer(ctx context.Context, payload string) (string, error) {
	host := strings.TrimSpace(payload)
	if _, _, err := net.SplitHostPort(host); err != nil {
		return "", fmt.Errorf("%w: peer: %s", p2p.ErrInvalidMessage, err)
	}

	pr := peer.New(host)
	if h.State.AddKnownPeer(pr) {
		h.Log.Infow("new peer", "traceid", p2p.GetTraceID(ctx), "host", host)
	}

	n, err := h.State.NetRequestPeerBlocks(pr)
	if err != nil {
		h.Log.Infow("new peer", "traceid", p2p.GetTraceID(ctx), "host", host, "status", "retrieve peer blocks", "ERROR", err)
	}
	if n > 0 {
		h.Log.Infow("new peer", "traceid", p2p.GetTraceID(ctx), "host", host, "status", "blocks synced", "blocks", n)
	}

	return marshal(h.State.KnownPeerHosts(host))
}

// =============================================================================

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/simplechain/node/business/web/errs"
	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/state"
	"github.com/simplechain/node/foundation/events"
	"github.com/simplechain/node/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting to receive events and send them into the websocket.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// ProtocolVersion returns the version of the API.
func (h Handlers) ProtocolVersion(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, version{Version: ProtocolVersion}, http.StatusOK)
}

// PublicKey returns the public key of the node account.
func (h Handlers) PublicKey(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, pubKey{PublicKey: h.State.PublicKey()}, http.StatusOK)
}

// NewPublicKey generates a random key pair and returns the public key.
func (h Handlers) NewPublicKey(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, pubKey{PublicKey: database.PublicKeyFromECDSA(pk.PublicKey)}, http.StatusOK)
}

// BlockHeight returns the height of the chain tip.
func (h Handlers) BlockHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	n, err := h.State.LatestBlockNumber()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, height{Height: n}, http.StatusOK)
}

// BlockByNumber returns the block at the specified height.
func (h Handlers) BlockByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 32)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block number: %w", err), http.StatusBadRequest)
	}

	block, found, err := h.State.BlockByNumber(uint32(number))
	if err != nil {
		return err
	}

	if !found {
		return errs.NewTrusted(fmt.Errorf("block %d not found", number), http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	block, found, err := h.State.BlockByHash(hash)
	if err != nil {
		return err
	}

	if !found {
		return errs.NewTrusted(fmt.Errorf("block %s not found", hash), http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Balances returns the current balances for all accounts, or for the one
// account in the path.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var bals []balance

	switch pubkey := web.Param(r, "pubkey"); pubkey {
	case "":
		all, err := h.State.Balances()
		if err != nil {
			return err
		}

		bals = make([]balance, 0, len(all))
		for pk, value := range all {
			bals = append(bals, balance{PublicKey: pk, Balance: value})
		}
		sort.Slice(bals, func(i, j int) bool {
			return bals[i].PublicKey < bals[j].PublicKey
		})

	default:
		pk, err := database.ToPublicKey(pubkey)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}

		value, err := h.State.Balance(pk)
		if err != nil {
			return err
		}
		bals = []balance{{PublicKey: pk, Balance: value}}
	}

	latest, _, err := h.State.LatestBlock()
	if err != nil {
		return err
	}

	resp := balances{
		LatestBlock: latest.Hash,
		Uncommitted: h.State.MempoolLength(),
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Mempool(), http.StatusOK)
}

// SendTx moves funds from the node account to the specified account.
func (h Handlers) SendTx(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req SendTx
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("send tran", "traceid", v.TraceID, "to", req.To, "amount", req.Amount)

	tx, err := h.State.SendTx(req.To, req.Amount)
	if err != nil {
		return txError(err)
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// SubmitTx adds a transaction signed by a wallet to the mempool.
func (h Handlers) SubmitTx(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.SignedTx
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", tx.Transaction.From, "to", tx.Transaction.To, "amount", tx.Transaction.Amount)

	if err := h.State.SubmitTx(tx); err != nil {
		return txError(err)
	}

	return web.Respond(ctx, w, status{Status: "transaction added to mempool"}, http.StatusOK)
}

// =============================================================================

// txError marks the validation failures as the client's fault.
func txError(err error) error {
	switch {
	case errors.Is(err, state.ErrInsufficientBalance),
		errors.Is(err, state.ErrInvalidSignature),
		errors.Is(err, database.ErrTxIDMismatch):
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return err
}

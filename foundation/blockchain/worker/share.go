package worker

import (
	"github.com/simplechain/node/foundation/blockchain/database"
)

// maxShareRequests represents the max number of pending block or tx network
// share requests that can be outstanding before share requests are dropped.
// To keep this simple, a buffered channel of this arbitrary number is being
// used. If the channel does become full, requests for new blocks or
// transactions to be shared will not be accepted.
const maxShareRequests = 100

// =============================================================================

// shareOperations handles sharing new blocks and transactions.
func (w *Worker) shareOperations() {
	w.evHandler("worker: shareOperations: G started")
	defer w.evHandler("worker: shareOperations: G completed")

	for {
		select {
		case block := <-w.blockSharing:
			if !w.isShutdown() {
				w.runShareBlockOperation(block)
			}
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.state.NetSendTxToPeers(tx)
			}
		case <-w.shut:
			w.evHandler("worker: shareOperations: received shut signal")
			return
		}
	}
}

// runShareBlockOperation sends the block to the known peers.
func (w *Worker) runShareBlockOperation(block database.Block) {
	if err := w.state.NetSendBlockToPeers(block); err != nil {
		w.evHandler("worker: runShareBlockOperation: WARNING: %s", err)
	}
}

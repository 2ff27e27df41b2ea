package worker

import (
	"time"
)

// retryPause is how long the mining G waits after failing to build a
// proposed block.
const retryPause = time.Second

// miningOperations feeds the miner with proposed blocks until shutdown.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for !w.isShutdown() {
		w.runMiningOperation()
	}

	w.evHandler("worker: miningOperations: received shut signal")
}

// runMiningOperation proposes the next block to the miner, waits for the
// result and processes the block when one was found.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	pb, err := w.state.GetProposedBlock()
	if err != nil {
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)

		select {
		case <-time.After(retryPause):
		case <-w.shut:
		}
		return
	}

	if err := w.miner.Propose(w.ctx, pb); err != nil {
		return
	}

	t := time.Now()

	select {
	case block := <-w.miner.Mined():
		duration := time.Since(t)

		if block == nil {
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete: duration[%v]", duration)
			return
		}

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

		// WOW, we mined a block. The state shares it with the network.
		if err := w.state.ProcessMinedBlock(*block); err != nil {
			w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
		}

	case <-w.ctx.Done():
	}
}

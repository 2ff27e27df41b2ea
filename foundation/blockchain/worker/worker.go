// Package worker implements mining, peer updates, and block and transaction
// sharing for the blockchain.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/simplechain/node/foundation/blockchain/database"
	"github.com/simplechain/node/foundation/blockchain/miner"
	"github.com/simplechain/node/foundation/blockchain/state"
)

// defaultPeerInterval represents the interval of checking the known peers
// are still alive.
const defaultPeerInterval = time.Minute

// Config represents the configuration required to run the worker.
type Config struct {
	MinerEnabled bool
	Bootstrap    []string
	PeerInterval time.Duration
}

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state        *state.State
	miner        *miner.Miner
	bootstrap    []string
	wg           sync.WaitGroup
	ticker       *time.Ticker
	ctx          context.Context
	cancel       context.CancelFunc
	shut         chan struct{}
	shutOnce     sync.Once
	blockSharing chan database.Block
	txSharing    chan database.SignedTx
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config, evHandler state.EventHandler) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	interval := cfg.PeerInterval
	if interval <= 0 {
		interval = defaultPeerInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:        st,
		bootstrap:    cfg.Bootstrap,
		ticker:       time.NewTicker(interval),
		ctx:          ctx,
		cancel:       cancel,
		shut:         make(chan struct{}),
		blockSharing: make(chan database.Block, maxShareRequests),
		txSharing:    make(chan database.SignedTx, maxShareRequests),
		evHandler:    ev,
	}

	if cfg.MinerEnabled {
		w.miner = miner.New(miner.Config{
			Difficulty: st.Genesis().Difficulty,
			EvHandler:  miner.EventHandler(ev),
		})
	}

	// Register this worker with the state package.
	st.RegisterWorker(&w)

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.shareOperations,
	}

	if w.miner != nil {
		operations = append(operations,
			func() { w.miner.Run(w.ctx) },
			w.miningOperations,
		)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.shutOnce.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		w.evHandler("worker: shutdown: stop ticker")
		w.ticker.Stop()

		w.evHandler("worker: shutdown: cancel mining")
		w.cancel()

		w.evHandler("worker: shutdown: terminate goroutines")
		close(w.shut)
		w.wg.Wait()
	})
}

// SignalCancelMining signals the miner to abandon the block it is working
// on since the chain tip moved.
func (w *Worker) SignalCancelMining() {
	if w.miner == nil {
		return
	}

	w.miner.Interrupt()
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// SignalShareTx signals a share transaction operation. If
// maxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.SignedTx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// SignalShareBlock signals a share block operation. If maxShareRequests
// signals exist in the channel, we won't send these.
func (w *Worker) SignalShareBlock(block database.Block) {
	select {
	case w.blockSharing <- block:
		w.evHandler("worker: SignalShareBlock: share block signaled")
	default:
		w.evHandler("worker: SignalShareBlock: queue full, block won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// Package miner implements the proof of work search for new blocks. The miner
// runs on its own goroutine and only talks to the rest of the node through
// channels, so the hashing loop never contends for the node lock.
package miner

import (
	"context"
	"math"
	"time"

	"github.com/simplechain/node/foundation/blockchain/database"
)

// Set of defaults used when the configuration leaves them unset.
const (
	defaultBatchSize = 10_000
	defaultPause     = time.Millisecond
)

// EventHandler defines a function that is called when events
// occur in the processing of mining blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct a miner.
type Config struct {
	Difficulty uint16
	BatchSize  uint32        // Number of missed nonces between pauses.
	Pause      time.Duration // Time to yield after each batch of misses.
	EvHandler  EventHandler
}

// Miner searches for a nonce that solves a proposed block.
type Miner struct {
	difficulty uint16
	batchSize  uint32
	pause      time.Duration
	evHandler  EventHandler

	proposed  chan database.ProposedBlock
	mined     chan *database.Block
	interrupt chan struct{}
}

// New constructs a miner ready to be started with Run.
func New(cfg Config) *Miner {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}

	pause := cfg.Pause
	if pause == 0 {
		pause = defaultPause
	}

	return &Miner{
		difficulty: cfg.Difficulty,
		batchSize:  batchSize,
		pause:      pause,
		evHandler:  ev,
		proposed:   make(chan database.ProposedBlock),
		mined:      make(chan *database.Block),
		interrupt:  make(chan struct{}, 1),
	}
}

// Propose hands the next block to work on to the miner. It blocks until the
// miner is idle or the context is done.
func (m *Miner) Propose(ctx context.Context, pb database.ProposedBlock) error {
	select {
	case m.proposed <- pb:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mined returns the channel the results are delivered on. A nil block means
// the search was abandoned because of an interrupt or an exhausted nonce space.
func (m *Miner) Mined() <-chan *database.Block {
	return m.mined
}

// Interrupt asks the miner to abandon the current search. If there is already
// a signal pending, this one is coalesced with it.
func (m *Miner) Interrupt() {
	select {
	case m.interrupt <- struct{}{}:
		m.evHandler("miner: Interrupt: signaled")
	default:
	}
}

// Run processes proposed blocks until the context is cancelled.
func (m *Miner) Run(ctx context.Context) {
	m.evHandler("miner: Run: G started")
	defer m.evHandler("miner: Run: G completed")

	for {
		var pb database.ProposedBlock
		select {
		case pb = <-m.proposed:
		case <-ctx.Done():
			return
		}

		block := m.mine(ctx, pb)

		select {
		case m.mined <- block:
		case <-ctx.Done():
			return
		}
	}
}

// mine does the work of finding a nonce whose block hash satisfies the
// difficulty. The nonce space is scanned from zero upward.
func (m *Miner) mine(ctx context.Context, pb database.ProposedBlock) *database.Block {
	m.evHandler("miner: mine: MINING: started: prevBlk[%s]: txs[%d]", pb.PrevBlock, len(pb.Transactions))
	defer m.evHandler("miner: mine: MINING: completed")

	prefix := pb.Serialize()

	var misses uint32
	for nonce := uint32(0); ; nonce++ {
		select {
		case <-m.interrupt:
			m.evHandler("miner: mine: MINING: CANCELLED: nonce[%d]", nonce)
			return nil
		case <-ctx.Done():
			m.evHandler("miner: mine: MINING: CANCELLED: shutdown")
			return nil
		default:
		}

		block := pb.Seal(prefix, nonce)
		if database.IsHashSolved(m.difficulty, block.Hash) {
			m.evHandler("miner: mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: nonce[%d]", pb.PrevBlock, block.Hash, nonce)
			return &block
		}

		if nonce == math.MaxUint32 {
			m.evHandler("miner: mine: MINING: nonce space exhausted")
			return nil
		}

		misses++
		if misses == m.batchSize {
			misses = 0
			time.Sleep(m.pause)
		}
	}
}
